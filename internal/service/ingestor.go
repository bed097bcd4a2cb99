package service

import (
	"context"
	"sync"
	"time"

	"github.com/Swapica/twap-indexer-svc/internal/gobind"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
	"gitlab.com/distributed_lab/running"
)

type handleKey struct {
	chain string
	event string
}

type subscriptionHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Ingestor keeps one supervised log subscription per chain and event. A dropped
// subscription is re-established with backoff; each one can be removed on its own.
type Ingestor struct {
	log        *logan.Entry
	conns      *Manager
	handlers   map[string]Handler
	minBackoff time.Duration
	maxBackoff time.Duration

	mu      sync.Mutex
	handles map[handleKey]*subscriptionHandle
}

func newIngestor(log *logan.Entry, conns *Manager, p *projector, minBackoff, maxBackoff time.Duration) *Ingestor {
	return &Ingestor{
		log:        log.WithField("component", "ingestor"),
		conns:      conns,
		handlers:   p.handlers(),
		minBackoff: minBackoff,
		maxBackoff: maxBackoff,
		handles:    make(map[handleKey]*subscriptionHandle),
	}
}

// Start subscribes to every projected event on every initialized chain. It does not block.
func (i *Ingestor) Start(ctx context.Context) {
	for _, key := range i.conns.Keys() {
		conn, _ := i.conns.Get(key)
		for _, eventName := range gobind.Events {
			i.subscribe(ctx, conn, eventName)
		}
	}
}

func (i *Ingestor) subscribe(ctx context.Context, conn *Connection, eventName string) {
	key := handleKey{chain: conn.Chain.Key, event: eventName}

	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.handles[key]; ok {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &subscriptionHandle{cancel: cancel, done: make(chan struct{})}
	i.handles[key] = h

	handler := i.handlers[eventName]
	log := i.log.WithFields(logan.F{"chain": conn.Chain.Key, "event": eventName})

	go func() {
		defer close(h.done)
		running.WithBackOff(ctx, log, "watch-"+conn.Chain.Key+"-"+eventName,
			func(ctx context.Context) error {
				return i.watch(ctx, log, conn, eventName, handler)
			},
			i.minBackoff, i.minBackoff, i.maxBackoff)
	}()
}

// watch returns nil only when ctx is done, so running re-subscribes after any failure.
func (i *Ingestor) watch(ctx context.Context, log *logan.Entry, conn *Connection, eventName string, handler Handler) error {
	logs, sub, err := conn.Stream.WatchLogs(&bind.WatchOpts{Context: ctx}, eventName)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe to event")
	}
	defer sub.Unsubscribe()
	log.Info("subscribed to event")

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return errors.Wrap(err, "log subscription failed")
		case l := <-logs:
			i.dispatch(ctx, log, conn, handler, l)
		}
	}
}

// dispatch is the failure boundary of a single event: nothing escapes it.
func (i *Ingestor) dispatch(ctx context.Context, log *logan.Entry, conn *Connection, handler Handler, l types.Log) {
	log = log.WithFields(logan.F{
		"tx_hash":   l.TxHash.Hex(),
		"log_index": l.Index,
		"block":     l.BlockNumber,
	})
	defer func() {
		if rvr := recover(); rvr != nil {
			log.WithRecover(rvr).Error("event handler panicked")
		}
	}()

	if l.Removed {
		log.Warn("log was removed by a chain reorganization, skipping it")
		return
	}
	if err := handler(ctx, conn.Chain, conn.Stream, l); err != nil {
		log.WithError(err).Error("failed to handle event")
	}
}

// Unsubscribe removes the handler of one event on one chain and waits for it to stop.
// It reports false if no such handler is registered.
func (i *Ingestor) Unsubscribe(chain, eventName string) bool {
	key := handleKey{chain: chain, event: eventName}

	i.mu.Lock()
	h, ok := i.handles[key]
	delete(i.handles, key)
	i.mu.Unlock()

	if !ok {
		return false
	}
	h.cancel()
	<-h.done
	i.log.WithFields(logan.F{"chain": chain, "event": eventName}).Info("unsubscribed from event")
	return true
}

func (i *Ingestor) Registered(chain, eventName string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.handles[handleKey{chain: chain, event: eventName}]
	return ok
}

// Close removes every handler.
func (i *Ingestor) Close() {
	i.mu.Lock()
	handles := i.handles
	i.handles = make(map[handleKey]*subscriptionHandle)
	i.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
	for _, h := range handles {
		<-h.done
	}
}
