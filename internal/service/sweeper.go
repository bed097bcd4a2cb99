package service

import (
	"context"
	"time"

	"github.com/Swapica/twap-indexer-svc/internal/data"
	"github.com/Swapica/twap-indexer-svc/internal/gobind"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
	"gitlab.com/distributed_lab/running"
	"golang.org/x/time/rate"
)

// Sweeper periodically re-reads the latest blocks of every chain and completes orders
// whose OrderCompleted event was missed by the subscriptions. Other events are not
// re-derived.
type Sweeper struct {
	log            *logan.Entry
	conns          *Manager
	projector      *projector
	orders         data.OrdersQ
	blocks         uint64
	period         time.Duration
	requestTimeout time.Duration
	limiters       map[string]*rate.Limiter
}

type sweeperOpts struct {
	Blocks         uint64
	Period         time.Duration
	RequestTimeout time.Duration
	RPCRate        int
}

func newSweeper(log *logan.Entry, conns *Manager, p *projector, orders data.OrdersQ, opts sweeperOpts) *Sweeper {
	limit := rate.Inf
	if opts.RPCRate > 0 {
		limit = rate.Limit(opts.RPCRate)
	}
	limiters := make(map[string]*rate.Limiter)
	for _, key := range conns.Keys() {
		limiters[key] = rate.NewLimiter(limit, opts.RPCRate)
	}

	return &Sweeper{
		log:            log.WithField("component", "sweeper"),
		conns:          conns,
		projector:      p,
		orders:         orders,
		blocks:         opts.Blocks,
		period:         opts.Period,
		requestTimeout: opts.RequestTimeout,
		limiters:       limiters,
	}
}

// Run sweeps every period until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	running.WithBackOff(ctx, s.log, "sweeper", s.Sweep, s.period, s.period, 4*s.period)
}

// Sweep makes one pass over all chains. A failing chain is logged and skipped.
func (s *Sweeper) Sweep(ctx context.Context) error {
	for _, key := range s.conns.Keys() {
		conn, _ := s.conns.Get(key)
		log := s.log.WithField("chain", key)

		repaired, err := s.sweepChain(ctx, log, conn)
		if err != nil {
			log.WithError(err).Error("failed to sweep chain")
			continue
		}
		if repaired > 0 {
			log.WithField("repaired", repaired).Info("repaired missed completions")
		}
	}

	return ctx.Err()
}

func (s *Sweeper) sweepChain(ctx context.Context, log *logan.Entry, conn *Connection) (int, error) {
	childCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	limiter := s.limiters[conn.Chain.Key]
	if err := limiter.Wait(childCtx); err != nil {
		return 0, errors.Wrap(err, "failed to wait for rate limiter")
	}
	head, err := conn.Reader.BlockNumber(childCtx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get the latest block from the network")
	}
	var from uint64
	if head > s.blocks {
		from = head - s.blocks
	}

	if err = limiter.Wait(childCtx); err != nil {
		return 0, errors.Wrap(err, "failed to wait for rate limiter")
	}
	logs, err := conn.Reader.FilterLogs(childCtx, from, head, gobind.EventOrderCompleted)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get completion logs")
	}
	log.WithFields(logan.F{"from": from, "to": head, "found": len(logs)}).Debug("scanned blocks")

	repaired := 0
	for _, l := range logs {
		if l.Removed {
			continue
		}
		event, err := conn.Reader.ParseOrderCompleted(l)
		if err != nil {
			log.WithError(err).WithField("tx_hash", l.TxHash.Hex()).Error("failed to parse completion log")
			continue
		}

		order, err := s.orders.New().Get(ctx, data.OrderKey{ChainID: conn.Chain.ChainID, OrderID: event.Id})
		if err != nil {
			log.WithError(err).WithField("order_id", event.Id).Error("failed to get order")
			continue
		}
		if order == nil || order.Status == data.OrderStatusCompleted {
			continue
		}

		completed, err := s.projector.completeOrder(ctx, conn.Chain, event.Id)
		if err != nil {
			log.WithError(err).WithField("order_id", event.Id).Error("failed to complete order")
			continue
		}
		if completed {
			repaired++
		}
	}

	return repaired, nil
}
