// Package gobindtest provides an in-process node backend and log builders for testing code
// built on the gobind TWAP binding.
package gobindtest

import (
	"context"
	"math/big"
	"sync"

	"github.com/Swapica/twap-indexer-svc/internal/gobind"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

// Backend keeps emitted logs in memory and pushes them to live log subscriptions.
// Methods of bind.ContractBackend other than the log filterer ones are not implemented.
type Backend struct {
	bind.ContractBackend

	mu          sync.Mutex
	head        uint64
	logs        []types.Log
	subs        map[*subscription]struct{}
	subscribed  int
	filterCalls int

	FilterErr    error
	SubscribeErr error
}

type subscription struct {
	query ethereum.FilterQuery
	sink  chan<- types.Log
	errc  chan error
}

func NewBackend() *Backend {
	return &Backend{subs: make(map[*subscription]struct{})}
}

func (b *Backend) SetHead(n uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = n
}

// SetFilterErr makes FilterLogs fail with err until it is reset with nil.
func (b *Backend) SetFilterErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.FilterErr = err
}

// SetSubscribeErr makes SubscribeFilterLogs fail with err until it is reset with nil.
func (b *Backend) SetSubscribeErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.SubscribeErr = err
}

func (b *Backend) BlockNumber(_ context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.head, nil
}

// Emit stores the log for FilterLogs and delivers it to every matching subscription.
func (b *Backend) Emit(log types.Log) {
	b.mu.Lock()
	b.logs = append(b.logs, log)
	if log.BlockNumber > b.head {
		b.head = log.BlockNumber
	}
	var sinks []chan<- types.Log
	for s := range b.subs {
		if matches(s.query, log) {
			sinks = append(sinks, s.sink)
		}
	}
	b.mu.Unlock()

	for _, sink := range sinks {
		sink <- log
	}
}

// DropSubscriptions fails every live subscription with err, as a dropped websocket would.
func (b *Backend) DropSubscriptions(err error) {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[*subscription]struct{})
	b.mu.Unlock()

	for s := range subs {
		s.errc <- err
	}
}

// Live returns the number of currently open subscriptions.
func (b *Backend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Subscribed returns how many subscriptions were ever opened.
func (b *Backend) Subscribed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subscribed
}

func (b *Backend) FilterCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filterCalls
}

func (b *Backend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filterCalls++
	if b.FilterErr != nil {
		return nil, b.FilterErr
	}

	var result []types.Log
	for _, l := range b.logs {
		if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if matches(q, l) {
			result = append(result, l)
		}
	}
	return result, nil
}

func (b *Backend) SubscribeFilterLogs(_ context.Context, q ethereum.FilterQuery, sink chan<- types.Log) (ethereum.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SubscribeErr != nil {
		return nil, b.SubscribeErr
	}

	s := &subscription{query: q, sink: sink, errc: make(chan error, 1)}
	b.subs[s] = struct{}{}
	b.subscribed++

	return event.NewSubscription(func(quit <-chan struct{}) error {
		select {
		case <-quit:
			b.mu.Lock()
			delete(b.subs, s)
			b.mu.Unlock()
			return nil
		case err := <-s.errc:
			return err
		}
	}), nil
}

func matches(q ethereum.FilterQuery, l types.Log) bool {
	if len(q.Addresses) > 0 {
		found := false
		for _, a := range q.Addresses {
			if a == l.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for i, alternatives := range q.Topics {
		if len(alternatives) == 0 {
			continue
		}
		if i >= len(l.Topics) {
			return false
		}
		found := false
		for _, topic := range alternatives {
			if topic == l.Topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Log builds a raw contract log for the named event. indexed holds the indexed
// arguments in ABI order, data the non-indexed ones.
func Log(contract common.Address, eventName string, indexed []interface{}, data ...interface{}) (types.Log, error) {
	parsed, err := gobind.TWAPMetaData.GetAbi()
	if err != nil {
		return types.Log{}, errors.Wrap(err, "failed to parse ABI")
	}
	ev, ok := parsed.Events[eventName]
	if !ok {
		return types.Log{}, errors.New("unknown event")
	}

	query := make([][]interface{}, 0, len(indexed))
	for _, arg := range indexed {
		query = append(query, []interface{}{arg})
	}
	rules, err := abi.MakeTopics(query...)
	if err != nil {
		return types.Log{}, errors.Wrap(err, "failed to make topics")
	}
	topics := []common.Hash{ev.ID}
	for _, rule := range rules {
		topics = append(topics, rule[0])
	}

	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return types.Log{}, errors.Wrap(err, "failed to pack event data")
	}

	return types.Log{Address: contract, Topics: topics, Data: packed}, nil
}

// EventName resolves the event of a contract log by its first topic.
func EventName(log types.Log) (string, error) {
	if len(log.Topics) == 0 {
		return "", errors.New("log has no topics")
	}
	parsed, err := gobind.TWAPMetaData.GetAbi()
	if err != nil {
		return "", errors.Wrap(err, "failed to parse ABI")
	}
	ev, err := parsed.EventByID(log.Topics[0])
	if err != nil {
		return "", errors.Wrap(err, "failed to get event by topic")
	}
	return ev.Name, nil
}

// Ask returns a TWAP ask selling srcAmount of a token in chunks of a tenth.
func Ask(exchange common.Address, srcAmount *big.Int) gobind.TWAPAsk {
	return gobind.TWAPAsk{
		Exchange:     exchange,
		SrcToken:     common.HexToAddress("0x00000000000000000000000000000000000000a1"),
		DstToken:     common.HexToAddress("0x00000000000000000000000000000000000000b2"),
		SrcAmount:    srcAmount,
		SrcBidAmount: new(big.Int).Div(srcAmount, big.NewInt(10)),
		DstMinAmount: big.NewInt(1),
		Deadline:     1893456000,
		BidDelay:     30,
		FillDelay:    60,
		Data:         []byte{},
	}
}
