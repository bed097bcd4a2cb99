package gobind

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderFilled    = "OrderFilled"
	EventOrderCompleted = "OrderCompleted"
	EventOrderCanceled  = "OrderCanceled"
)

// Events lists every TWAP event the indexer projects.
var Events = []string{EventOrderCreated, EventOrderFilled, EventOrderCompleted, EventOrderCanceled}

// TWAPMetaData contains the event part of the TWAP contract ABI.
var TWAPMetaData = &bind.MetaData{
	ABI: `[
	{"anonymous":false,"name":"OrderCreated","type":"event","inputs":[
		{"indexed":true,"name":"id","type":"uint64"},
		{"indexed":true,"name":"maker","type":"address"},
		{"indexed":true,"name":"exchange","type":"address"},
		{"indexed":false,"name":"ask","type":"tuple","internalType":"struct OrderLib.Ask","components":[
			{"name":"exchange","type":"address"},
			{"name":"srcToken","type":"address"},
			{"name":"dstToken","type":"address"},
			{"name":"srcAmount","type":"uint256"},
			{"name":"srcBidAmount","type":"uint256"},
			{"name":"dstMinAmount","type":"uint256"},
			{"name":"deadline","type":"uint32"},
			{"name":"bidDelay","type":"uint32"},
			{"name":"fillDelay","type":"uint32"},
			{"name":"data","type":"bytes"}]}]},
	{"anonymous":false,"name":"OrderFilled","type":"event","inputs":[
		{"indexed":true,"name":"id","type":"uint64"},
		{"indexed":true,"name":"maker","type":"address"},
		{"indexed":true,"name":"exchange","type":"address"},
		{"indexed":false,"name":"taker","type":"address"},
		{"indexed":false,"name":"srcAmountIn","type":"uint256"},
		{"indexed":false,"name":"dstAmountOut","type":"uint256"},
		{"indexed":false,"name":"dstFee","type":"uint256"},
		{"indexed":false,"name":"srcFilledAmount","type":"uint256"}]},
	{"anonymous":false,"name":"OrderCompleted","type":"event","inputs":[
		{"indexed":true,"name":"id","type":"uint64"},
		{"indexed":true,"name":"maker","type":"address"},
		{"indexed":true,"name":"exchange","type":"address"},
		{"indexed":false,"name":"taker","type":"address"}]},
	{"anonymous":false,"name":"OrderCanceled","type":"event","inputs":[
		{"indexed":true,"name":"id","type":"uint64"},
		{"indexed":true,"name":"maker","type":"address"},
		{"indexed":false,"name":"sender","type":"address"}]}
]`,
}

// TWAPAsk is an auto generated low-level Go binding around the OrderLib.Ask tuple.
type TWAPAsk struct {
	Exchange     common.Address
	SrcToken     common.Address
	DstToken     common.Address
	SrcAmount    *big.Int
	SrcBidAmount *big.Int
	DstMinAmount *big.Int
	Deadline     uint32
	BidDelay     uint32
	FillDelay    uint32
	Data         []byte
}

type TWAPOrderCreated struct {
	Id       uint64
	Maker    common.Address
	Exchange common.Address
	Ask      TWAPAsk
	Raw      types.Log
}

type TWAPOrderFilled struct {
	Id              uint64
	Maker           common.Address
	Exchange        common.Address
	Taker           common.Address
	SrcAmountIn     *big.Int
	DstAmountOut    *big.Int
	DstFee          *big.Int
	SrcFilledAmount *big.Int
	Raw             types.Log
}

type TWAPOrderCompleted struct {
	Id       uint64
	Maker    common.Address
	Exchange common.Address
	Taker    common.Address
	Raw      types.Log
}

type TWAPOrderCanceled struct {
	Id     uint64
	Maker  common.Address
	Sender common.Address
	Raw    types.Log
}

// Backend is what a TWAP binding needs from a node connection. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	BlockNumber(ctx context.Context) (uint64, error)
}

// TWAP is a binding of the TWAP contract events to a single node connection.
type TWAP struct {
	address  common.Address
	abi      abi.ABI
	backend  Backend
	contract *bind.BoundContract
}

func NewTWAP(address common.Address, backend Backend) (*TWAP, error) {
	parsed, err := TWAPMetaData.GetAbi()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse TWAP ABI")
	}
	if parsed == nil {
		return nil, errors.New("TWAP ABI is empty")
	}

	return &TWAP{
		address:  address,
		abi:      *parsed,
		backend:  backend,
		contract: bind.NewBoundContract(address, *parsed, backend, backend, backend),
	}, nil
}

func (t *TWAP) Address() common.Address {
	return t.address
}

func (t *TWAP) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := t.backend.BlockNumber(ctx)
	return n, errors.Wrap(err, "failed to get eth_blockNumber")
}

// WatchLogs subscribes to a single event of the contract.
func (t *TWAP) WatchLogs(opts *bind.WatchOpts, eventName string) (chan types.Log, event.Subscription, error) {
	if _, ok := t.abi.Events[eventName]; !ok {
		return nil, nil, errors.From(errors.New("unknown event"), logan.F{"event": eventName})
	}
	return t.contract.WatchLogs(opts, eventName)
}

// FilterLogs returns logs of the given events emitted in blocks [from, to].
func (t *TWAP) FilterLogs(ctx context.Context, from, to uint64, eventNames ...string) ([]types.Log, error) {
	topics := make([]common.Hash, 0, len(eventNames))
	for _, name := range eventNames {
		ev, ok := t.abi.Events[name]
		if !ok {
			return nil, errors.From(errors.New("unknown event"), logan.F{"event": name})
		}
		topics = append(topics, ev.ID)
	}

	logs, err := t.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{t.address},
		Topics:    [][]common.Hash{topics},
	})
	return logs, errors.Wrap(err, "failed to filter logs", logan.F{"from": from, "to": to})
}

func (t *TWAP) ParseOrderCreated(log types.Log) (*TWAPOrderCreated, error) {
	ev := new(TWAPOrderCreated)
	if err := t.contract.UnpackLog(ev, EventOrderCreated, log); err != nil {
		return nil, errors.Wrap(err, "failed to unpack event", logan.F{"event": EventOrderCreated})
	}
	ev.Raw = log
	return ev, nil
}

func (t *TWAP) ParseOrderFilled(log types.Log) (*TWAPOrderFilled, error) {
	ev := new(TWAPOrderFilled)
	if err := t.contract.UnpackLog(ev, EventOrderFilled, log); err != nil {
		return nil, errors.Wrap(err, "failed to unpack event", logan.F{"event": EventOrderFilled})
	}
	ev.Raw = log
	return ev, nil
}

func (t *TWAP) ParseOrderCompleted(log types.Log) (*TWAPOrderCompleted, error) {
	ev := new(TWAPOrderCompleted)
	if err := t.contract.UnpackLog(ev, EventOrderCompleted, log); err != nil {
		return nil, errors.Wrap(err, "failed to unpack event", logan.F{"event": EventOrderCompleted})
	}
	ev.Raw = log
	return ev, nil
}

func (t *TWAP) ParseOrderCanceled(log types.Log) (*TWAPOrderCanceled, error) {
	ev := new(TWAPOrderCanceled)
	if err := t.contract.UnpackLog(ev, EventOrderCanceled, log); err != nil {
		return nil, errors.Wrap(err, "failed to unpack event", logan.F{"event": EventOrderCanceled})
	}
	ev.Raw = log
	return ev, nil
}
