package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/Swapica/twap-indexer-svc/internal/config"
	"github.com/Swapica/twap-indexer-svc/internal/data"
	"github.com/Swapica/twap-indexer-svc/internal/data/memory"
	"github.com/Swapica/twap-indexer-svc/internal/gobind"
	"github.com/Swapica/twap-indexer-svc/internal/gobind/gobindtest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"gitlab.com/distributed_lab/logan/v3"
)

var (
	contract = common.HexToAddress("0x000000000000000000000000000000000000c0de")
	maker    = common.HexToAddress("0x52908400098527886E0F7030069857D2E4169EE7")
	stranger = common.HexToAddress("0x0000000000000000000000000000000000000bad")
	exchange = common.HexToAddress("0x2222222222222222222222222222222222222222")
	taker    = common.HexToAddress("0x3333333333333333333333333333333333333333")

	alpha = config.Chain{
		Key:      "alpha",
		Name:     "Alpha",
		ChainID:  1001,
		Contract: contract,
		RPC:      "http://alpha.rpc",
		WS:       "ws://alpha.ws",
	}
)

type fixture struct {
	backend   *gobindtest.Backend
	orders    data.OrdersQ
	conns     *Manager
	conn      *Connection
	projector *projector
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithUsers(t, memory.NewUsersQ(maker))
}

func newFixtureWithUsers(t *testing.T, users data.UsersQ) *fixture {
	t.Helper()

	f := &fixture{
		backend: gobindtest.NewBackend(),
		orders:  memory.NewOrdersQ(),
		clock:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.conns = NewManager(context.Background(), logan.New(), []config.Chain{alpha},
		func(context.Context, string) (gobind.Backend, error) { return f.backend, nil })

	conn, ok := f.conns.Get(alpha.Key)
	require.True(t, ok)
	f.conn = conn

	f.projector = newProjector(logan.New(), f.orders, users)
	f.projector.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) tick() {
	f.clock = f.clock.Add(time.Minute)
}

func (f *fixture) createdLog(t *testing.T, id uint64, from common.Address, srcAmount string) types.Log {
	t.Helper()
	l, err := gobindtest.Log(contract, gobind.EventOrderCreated,
		[]interface{}{id, from, exchange}, gobindtest.Ask(exchange, bigInt(t, srcAmount)))
	require.NoError(t, err)
	l.TxHash = common.BigToHash(new(big.Int).SetUint64(1000 + id))
	return l
}

func (f *fixture) filledLog(t *testing.T, id uint64, tx string, srcAmountIn, srcFilledAmount string) types.Log {
	t.Helper()
	l, err := gobindtest.Log(contract, gobind.EventOrderFilled,
		[]interface{}{id, maker, exchange},
		taker, bigInt(t, srcAmountIn), big.NewInt(990), big.NewInt(10), bigInt(t, srcFilledAmount))
	require.NoError(t, err)
	l.TxHash = common.HexToHash(tx)
	l.Index = 2
	return l
}

func (f *fixture) completedLog(t *testing.T, id uint64, block uint64) types.Log {
	t.Helper()
	l, err := gobindtest.Log(contract, gobind.EventOrderCompleted, []interface{}{id, maker, exchange}, taker)
	require.NoError(t, err)
	l.BlockNumber = block
	l.TxHash = common.BigToHash(new(big.Int).SetUint64(5000 + id))
	return l
}

func (f *fixture) canceledLog(t *testing.T, id uint64) types.Log {
	t.Helper()
	l, err := gobindtest.Log(contract, gobind.EventOrderCanceled, []interface{}{id, maker}, maker)
	require.NoError(t, err)
	return l
}

// handle runs the handler registered for the log's event directly.
func (f *fixture) handle(t *testing.T, l types.Log) {
	t.Helper()
	name, err := gobindtest.EventName(l)
	require.NoError(t, err)
	require.NoError(t, f.projector.handlers()[name](context.Background(), alpha, f.conn.Stream, l))
}

func (f *fixture) order(t *testing.T, id uint64) *data.Order {
	t.Helper()
	o, err := f.orders.Get(context.Background(), data.OrderKey{ChainID: alpha.ChainID, OrderID: id})
	require.NoError(t, err)
	return o
}

func bigInt(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "invalid integer %q", s)
	return v
}
