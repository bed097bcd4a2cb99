package service

import (
	"context"
	"testing"
	"time"

	"github.com/Swapica/twap-indexer-svc/internal/config"
	"github.com/Swapica/twap-indexer-svc/internal/data"
	"github.com/Swapica/twap-indexer-svc/internal/data/memory"
	"github.com/Swapica/twap-indexer-svc/internal/gobind"
	"github.com/Swapica/twap-indexer-svc/internal/gobind/gobindtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

func newTestSweeper(f *fixture, rpcRate int) *Sweeper {
	return newSweeper(logan.New(), f.conns, f.projector, f.orders, sweeperOpts{
		Blocks:         50,
		Period:         time.Minute,
		RequestTimeout: time.Second,
		RPCRate:        rpcRate,
	})
}

func TestSweeper_RepairsMissedCompletion(t *testing.T) {
	f := newFixture(t)
	f.handle(t, f.createdLog(t, 7, maker, "1000"))
	f.handle(t, f.filledLog(t, 7, "0xaa", "400", "400"))

	f.backend.Emit(f.completedLog(t, 7, 480))
	f.backend.SetHead(500)

	f.tick()
	require.NoError(t, newTestSweeper(f, 0).Sweep(context.Background()))

	order := f.order(t, 7)
	assert.Equal(t, data.OrderStatusCompleted, order.Status)
	assert.Equal(t, 100, order.PercentFilled)
	assert.Equal(t, "400", order.TotalFilledAmount)
	assert.Equal(t, f.clock, order.LastUpdated)
}

func TestSweeper_Window(t *testing.T) {
	f := newFixture(t)
	f.handle(t, f.createdLog(t, 1, maker, "1000"))
	f.handle(t, f.createdLog(t, 2, maker, "1000"))

	f.backend.Emit(f.completedLog(t, 1, 449))
	f.backend.Emit(f.completedLog(t, 2, 450))
	f.backend.SetHead(500)

	require.NoError(t, newTestSweeper(f, 0).Sweep(context.Background()))
	assert.Equal(t, data.OrderStatusOpen, f.order(t, 1).Status)
	assert.Equal(t, data.OrderStatusCompleted, f.order(t, 2).Status)
}

func TestSweeper_ShortChain(t *testing.T) {
	f := newFixture(t)
	f.handle(t, f.createdLog(t, 1, maker, "1000"))
	f.backend.Emit(f.completedLog(t, 1, 0))
	f.backend.SetHead(10)

	require.NoError(t, newTestSweeper(f, 0).Sweep(context.Background()))
	assert.Equal(t, data.OrderStatusCompleted, f.order(t, 1).Status)
}

func TestSweeper_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.handle(t, f.createdLog(t, 7, maker, "1000"))
	f.backend.Emit(f.completedLog(t, 7, 100))

	sweeper := newTestSweeper(f, 100)
	require.NoError(t, sweeper.Sweep(context.Background()))
	completed := f.order(t, 7)

	f.tick()
	require.NoError(t, sweeper.Sweep(context.Background()))
	assert.Equal(t, completed, f.order(t, 7))
	assert.Equal(t, 2, f.backend.FilterCalls())
}

func TestSweeper_LeavesOtherOrdersAlone(t *testing.T) {
	f := newFixture(t)
	f.handle(t, f.createdLog(t, 1, maker, "1000"))
	f.handle(t, f.canceledLog(t, 1))

	f.backend.Emit(f.completedLog(t, 1, 10))
	f.backend.Emit(f.completedLog(t, 99, 11))

	require.NoError(t, newTestSweeper(f, 0).Sweep(context.Background()))
	assert.Equal(t, data.OrderStatusCanceled, f.order(t, 1).Status)
	assert.Nil(t, f.order(t, 99))
}

func TestSweeper_ChainFailureIsIsolated(t *testing.T) {
	backends := map[string]*gobindtest.Backend{
		"ws://alpha":  gobindtest.NewBackend(),
		"http://beta": gobindtest.NewBackend(),
	}
	backends["http://alpha"] = backends["ws://alpha"]
	backends["ws://beta"] = backends["http://beta"]

	alphaChain := config.Chain{Key: "alpha", Name: "Alpha", ChainID: 1001, Contract: contract, RPC: "http://alpha", WS: "ws://alpha"}
	betaChain := config.Chain{Key: "beta", Name: "Beta", ChainID: 2002, Contract: contract, RPC: "http://beta", WS: "ws://beta"}

	conns := NewManager(context.Background(), logan.New(), []config.Chain{alphaChain, betaChain},
		func(_ context.Context, url string) (gobind.Backend, error) { return backends[url], nil })
	require.Equal(t, []string{"alpha", "beta"}, conns.Keys())

	f := newFixture(t)
	f.conns = conns
	f.orders = memory.NewOrdersQ()
	f.projector = newProjector(logan.New(), f.orders, memory.NewUsersQ(maker))

	created := f.createdLog(t, 7, maker, "1000")
	require.NoError(t, f.projector.handleOrderCreated(context.Background(), alphaChain, f.conn.Stream, created))
	require.NoError(t, f.projector.handleOrderCreated(context.Background(), betaChain, f.conn.Stream, created))

	backends["ws://alpha"].Emit(f.completedLog(t, 7, 5))
	backends["ws://alpha"].SetFilterErr(errors.New("rate limited"))
	backends["ws://beta"].Emit(f.completedLog(t, 7, 5))

	require.NoError(t, newTestSweeper(f, 0).Sweep(context.Background()))

	get := func(chainID int64) *data.Order {
		o, err := f.orders.Get(context.Background(), data.OrderKey{ChainID: chainID, OrderID: 7})
		require.NoError(t, err)
		require.NotNil(t, o)
		return o
	}
	assert.Equal(t, data.OrderStatusOpen, get(alphaChain.ChainID).Status)
	assert.Equal(t, data.OrderStatusCompleted, get(betaChain.ChainID).Status)
}

func TestSweeper_CanceledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestSweeper(f, 1).Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.backend.FilterCalls())
}
