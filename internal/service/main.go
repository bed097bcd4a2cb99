package service

import (
	"context"

	"github.com/Swapica/twap-indexer-svc/internal/config"
	"github.com/Swapica/twap-indexer-svc/internal/data"
	"github.com/Swapica/twap-indexer-svc/internal/data/postgres"
	"github.com/Swapica/twap-indexer-svc/internal/data/remote"
	"gitlab.com/distributed_lab/logan/v3"
)

type service struct {
	log      *logan.Entry
	conns    *Manager
	ingestor *Ingestor
	sweeper  *Sweeper
}

func (s *service) run(ctx context.Context) error {
	s.log.WithField("chains", s.conns.Keys()).Info("Service started")
	defer s.conns.Close()

	s.ingestor.Start(ctx)
	defer s.ingestor.Close()

	s.sweeper.Run(ctx)
	s.log.Info("Service stopped")
	return nil
}

func newService(ctx context.Context, cfg config.Config) *service {
	log := cfg.Log()
	indexer := cfg.Indexer()
	orders := postgres.NewOrdersQ(cfg.DB())

	conns := NewManager(ctx, log, cfg.Chains(), DialEthereum)
	p := newProjector(log, orders, newUsersQ(cfg))

	return &service{
		log:      log,
		conns:    conns,
		ingestor: newIngestor(log, conns, p, indexer.MinBackoff, indexer.MaxBackoff),
		sweeper: newSweeper(log, conns, p, orders, sweeperOpts{
			Blocks:         indexer.SweepBlocks,
			Period:         indexer.SweepPeriod,
			RequestTimeout: indexer.RequestTimeout,
			RPCRate:        indexer.RPCRate,
		}),
	}
}

func newUsersQ(cfg config.Config) data.UsersQ {
	if users := cfg.UserGate().Users; users != nil {
		return remote.NewUsersQ(users)
	}
	return postgres.NewUsersQ(cfg.DB())
}

// Run indexes all configured chains until ctx is done.
func Run(ctx context.Context, cfg config.Config) {
	if err := newService(ctx, cfg).run(ctx); err != nil {
		panic(err)
	}
}

// Sweep makes a single reconciliation pass over all configured chains.
func Sweep(ctx context.Context, cfg config.Config) error {
	s := newService(ctx, cfg)
	defer s.conns.Close()
	return s.sweeper.Sweep(ctx)
}
