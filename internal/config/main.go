package config

import (
	"gitlab.com/distributed_lab/kit/comfig"
	"gitlab.com/distributed_lab/kit/kv"
	"gitlab.com/distributed_lab/kit/pgdb"
)

type Config interface {
	comfig.Logger
	pgdb.Databaser

	Chains() []Chain
	Indexer() Indexer
	UserGate() UserGate
}

type config struct {
	comfig.Logger
	pgdb.Databaser
	getter kv.Getter

	chainsOnce   comfig.Once
	indexerOnce  comfig.Once
	userGateOnce comfig.Once
}

func New(getter kv.Getter) Config {
	return &config{
		getter:    getter,
		Databaser: pgdb.NewDatabaser(getter),
		Logger:    comfig.NewLogger(getter, comfig.LoggerOpts{}),
	}
}
