package config

import (
	"time"

	"gitlab.com/distributed_lab/figure/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

type Indexer struct {
	RequestTimeout time.Duration
	SweepPeriod    time.Duration
	SweepBlocks    uint64
	// RPCRate limits eth_getLogs requests of a sweep, per chain and second.
	RPCRate    int
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

const (
	defaultRequestTimeout = 10 * time.Second
	defaultSweepPeriod    = 3 * time.Minute
	defaultSweepBlocks    = 50
	defaultRPCRate        = 5
	defaultMinBackoff     = time.Second
	defaultMaxBackoff     = time.Minute
)

func (c *config) Indexer() Indexer {
	return c.indexerOnce.Do(func() interface{} {
		var cfg struct {
			RequestTimeout time.Duration `fig:"request_timeout"`
			SweepPeriod    time.Duration `fig:"sweep_period"`
			SweepBlocks    int           `fig:"sweep_blocks"`
			RPCRate        int           `fig:"rpc_rate"`
			MinBackoff     time.Duration `fig:"min_backoff"`
			MaxBackoff     time.Duration `fig:"max_backoff"`
		}

		raw, err := c.getter.GetStringMap("indexer")
		if err != nil {
			panic(errors.Wrap(err, "failed to get indexer config"))
		}
		err = figure.Out(&cfg).From(raw).Please()
		if err != nil {
			panic(errors.Wrap(err, "failed to figure out indexer"))
		}

		if cfg.SweepBlocks < 0 || cfg.RPCRate < 0 {
			panic(errors.New("sweep_blocks and rpc_rate must not be negative"))
		}

		result := Indexer{
			RequestTimeout: cfg.RequestTimeout,
			SweepPeriod:    cfg.SweepPeriod,
			SweepBlocks:    uint64(cfg.SweepBlocks),
			RPCRate:        cfg.RPCRate,
			MinBackoff:     cfg.MinBackoff,
			MaxBackoff:     cfg.MaxBackoff,
		}
		result.setDefaults()
		return result
	}).(Indexer)
}

func (i *Indexer) setDefaults() {
	if i.RequestTimeout == 0 {
		i.RequestTimeout = defaultRequestTimeout
	}
	if i.SweepPeriod == 0 {
		i.SweepPeriod = defaultSweepPeriod
	}
	if i.SweepBlocks == 0 {
		i.SweepBlocks = defaultSweepBlocks
	}
	if i.RPCRate == 0 {
		i.RPCRate = defaultRPCRate
	}
	if i.MinBackoff == 0 {
		i.MinBackoff = defaultMinBackoff
	}
	if i.MaxBackoff < i.MinBackoff {
		i.MaxBackoff = defaultMaxBackoff
		if i.MaxBackoff < i.MinBackoff {
			i.MaxBackoff = i.MinBackoff
		}
	}
}
