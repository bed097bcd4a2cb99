package config

import (
	"math"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cast"
	"gitlab.com/distributed_lab/figure/v3"
	"gitlab.com/distributed_lab/kit/kv"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

const maxChainID int64 = math.MaxUint64/2 - 36

// Chain is the static registry entry of a monitored network.
type Chain struct {
	Key      string
	Name     string
	ChainID  int64
	Contract common.Address
	RPC      string
	// WS is optional: chains without it are read-only and are not monitored live.
	WS string
}

func (c *config) Chains() []Chain {
	return c.chainsOnce.Do(func() interface{} {
		raw := kv.MustGetStringMap(c.getter, "chains")

		keys := make([]string, 0, len(raw))
		for key := range raw {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		chains := make([]Chain, 0, len(keys))
		for _, key := range keys {
			chain, err := parseChain(key, raw[key])
			if err != nil {
				panic(errors.Wrap(err, "failed to figure out chain", logan.F{"chain": key}))
			}
			chains = append(chains, chain)
		}

		return chains
	}).([]Chain)
}

func parseChain(key string, raw interface{}) (Chain, error) {
	var cfg struct {
		Name     string         `fig:"name,required"`
		ChainID  int64          `fig:"chain_id,required"`
		Contract common.Address `fig:"contract,required"`
		RPC      string         `fig:"rpc,required"`
		WS       string         `fig:"ws"`
	}

	values, err := cast.ToStringMapE(raw)
	if err != nil {
		return Chain{}, errors.Wrap(err, "chain config must be a map")
	}

	err = figure.Out(&cfg).
		With(figure.EthereumHooks).
		From(values).
		Please()
	if err != nil {
		return Chain{}, errors.Wrap(err, "failed to figure out chain")
	}

	if cfg.ChainID > maxChainID || cfg.ChainID <= 0 {
		return Chain{}, errors.New("chain_id value out of range due to EIP 2294")
	}

	return Chain{
		Key:      key,
		Name:     cfg.Name,
		ChainID:  cfg.ChainID,
		Contract: cfg.Contract,
		RPC:      cfg.RPC,
		WS:       cfg.WS,
	}, nil
}
