package config

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapGetter map[string]map[string]interface{}

func (g mapGetter) GetStringMap(key string) (map[string]interface{}, error) {
	return g[key], nil
}

func TestChains(t *testing.T) {
	cfg := New(mapGetter{
		"chains": {
			"polygon": map[string]interface{}{
				"name":     "Polygon",
				"chain_id": 137,
				"contract": "0x688C027B0f7FaCeBA4e1b1D4D1D6D4F7C1aC3d5E",
				"rpc":      "https://polygon.example",
				"ws":       "wss://polygon.example",
			},
			"base": map[interface{}]interface{}{
				"name":     "Base",
				"chain_id": 8453,
				"contract": "0x688C027B0f7FaCeBA4e1b1D4D1D6D4F7C1aC3d5E",
				"rpc":      "https://base.example",
			},
		},
	})

	chains := cfg.Chains()
	require.Len(t, chains, 2)

	assert.Equal(t, "base", chains[0].Key)
	assert.Equal(t, int64(8453), chains[0].ChainID)
	assert.Empty(t, chains[0].WS)

	assert.Equal(t, "polygon", chains[1].Key)
	assert.Equal(t, "Polygon", chains[1].Name)
	assert.Equal(t, "wss://polygon.example", chains[1].WS)
	assert.Equal(t, common.HexToAddress("0x688C027B0f7FaCeBA4e1b1D4D1D6D4F7C1aC3d5E"), chains[1].Contract)
}

func TestChains_InvalidChainID(t *testing.T) {
	cfg := New(mapGetter{
		"chains": {
			"broken": map[string]interface{}{
				"name":     "Broken",
				"chain_id": -1,
				"contract": "0x688C027B0f7FaCeBA4e1b1D4D1D6D4F7C1aC3d5E",
				"rpc":      "https://broken.example",
			},
		},
	})

	assert.Panics(t, func() { cfg.Chains() })
}

func TestIndexer_Defaults(t *testing.T) {
	idx := New(mapGetter{}).Indexer()

	assert.Equal(t, defaultRequestTimeout, idx.RequestTimeout)
	assert.Equal(t, defaultSweepPeriod, idx.SweepPeriod)
	assert.Equal(t, uint64(defaultSweepBlocks), idx.SweepBlocks)
	assert.Equal(t, defaultRPCRate, idx.RPCRate)
	assert.Equal(t, time.Second, idx.MinBackoff)
	assert.Equal(t, time.Minute, idx.MaxBackoff)
}

func TestIndexer_Overrides(t *testing.T) {
	idx := New(mapGetter{
		"indexer": {
			"sweep_period": "5m",
			"sweep_blocks": 100,
			"min_backoff":  "2s",
			"max_backoff":  "1s",
		},
	}).Indexer()

	assert.Equal(t, 5*time.Minute, idx.SweepPeriod)
	assert.Equal(t, uint64(100), idx.SweepBlocks)
	assert.Equal(t, 2*time.Second, idx.MinBackoff)
	assert.Equal(t, time.Minute, idx.MaxBackoff)
}

func TestUserGate_NoEndpoint(t *testing.T) {
	assert.Nil(t, New(mapGetter{}).UserGate().Users)
}

func TestUserGate_Endpoint(t *testing.T) {
	gate := New(mapGetter{"user_gate": {"endpoint": "http://users.local/v1/"}}).UserGate()
	assert.NotNil(t, gate.Users)
}
