package service

import (
	"context"
	"sync"
	"testing"

	"github.com/Swapica/twap-indexer-svc/internal/config"
	"github.com/Swapica/twap-indexer-svc/internal/gobind"
	"github.com/Swapica/twap-indexer-svc/internal/gobind/gobindtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

type closingBackend struct {
	*gobindtest.Backend
	closed int
}

func (b *closingBackend) Close() {
	b.closed++
}

type recordingDialer struct {
	mu       sync.Mutex
	dialed   []string
	failing  map[string]bool
	backends map[string]*closingBackend
}

func newRecordingDialer(failing ...string) *recordingDialer {
	d := &recordingDialer{failing: make(map[string]bool), backends: make(map[string]*closingBackend)}
	for _, url := range failing {
		d.failing[url] = true
	}
	return d
}

func (d *recordingDialer) dial(_ context.Context, url string) (gobind.Backend, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialed = append(d.dialed, url)
	if d.failing[url] {
		return nil, errors.New("dial tcp: connection refused")
	}
	b := &closingBackend{Backend: gobindtest.NewBackend()}
	d.backends[url] = b
	return b, nil
}

func testChain(key string, chainID int64, ws string) config.Chain {
	return config.Chain{
		Key:      key,
		Name:     key,
		ChainID:  chainID,
		Contract: contract,
		RPC:      "http://" + key,
		WS:       ws,
	}
}

func TestManager(t *testing.T) {
	dialer := newRecordingDialer("ws://gamma")
	chains := []config.Chain{
		testChain("alpha", 1, "ws://alpha"),
		testChain("beta", 2, ""),
		testChain("gamma", 3, "ws://gamma"),
		testChain("delta", 4, "ws://delta"),
	}

	m := NewManager(context.Background(), logan.New(), chains, dialer.dial)
	assert.Equal(t, []string{"alpha", "delta"}, m.Keys())
	assert.NotContains(t, dialer.dialed, "http://beta")

	conn, ok := m.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, chains[0], conn.Chain)
	assert.Equal(t, contract, conn.Stream.Address())
	assert.Equal(t, contract, conn.Reader.Address())

	_, ok = m.Get("beta")
	assert.False(t, ok)
	_, ok = m.Get("gamma")
	assert.False(t, ok)

	keys := m.Keys()
	keys[0] = "mutated"
	assert.Equal(t, []string{"alpha", "delta"}, m.Keys())

	m.Close()
	for _, url := range []string{"ws://alpha", "http://alpha", "ws://delta", "http://delta"} {
		assert.Equal(t, 1, dialer.backends[url].closed, url)
	}
}

func TestManager_RPCFailureClosesStream(t *testing.T) {
	dialer := newRecordingDialer("http://alpha")

	m := NewManager(context.Background(), logan.New(), []config.Chain{testChain("alpha", 1, "ws://alpha")}, dialer.dial)
	assert.Empty(t, m.Keys())
	assert.Equal(t, 1, dialer.backends["ws://alpha"].closed)
}

func TestManager_Empty(t *testing.T) {
	m := NewManager(context.Background(), logan.New(), nil, newRecordingDialer().dial)
	assert.Empty(t, m.Keys())
	m.Close()
}
