package service

import (
	"context"
	"time"

	"github.com/Swapica/twap-indexer-svc/internal/config"
	"github.com/Swapica/twap-indexer-svc/internal/gobind"
	"github.com/ethereum/go-ethereum/ethclient"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

const dialTimeout = 15 * time.Second

// Dialer opens a node connection for the given endpoint URL.
type Dialer func(ctx context.Context, rawurl string) (gobind.Backend, error)

func DialEthereum(ctx context.Context, rawurl string) (gobind.Backend, error) {
	client, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Connection is the runtime state of a monitored chain: a streaming binding used for
// log subscriptions and a request/response one used for queries, both bound to the
// same contract.
type Connection struct {
	Chain  config.Chain
	Stream *gobind.TWAP
	Reader *gobind.TWAP

	streamClient gobind.Backend
	readerClient gobind.Backend
}

// Manager owns the connections of all chains that could be initialized. It is built once
// and read-only afterwards.
type Manager struct {
	log   *logan.Entry
	conns map[string]*Connection
	keys  []string
}

func NewManager(ctx context.Context, log *logan.Entry, chains []config.Chain, dial Dialer) *Manager {
	m := &Manager{
		log:   log,
		conns: make(map[string]*Connection, len(chains)),
	}

	for _, chain := range chains {
		log := log.WithFields(logan.F{"chain": chain.Key, "chain_id": chain.ChainID})
		if chain.WS == "" {
			log.Warn("no websocket endpoint configured, chain is not monitored")
			continue
		}

		conn, err := connect(ctx, chain, dial)
		if err != nil {
			log.WithError(err).Error("failed to initialize chain connection")
			continue
		}

		m.conns[chain.Key] = conn
		m.keys = append(m.keys, chain.Key)
		log.WithField("contract", chain.Contract.Hex()).Info("chain connection initialized")
	}

	return m
}

func connect(ctx context.Context, chain config.Chain, dial Dialer) (*Connection, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	streamClient, err := dial(ctx, chain.WS)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to websocket provider")
	}
	readerClient, err := dial(ctx, chain.RPC)
	if err != nil {
		closeBackend(streamClient)
		return nil, errors.Wrap(err, "failed to connect to RPC provider")
	}

	conn := &Connection{
		Chain:        chain,
		streamClient: streamClient,
		readerClient: readerClient,
	}
	if conn.Stream, err = gobind.NewTWAP(chain.Contract, streamClient); err == nil {
		conn.Reader, err = gobind.NewTWAP(chain.Contract, readerClient)
	}
	if err != nil {
		conn.close()
		return nil, errors.Wrap(err, "failed to create contract binding")
	}

	return conn, nil
}

func (m *Manager) Get(key string) (*Connection, bool) {
	conn, ok := m.conns[key]
	return conn, ok
}

// Keys returns the chains with an initialized connection in registry order.
func (m *Manager) Keys() []string {
	return append([]string(nil), m.keys...)
}

func (m *Manager) Close() {
	for _, key := range m.keys {
		m.conns[key].close()
	}
}

func (c *Connection) close() {
	closeBackend(c.streamClient)
	closeBackend(c.readerClient)
}

func closeBackend(b gobind.Backend) {
	if c, ok := b.(interface{ Close() }); ok {
		c.Close()
	}
}
