// Package memory keeps the order projection in process memory. Writes follow the
// same conditional rules as the postgres implementation, each one atomic under a lock.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Swapica/twap-indexer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/distributed_lab/kit/pgdb"
)

type orders struct {
	mu     *sync.Mutex
	rows   map[data.OrderKey]*data.Order
	lastID *int64
}

func NewOrdersQ() data.OrdersQ {
	var id int64
	return &orders{
		mu:     &sync.Mutex{},
		rows:   make(map[data.OrderKey]*data.Order),
		lastID: &id,
	}
}

func (q *orders) New() data.OrdersQ {
	return q
}

func (q *orders) Insert(_ context.Context, order data.Order) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.rows[order.Key()]; ok {
		return false, nil
	}
	*q.lastID++
	order.ID = *q.lastID
	order.Fills = nil
	q.rows[order.Key()] = &order
	return true, nil
}

func (q *orders) ApplyFill(_ context.Context, key data.OrderKey, fill data.Fill, totalFilled string) (string, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	o, ok := q.rows[key]
	if !ok || o.Status != data.OrderStatusOpen {
		return "", false, nil
	}
	for _, f := range o.Fills {
		if f.TxHash == fill.TxHash {
			return "", false, nil
		}
	}

	fill.OrderPK = o.ID
	o.Fills = append(o.Fills, fill)
	o.TotalFilledAmount = totalFilled
	o.LastUpdated = fill.Timestamp
	return o.SrcAmount, true, nil
}

func (q *orders) SetPercentFilled(_ context.Context, key data.OrderKey, totalFilled string, percent int) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	o, ok := q.rows[key]
	if !ok || o.Status != data.OrderStatusOpen || o.TotalFilledAmount != totalFilled {
		return false, nil
	}
	o.PercentFilled = percent
	return true, nil
}

func (q *orders) Complete(_ context.Context, key data.OrderKey, at time.Time) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	o, ok := q.rows[key]
	if !ok || o.Status != data.OrderStatusOpen {
		return false, nil
	}
	o.Status = data.OrderStatusCompleted
	o.PercentFilled = 100
	o.LastUpdated = at
	return true, nil
}

func (q *orders) Cancel(_ context.Context, key data.OrderKey, at time.Time) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	o, ok := q.rows[key]
	if !ok || o.Status != data.OrderStatusOpen {
		return false, nil
	}
	o.Status = data.OrderStatusCanceled
	o.LastUpdated = at
	return true, nil
}

func (q *orders) Get(_ context.Context, key data.OrderKey) (*data.Order, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	o, ok := q.rows[key]
	if !ok {
		return nil, nil
	}
	c := copyOrder(*o)
	return &c, nil
}

func (q *orders) CountByMaker(_ context.Context, maker string) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var n uint64
	for _, o := range q.rows {
		if sameAddress(o.Maker, maker) {
			n++
		}
	}
	return n, nil
}

func (q *orders) SelectByMaker(_ context.Context, maker string, params pgdb.OffsetPageParams) ([]data.Order, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var result []data.Order
	for _, o := range q.rows {
		if sameAddress(o.Maker, maker) {
			result = append(result, copyOrder(*o))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	n := uint64(len(result))
	if params.Limit == 0 || params.PageNumber >= data.PageCount(n, params.Limit) {
		return []data.Order{}, nil
	}
	offset := params.PageNumber * params.Limit
	end := n
	if n-offset > params.Limit {
		end = offset + params.Limit
	}
	return result[offset:end], nil
}

func copyOrder(o data.Order) data.Order {
	o.Fills = append([]data.Fill(nil), o.Fills...)
	return o
}

func sameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

type users struct {
	mu    sync.RWMutex
	known map[common.Address]struct{}
}

// NewUsersQ returns a user gate that knows exactly the given addresses.
func NewUsersQ(addresses ...common.Address) data.UsersQ {
	u := &users{known: make(map[common.Address]struct{}, len(addresses))}
	for _, a := range addresses {
		u.known[a] = struct{}{}
	}
	return u
}

func (u *users) Exists(_ context.Context, address common.Address) (bool, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.known[address]
	return ok, nil
}
