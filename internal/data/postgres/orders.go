package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/Swapica/twap-indexer-svc/internal/data"
	"github.com/fatih/structs"
	"gitlab.com/distributed_lab/kit/pgdb"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

const (
	ordersTable = "orders"
	fillsTable  = "order_fills"
)

// applyFillQuery updates the order and appends the fill in one statement. The unique
// (order_pk, tx_hash) index settles concurrent deliveries of the same fill: the loser
// inserts nothing and gets no row back.
const applyFillQuery = `
WITH target AS (
	UPDATE orders SET total_filled_amount = $3, last_updated = $4
	WHERE chain_id = $1 AND order_id = $2 AND status = 'OPEN'
		AND NOT EXISTS (SELECT 1 FROM order_fills f WHERE f.order_pk = orders.id AND f.tx_hash = $5)
	RETURNING id, src_amount
), fill AS (
	INSERT INTO order_fills (order_pk, tx_hash, log_index, taker, src_amount_in, dst_amount_out, dst_fee, timestamp)
	SELECT id, $5, $6, $7, $8, $9, $10, $4 FROM target
	ON CONFLICT (order_pk, tx_hash) DO NOTHING
	RETURNING order_pk
)
SELECT target.src_amount FROM target JOIN fill ON fill.order_pk = target.id`

type ordersQ struct {
	db *pgdb.DB
}

func NewOrdersQ(db *pgdb.DB) data.OrdersQ {
	return &ordersQ{db: db}
}

func (q *ordersQ) New() data.OrdersQ {
	return NewOrdersQ(q.db.Clone())
}

func (q *ordersQ) Insert(ctx context.Context, order data.Order) (bool, error) {
	stmt := squirrel.Insert(ordersTable).
		SetMap(structs.Map(order)).
		Suffix("ON CONFLICT (chain_id, order_id) DO NOTHING RETURNING id")

	var id int64
	err := q.db.GetContext(ctx, &id, stmt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to insert order")
	}
	return true, nil
}

func (q *ordersQ) ApplyFill(ctx context.Context, key data.OrderKey, fill data.Fill, totalFilled string) (string, bool, error) {
	stmt := squirrel.Expr(applyFillQuery,
		key.ChainID, key.OrderID, totalFilled, fill.Timestamp, fill.TxHash,
		fill.LogIndex, fill.Taker, fill.SrcAmountIn, fill.DstAmountOut, fill.DstFee)

	var srcAmount string
	err := q.db.GetContext(ctx, &srcAmount, stmt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "failed to apply fill")
	}
	return srcAmount, true, nil
}

func (q *ordersQ) SetPercentFilled(ctx context.Context, key data.OrderKey, totalFilled string, percent int) (bool, error) {
	stmt := squirrel.Update(ordersTable).
		Set("percent_filled", percent).
		Where(byKey(key)).
		Where(squirrel.Eq{"status": data.OrderStatusOpen, "total_filled_amount": totalFilled})

	applied, err := q.returning(ctx, stmt)
	return applied, errors.Wrap(err, "failed to set percent filled")
}

func (q *ordersQ) Complete(ctx context.Context, key data.OrderKey, at time.Time) (bool, error) {
	stmt := squirrel.Update(ordersTable).
		SetMap(map[string]interface{}{
			"status":         data.OrderStatusCompleted,
			"percent_filled": 100,
			"last_updated":   at,
		}).
		Where(byKey(key)).
		Where(squirrel.Eq{"status": data.OrderStatusOpen})

	applied, err := q.returning(ctx, stmt)
	return applied, errors.Wrap(err, "failed to complete order")
}

func (q *ordersQ) Cancel(ctx context.Context, key data.OrderKey, at time.Time) (bool, error) {
	stmt := squirrel.Update(ordersTable).
		SetMap(map[string]interface{}{
			"status":       data.OrderStatusCanceled,
			"last_updated": at,
		}).
		Where(byKey(key)).
		Where(squirrel.Eq{"status": data.OrderStatusOpen})

	applied, err := q.returning(ctx, stmt)
	return applied, errors.Wrap(err, "failed to cancel order")
}

func (q *ordersQ) Get(ctx context.Context, key data.OrderKey) (*data.Order, error) {
	var result data.Order
	err := q.db.GetContext(ctx, &result, squirrel.Select("*").From(ordersTable).Where(byKey(key)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get order")
	}

	orders := []data.Order{result}
	if err = q.loadFills(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (q *ordersQ) CountByMaker(ctx context.Context, maker string) (uint64, error) {
	var count uint64
	stmt := squirrel.Select("COUNT(*)").From(ordersTable).Where(squirrel.Eq{"maker": maker})
	err := q.db.GetContext(ctx, &count, stmt)
	return count, errors.Wrap(err, "failed to count orders")
}

func (q *ordersQ) SelectByMaker(ctx context.Context, maker string, params pgdb.OffsetPageParams) ([]data.Order, error) {
	stmt := params.ApplyTo(squirrel.Select("*").From(ordersTable).Where(squirrel.Eq{"maker": maker}),
		"created_at", "id")

	result := []data.Order{}
	if err := q.db.SelectContext(ctx, &result, stmt); err != nil {
		return nil, errors.Wrap(err, "failed to select orders")
	}

	err := q.loadFills(ctx, result)
	return result, err
}

func (q *ordersQ) loadFills(ctx context.Context, orders []data.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byPK := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byPK[o.ID] = i
	}

	var fills []data.Fill
	stmt := squirrel.Select("*").From(fillsTable).Where(squirrel.Eq{"order_pk": ids}).OrderBy("id")
	if err := q.db.SelectContext(ctx, &fills, stmt); err != nil {
		return errors.Wrap(err, "failed to select fills")
	}

	for _, f := range fills {
		i := byPK[f.OrderPK]
		orders[i].Fills = append(orders[i].Fills, f)
	}
	return nil
}

// returning runs the update and reports whether it matched a row.
func (q *ordersQ) returning(ctx context.Context, stmt squirrel.UpdateBuilder) (bool, error) {
	var id int64
	err := q.db.GetContext(ctx, &id, stmt.Suffix("RETURNING id"))
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func byKey(key data.OrderKey) squirrel.Eq {
	return squirrel.Eq{"chain_id": key.ChainID, "order_id": key.OrderID}
}
