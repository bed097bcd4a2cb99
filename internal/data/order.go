package data

import (
	"context"
	"time"

	"gitlab.com/distributed_lab/kit/pgdb"
)

type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "OPEN"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCanceled
}

// OrderKey identifies an order: ids are assigned by the contract, so they are unique per chain only.
type OrderKey struct {
	ChainID int64
	OrderID uint64
}

type OrdersQ interface {
	New() OrdersQ

	// Insert stores a new open order. It reports false if the order already exists.
	Insert(ctx context.Context, order Order) (bool, error)
	// ApplyFill appends the fill and overwrites the cumulative filled amount, but only
	// for an open order that has no fill with the same tx hash yet. On success it
	// returns the order's total source amount.
	ApplyFill(ctx context.Context, key OrderKey, fill Fill, totalFilled string) (srcAmount string, applied bool, err error)
	// SetPercentFilled persists percent only while the filled amount is still totalFilled.
	SetPercentFilled(ctx context.Context, key OrderKey, totalFilled string, percent int) (bool, error)
	// Complete and Cancel move an open order to a terminal status.
	Complete(ctx context.Context, key OrderKey, at time.Time) (bool, error)
	Cancel(ctx context.Context, key OrderKey, at time.Time) (bool, error)

	Get(ctx context.Context, key OrderKey) (*Order, error)
	CountByMaker(ctx context.Context, maker string) (uint64, error)
	// SelectByMaker returns a page of orders with their fills, newest first. The page
	// number of params is 0-based.
	SelectByMaker(ctx context.Context, maker string, params pgdb.OffsetPageParams) ([]Order, error)
}

type Order struct {
	ID        int64  `db:"id" structs:"-" json:"-"`
	OrderID   uint64 `db:"order_id" structs:"order_id" json:"orderId"`
	ChainID   int64  `db:"chain_id" structs:"chain_id" json:"chainId"`
	ChainName string `db:"chain_name" structs:"chain_name" json:"chainName"`
	Maker     string `db:"maker" structs:"maker" json:"maker"`
	Exchange  string `db:"exchange" structs:"exchange" json:"exchange"`

	SrcToken     string `db:"src_token" structs:"src_token" json:"srcToken"`
	DstToken     string `db:"dst_token" structs:"dst_token" json:"dstToken"`
	SrcAmount    string `db:"src_amount" structs:"src_amount" json:"srcAmount"`
	SrcBidAmount string `db:"src_bid_amount" structs:"src_bid_amount" json:"srcBidAmount"`
	DstMinAmount string `db:"dst_min_amount" structs:"dst_min_amount" json:"dstMinAmount"`
	Deadline     int64  `db:"deadline" structs:"deadline" json:"deadline"`
	BidDelay     int64  `db:"bid_delay" structs:"bid_delay" json:"bidDelay"`
	FillDelay    int64  `db:"fill_delay" structs:"fill_delay" json:"fillDelay"`

	Status            OrderStatus `db:"status" structs:"status" json:"status"`
	TotalFilledAmount string      `db:"total_filled_amount" structs:"total_filled_amount" json:"totalFilledAmount"`
	PercentFilled     int         `db:"percent_filled" structs:"percent_filled" json:"percentFilled"`
	Fills             []Fill      `db:"-" structs:"-" json:"fills"`

	TxHashCreated string    `db:"tx_hash_created" structs:"tx_hash_created" json:"txHashCreated"`
	CreatedAt     time.Time `db:"created_at" structs:"created_at,omitnested" json:"createdAt"`
	LastUpdated   time.Time `db:"last_updated" structs:"last_updated,omitnested" json:"lastUpdated"`
}

func (o Order) Key() OrderKey {
	return OrderKey{ChainID: o.ChainID, OrderID: o.OrderID}
}

type Fill struct {
	ID           int64     `db:"id" structs:"-" json:"-"`
	OrderPK      int64     `db:"order_pk" structs:"-" json:"-"`
	TxHash       string    `db:"tx_hash" structs:"tx_hash" json:"txHash"`
	LogIndex     uint      `db:"log_index" structs:"log_index" json:"logIndex"`
	Taker        string    `db:"taker" structs:"taker" json:"taker"`
	SrcAmountIn  string    `db:"src_amount_in" structs:"src_amount_in" json:"srcAmountIn"`
	DstAmountOut string    `db:"dst_amount_out" structs:"dst_amount_out" json:"dstAmountOut"`
	DstFee       string    `db:"dst_fee" structs:"dst_fee" json:"dstFee"`
	Timestamp    time.Time `db:"timestamp" structs:"timestamp,omitnested" json:"timestamp"`
}
