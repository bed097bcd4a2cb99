package service

import (
	"context"
	"math/big"
	"time"

	"github.com/Swapica/twap-indexer-svc/internal/config"
	"github.com/Swapica/twap-indexer-svc/internal/data"
	"github.com/Swapica/twap-indexer-svc/internal/gobind"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

// projector applies contract events to the order projection. Every write is a
// conditional single-order update, so any event may be applied any number of times.
type projector struct {
	log    *logan.Entry
	orders data.OrdersQ
	users  data.UsersQ
	now    func() time.Time
}

func newProjector(log *logan.Entry, orders data.OrdersQ, users data.UsersQ) *projector {
	return &projector{
		log:    log,
		orders: orders,
		users:  users,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (p *projector) createOrder(ctx context.Context, chain config.Chain, evt *gobind.TWAPOrderCreated) error {
	log := p.log.WithFields(logan.F{"chain": chain.Key, "order_id": evt.Id, "maker": evt.Maker.Hex()})

	known, err := p.users.Exists(ctx, evt.Maker)
	if err != nil {
		return errors.Wrap(err, "failed to check maker")
	}
	if !known {
		log.Debug("maker is not a user, skipping order")
		return nil
	}

	now := p.now()
	ask := evt.Ask
	order := data.Order{
		OrderID:           evt.Id,
		ChainID:           chain.ChainID,
		ChainName:         chain.Name,
		Maker:             evt.Maker.Hex(),
		Exchange:          evt.Exchange.Hex(),
		SrcToken:          ask.SrcToken.Hex(),
		DstToken:          ask.DstToken.Hex(),
		SrcAmount:         amount(ask.SrcAmount),
		SrcBidAmount:      amount(ask.SrcBidAmount),
		DstMinAmount:      amount(ask.DstMinAmount),
		Deadline:          int64(ask.Deadline),
		BidDelay:          int64(ask.BidDelay),
		FillDelay:         int64(ask.FillDelay),
		Status:            data.OrderStatusOpen,
		TotalFilledAmount: "0",
		PercentFilled:     0,
		TxHashCreated:     evt.Raw.TxHash.Hex(),
		CreatedAt:         now,
		LastUpdated:       now,
	}

	created, err := p.orders.New().Insert(ctx, order)
	if err != nil {
		return errors.Wrap(err, "failed to insert order")
	}
	if !created {
		log.Debug("order already exists, skipping it")
		return nil
	}

	log.Info("order created")
	return nil
}

func (p *projector) fillOrder(ctx context.Context, chain config.Chain, evt *gobind.TWAPOrderFilled) error {
	key := data.OrderKey{ChainID: chain.ChainID, OrderID: evt.Id}
	log := p.log.WithFields(logan.F{"chain": chain.Key, "order_id": evt.Id, "tx_hash": evt.Raw.TxHash.Hex()})

	fill := data.Fill{
		TxHash:       evt.Raw.TxHash.Hex(),
		LogIndex:     evt.Raw.Index,
		Taker:        evt.Taker.Hex(),
		SrcAmountIn:  amount(evt.SrcAmountIn),
		DstAmountOut: amount(evt.DstAmountOut),
		DstFee:       amount(evt.DstFee),
		Timestamp:    p.now(),
	}
	// the contract reports the cumulative amount, it is never summed here
	total := amount(evt.SrcFilledAmount)

	q := p.orders.New()
	srcAmount, applied, err := q.ApplyFill(ctx, key, fill, total)
	if err != nil {
		return errors.Wrap(err, "failed to apply fill")
	}
	if !applied {
		log.Debug("fill already applied or order is not tracked, skipping it")
		return nil
	}

	percent, err := data.PercentFilled(total, srcAmount)
	if err != nil {
		return errors.Wrap(err, "failed to compute filled percent", logan.F{
			"total_filled": total,
			"src_amount":   srcAmount,
		})
	}
	if _, err = q.SetPercentFilled(ctx, key, total, percent); err != nil {
		return errors.Wrap(err, "failed to set filled percent")
	}

	log.WithFields(logan.F{"total_filled": total, "percent_filled": percent}).Info("order filled")
	return nil
}

func (p *projector) completeOrder(ctx context.Context, chain config.Chain, id uint64) (bool, error) {
	completed, err := p.orders.New().Complete(ctx, data.OrderKey{ChainID: chain.ChainID, OrderID: id}, p.now())
	if err != nil {
		return false, errors.Wrap(err, "failed to complete order")
	}

	log := p.log.WithFields(logan.F{"chain": chain.Key, "order_id": id})
	if !completed {
		log.Debug("order is not open or not tracked, skipping completion")
		return false, nil
	}
	log.Info("order completed")
	return true, nil
}

func (p *projector) cancelOrder(ctx context.Context, chain config.Chain, id uint64) error {
	canceled, err := p.orders.New().Cancel(ctx, data.OrderKey{ChainID: chain.ChainID, OrderID: id}, p.now())
	if err != nil {
		return errors.Wrap(err, "failed to cancel order")
	}

	log := p.log.WithFields(logan.F{"chain": chain.Key, "order_id": id})
	if !canceled {
		log.Debug("order is not open or not tracked, skipping cancellation")
		return nil
	}
	log.Info("order canceled")
	return nil
}

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
