package service

import (
	"context"

	"github.com/Swapica/twap-indexer-svc/internal/config"
	"github.com/Swapica/twap-indexer-svc/internal/gobind"
	"github.com/ethereum/go-ethereum/core/types"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

type Handler func(ctx context.Context, chain config.Chain, contract *gobind.TWAP, log types.Log) error

func (p *projector) handlers() map[string]Handler {
	return map[string]Handler{
		gobind.EventOrderCreated:   p.handleOrderCreated,
		gobind.EventOrderFilled:    p.handleOrderFilled,
		gobind.EventOrderCompleted: p.handleOrderCompleted,
		gobind.EventOrderCanceled:  p.handleOrderCanceled,
	}
}

func (p *projector) handleOrderCreated(ctx context.Context, chain config.Chain, contract *gobind.TWAP, log types.Log) error {
	event, err := contract.ParseOrderCreated(log)
	if err != nil {
		return err
	}

	err = p.createOrder(ctx, chain, event)
	return errors.Wrap(err, "failed to index order")
}

func (p *projector) handleOrderFilled(ctx context.Context, chain config.Chain, contract *gobind.TWAP, log types.Log) error {
	event, err := contract.ParseOrderFilled(log)
	if err != nil {
		return err
	}

	err = p.fillOrder(ctx, chain, event)
	return errors.Wrap(err, "failed to index fill")
}

func (p *projector) handleOrderCompleted(ctx context.Context, chain config.Chain, contract *gobind.TWAP, log types.Log) error {
	event, err := contract.ParseOrderCompleted(log)
	if err != nil {
		return err
	}

	_, err = p.completeOrder(ctx, chain, event.Id)
	return errors.Wrap(err, "failed to index completion")
}

func (p *projector) handleOrderCanceled(ctx context.Context, chain config.Chain, contract *gobind.TWAP, log types.Log) error {
	event, err := contract.ParseOrderCanceled(log)
	if err != nil {
		return err
	}

	err = p.cancelOrder(ctx, chain, event.Id)
	return errors.Wrap(err, "failed to index cancellation")
}
