package data

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/distributed_lab/kit/pgdb"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

const DefaultPageLimit uint64 = 10

var ErrInvalidAddress = errors.New("invalid address")

type Pagination struct {
	CurrentPage uint64 `json:"currentPage"`
	TotalPages  uint64 `json:"totalPages"`
	TotalItems  uint64 `json:"totalItems"`
	HasNextPage bool   `json:"hasNextPage"`
	HasPrevPage bool   `json:"hasPrevPage"`
}

type OrdersPage struct {
	Data       []Order    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// PageCount is the number of pages of size limit needed for total items.
func PageCount(total, limit uint64) uint64 {
	if limit == 0 {
		return 0
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}

// NewPagination describes page (1-based) of size limit over total items.
func NewPagination(page, limit, total uint64) Pagination {
	pages := PageCount(total, limit)
	return Pagination{
		CurrentPage: page,
		TotalPages:  pages,
		TotalItems:  total,
		HasNextPage: page < pages,
		HasPrevPage: page > 1,
	}
}

func normalizePage(page, limit uint64) (uint64, uint64) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}
	return page, limit
}

// GetOrders returns a page of the maker's orders, newest first. An empty result is an empty page.
func GetOrders(ctx context.Context, q OrdersQ, maker string, page, limit uint64) (OrdersPage, error) {
	if !common.IsHexAddress(maker) {
		return OrdersPage{}, errors.From(ErrInvalidAddress, logan.F{"maker": maker})
	}
	maker = common.HexToAddress(maker).Hex()
	page, limit = normalizePage(page, limit)

	total, err := q.CountByMaker(ctx, maker)
	if err != nil {
		return OrdersPage{}, errors.Wrap(err, "failed to count orders")
	}

	orders := []Order{}
	// pages past the last one are empty; checking first keeps the offset from overflowing
	if page <= PageCount(total, limit) {
		orders, err = q.SelectByMaker(ctx, maker, pgdb.OffsetPageParams{
			Limit:      limit,
			Order:      pgdb.OrderTypeDesc,
			PageNumber: page - 1,
		})
		if err != nil {
			return OrdersPage{}, errors.Wrap(err, "failed to select orders")
		}
	}

	return OrdersPage{
		Data:       orders,
		Pagination: NewPagination(page, limit, total),
	}, nil
}
