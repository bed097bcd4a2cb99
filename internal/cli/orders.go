package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/Swapica/twap-indexer-svc/internal/config"
	"github.com/Swapica/twap-indexer-svc/internal/data"
	"github.com/Swapica/twap-indexer-svc/internal/data/postgres"
	"github.com/olekukonko/tablewriter"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

func ListOrders(ctx context.Context, cfg config.Config, out io.Writer, maker string, page, limit uint64) error {
	result, err := data.GetOrders(ctx, postgres.NewOrdersQ(cfg.DB()), maker, page, limit)
	if err != nil {
		return errors.Wrap(err, "failed to get orders")
	}
	return renderOrders(out, result)
}

func renderOrders(out io.Writer, result data.OrdersPage) error {
	table := tablewriter.NewWriter(out)
	table.Header("Chain", "Order", "Status", "Filled %", "Filled", "Amount", "Fills", "Created")
	for _, o := range result.Data {
		err := table.Append(
			o.ChainName,
			strconv.FormatUint(o.OrderID, 10),
			string(o.Status),
			strconv.Itoa(o.PercentFilled),
			o.TotalFilledAmount,
			o.SrcAmount,
			strconv.Itoa(len(o.Fills)),
			o.CreatedAt.Format("2006-01-02 15:04:05"),
		)
		if err != nil {
			return errors.Wrap(err, "failed to append row")
		}
	}
	if err := table.Render(); err != nil {
		return errors.Wrap(err, "failed to render orders")
	}

	p := result.Pagination
	_, err := fmt.Fprintf(out, "page %d of %d, %d orders, next: %t, prev: %t\n",
		p.CurrentPage, p.TotalPages, p.TotalItems, p.HasNextPage, p.HasPrevPage)
	return err
}
