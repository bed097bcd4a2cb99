package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/Swapica/twap-indexer-svc/internal/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOrders(t *testing.T) {
	page := data.OrdersPage{
		Data: []data.Order{{
			OrderID:           7,
			ChainName:         "Alpha",
			Status:            data.OrderStatusOpen,
			PercentFilled:     40,
			TotalFilledAmount: "400",
			SrcAmount:         "1000",
			Fills:             []data.Fill{{TxHash: "0xaa"}},
			CreatedAt:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}},
		Pagination: data.NewPagination(1, 10, 1),
	}

	var out bytes.Buffer
	require.NoError(t, renderOrders(&out, page))

	rendered := out.String()
	for _, cell := range []string{"Alpha", "OPEN", "400", "1000", "2026-03-01 12:00:00"} {
		assert.Contains(t, rendered, cell)
	}
	assert.Contains(t, rendered, "page 1 of 1, 1 orders, next: false, prev: false")
}

func TestRenderOrders_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, renderOrders(&out, data.OrdersPage{Data: []data.Order{}, Pagination: data.NewPagination(3, 10, 0)}))
	assert.Contains(t, out.String(), "page 3 of 0, 0 orders, next: false, prev: true")
}
