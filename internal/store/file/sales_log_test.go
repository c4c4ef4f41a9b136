package file

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

func TestSalesLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales_log.csv")
	l := NewSalesLog(path)
	ctx := context.Background()
	run := domain.RunInfo{ID: "run-1"}
	at := time.Date(2025, 3, 31, 15, 0, 0, 0, time.UTC)

	sell := &domain.SellInstruction{
		Symbol: "AAPL", Quantity: 3, CurrentPrice: 92, CostBasis: 100, Highest: 110,
		Drawdown: 0.163636, PL: -0.08, Reason: domain.ReasonTrailingStop,
	}
	require.NoError(t, l.OrderPlaced(ctx, run, domain.OrderReport{
		Result: domain.OrderResult{OrderID: "o-1", Success: true, SubmittedAt: at},
		Sell:   sell,
	}))
	// Failed sells and buys are not logged.
	require.NoError(t, l.OrderPlaced(ctx, run, domain.OrderReport{Result: domain.OrderResult{Success: false}, Sell: sell}))
	require.NoError(t, l.OrderPlaced(ctx, run, domain.OrderReport{
		Result: domain.OrderResult{Success: true},
		Buy:    &domain.BuyInstruction{Symbol: "NVDA", Quantity: 1},
	}))
	require.NoError(t, l.OrderPlaced(ctx, run, domain.OrderReport{
		Result: domain.OrderResult{OrderID: "o-2", Success: true, Price: 51.5, SubmittedAt: at},
		Sell:   &domain.SellInstruction{Symbol: "TSLA", Quantity: 1, CurrentPrice: 50, Reason: domain.ReasonTakeProfit},
	}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, salesHeader, rows[0])
	assert.Equal(t, []string{
		"2025-03-31T15:00:00Z", "run-1", "o-1", "AAPL", "3", "92.00",
		"100.00", "110.00", "16.36", "-8.00", "trailing_stop",
	}, rows[1])
	assert.Equal(t, "51.50", rows[2][5], "fill price wins over the quoted price")
}
