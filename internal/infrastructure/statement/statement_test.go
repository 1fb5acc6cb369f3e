package statement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	appsettlement "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/settlement"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/settlement"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleStatement() *appsettlement.Statement {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	storeA, storeB := uuid.New(), uuid.New()
	return &appsettlement.Statement{
		From:        &from,
		To:          &to,
		GeneratedAt: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC),
		Summary: settlement.Summary{
			ArrivedRevenue:   decimal.RequireFromString("120"),
			TotalRevenue:     decimal.RequireFromString("120"),
			TotalCost:        decimal.RequireFromString("80"),
			GrossProfit:      decimal.RequireFromString("40"),
			ProfitRate:       decimal.RequireFromString("0.3333"),
			ArrivedCount:     2,
			MissingCostCount: 1,
		},
		Lines: []appsettlement.LineInfo{
			{
				StoreID:     storeA,
				OrderNo:     "PO-1",
				SKU:         "SKU-<1>",
				Volume:      2,
				AvgPrice:    decimal.RequireFromString("40"),
				Currency:    "CNY",
				Status:      settlement.StatusArrived,
				OrderedAt:   from,
				CostPrice:   decimal.RequireFromString("40"),
				Revenue:     decimal.RequireFromString("80"),
				GrossProfit: decimal.RequireFromString("0"),
				ProfitRate:  decimal.Zero,
			},
			{
				StoreID:     storeB,
				OrderNo:     "PO-2",
				SKU:         "SKU-2",
				Volume:      1,
				AvgPrice:    decimal.RequireFromString("40"),
				Currency:    "CNY",
				Status:      settlement.StatusArrived,
				OrderedAt:   from.AddDate(0, 0, 3),
				CostMissing: true,
				Revenue:     decimal.RequireFromString("40"),
				GrossProfit: decimal.RequireFromString("40"),
				ProfitRate:  decimal.NewFromInt(1),
			},
		},
		StoreNames: map[uuid.UUID]string{storeA: "Flagship"},
	}
}

func TestHTML(t *testing.T) {
	st := sampleStatement()

	html, err := HTML(st)
	require.NoError(t, err)

	assert.Contains(t, html, "2026-03-01 to 2026-03-31")
	assert.Contains(t, html, "generated 2026-04-02")
	assert.Contains(t, html, "120.00")
	assert.Contains(t, html, "33.33%")
	assert.Contains(t, html, "1 without cost price")
	assert.Contains(t, html, "Flagship")
	assert.Contains(t, html, st.Lines[1].StoreID.String(), "unknown stores fall back to their id")
	assert.Contains(t, html, "SKU-&lt;1&gt;", "cell text is escaped")
	assert.NotContains(t, html, "SKU-<1>")
	assert.NotContains(t, html, "<th>Currency</th>")
}

func TestHTML_MixedCurrencies(t *testing.T) {
	st := sampleStatement()
	st.Summary.ByCurrency = []settlement.CurrencySummary{
		{Currency: "MYR", ArrivedRevenue: decimal.RequireFromString("20"), GrossProfit: decimal.RequireFromString("20"), ProfitRate: decimal.NewFromInt(1)},
		{Currency: "THB", ArrivedRevenue: decimal.RequireFromString("100"), TotalCost: decimal.RequireFromString("80"), GrossProfit: decimal.RequireFromString("20"), ProfitRate: decimal.RequireFromString("0.2")},
	}

	html, err := HTML(st)
	require.NoError(t, err)
	assert.Contains(t, html, "<th>Currency</th>")
	assert.Contains(t, html, "<td>MYR</td>")
	assert.Contains(t, html, "<td>THB</td>")
	assert.Contains(t, html, "20.00%")
}

func TestHTML_Empty(t *testing.T) {
	st := &appsettlement.Statement{
		GeneratedAt: time.Now(),
		Summary:     settlement.SummaryFromRows(nil),
	}

	html, err := HTML(st)
	require.NoError(t, err)
	assert.Contains(t, html, "- to -")
	assert.Contains(t, html, "No settlement records in this period.")
}

func TestNewChromeRenderer(t *testing.T) {
	t.Run("default timeout", func(t *testing.T) {
		r := NewChromeRenderer(config.StatementConfig{}, zap.NewNop())
		defer r.Close()
		assert.Equal(t, 30*time.Second, r.timeout)
		assert.NotNil(t, r.allocCtx)
	})

	t.Run("remote browser", func(t *testing.T) {
		r := NewChromeRenderer(config.StatementConfig{
			ChromeURL: "ws://127.0.0.1:9222",
			Timeout:   5 * time.Second,
		}, zap.NewNop())
		defer r.Close()
		assert.Equal(t, 5*time.Second, r.timeout)
	})

	t.Run("close releases the allocator", func(t *testing.T) {
		r := NewChromeRenderer(config.StatementConfig{NoSandbox: true}, zap.NewNop())
		r.Close()
		assert.ErrorIs(t, r.allocCtx.Err(), context.Canceled)
		r.Close()
	})
}
