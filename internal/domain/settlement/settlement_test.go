package settlement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGrossProfit(t *testing.T) {
	tests := []struct {
		name   string
		avg    string
		cost   string
		volume int64
		want   string
	}{
		{"positive margin", "25.50", "10.25", 4, "61"},
		{"loss", "8", "10", 3, "-6"},
		{"zero volume", "8", "1", 0, "0"},
		{"fractional precision is kept", "0.1", "0.07", 3, "0.09"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GrossProfit(d(tt.avg), d(tt.cost), tt.volume)
			assert.True(t, d(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestProfitRate(t *testing.T) {
	assert.True(t, d("0.3333").Equal(ProfitRate(d("1"), d("3"))))
	assert.True(t, d("-0.5").Equal(ProfitRate(d("-5"), d("10"))))
	assert.True(t, ProfitRate(d("5"), decimal.Zero).IsZero(), "zero revenue has zero rate")
}

func TestNewRecord(t *testing.T) {
	user, store := uuid.New(), uuid.New()
	ordered := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	base := RecordInput{
		StoreID:   store,
		OrderNo:   " SO-1 ",
		SKU:       " SKU-A ",
		Volume:    2,
		AvgPrice:  d("19.9"),
		Currency:  "myr",
		OrderedAt: ordered,
	}

	t.Run("defaults to pending", func(t *testing.T) {
		r, err := NewRecord(user, base)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, r.Status)
		assert.Equal(t, "SO-1", r.OrderNo)
		assert.Equal(t, "SKU-A", r.SKU)
		assert.Equal(t, "MYR", r.Currency)
		assert.Nil(t, r.SettledAt)
		assert.True(t, d("39.8").Equal(r.Revenue()))
	})

	t.Run("arrived keeps the settlement time", func(t *testing.T) {
		in := base
		settled := ordered.Add(72 * time.Hour)
		in.Status = StatusArrived
		in.SettledAt = &settled
		r, err := NewRecord(user, in)
		require.NoError(t, err)
		assert.Equal(t, StatusArrived, r.Status)
		assert.Equal(t, settled, *r.SettledAt)
	})

	t.Run("validation", func(t *testing.T) {
		bad := []func(*RecordInput){
			func(in *RecordInput) { in.StoreID = uuid.Nil },
			func(in *RecordInput) { in.OrderNo = "" },
			func(in *RecordInput) { in.SKU = " " },
			func(in *RecordInput) { in.Volume = -1 },
			func(in *RecordInput) { in.AvgPrice = d("-1") },
			func(in *RecordInput) { in.OrderedAt = time.Time{} },
			func(in *RecordInput) { in.Status = "refunded" },
		}
		for i, mutate := range bad {
			in := base
			mutate(&in)
			_, err := NewRecord(user, in)
			assert.Error(t, err, "case %d", i)
		}
	})
}

func TestRecord_StatusOnlyMovesForward(t *testing.T) {
	r, err := NewRecord(uuid.New(), RecordInput{
		StoreID: uuid.New(), OrderNo: "1", SKU: "A", Volume: 1, AvgPrice: d("1"),
		Status: StatusArrived, OrderedAt: time.Now(),
	})
	require.NoError(t, err)

	assert.Error(t, r.MarkArrived(time.Now()))

	pending := *r
	pending.Status = StatusPending
	pending.AvgPrice = d("2")
	r.Merge(&pending)
	assert.Equal(t, StatusArrived, r.Status)
	assert.True(t, d("2").Equal(r.AvgPrice))
}

func TestRecord_MergeAdvancesPending(t *testing.T) {
	r := &Record{Status: StatusPending, Volume: 1, AvgPrice: d("1")}
	at := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	r.Merge(&Record{Status: StatusArrived, SettledAt: &at, Volume: 3, AvgPrice: d("1.5")})

	assert.Equal(t, StatusArrived, r.Status)
	assert.Equal(t, at, *r.SettledAt)
	assert.Equal(t, int64(3), r.Volume)
}

func TestBuildLinesAndSummarize(t *testing.T) {
	store := uuid.New()
	pending := &Record{StoreID: store, SKU: "A", Volume: 2, AvgPrice: d("10"), Status: StatusPending}
	arrived := &Record{StoreID: store, SKU: "B", Volume: 1, AvgPrice: d("30"), Status: StatusArrived}
	noCost := &Record{StoreID: store, SKU: "C", Volume: 5, AvgPrice: d("1"), Status: StatusPending}

	costs := map[CostKey]decimal.Decimal{
		{StoreID: store, SKU: "A"}: d("4"),
		{StoreID: store, SKU: "B"}: d("12"),
	}
	lines := BuildLines([]*Record{pending, arrived, noCost}, costs)
	require.Len(t, lines, 3)

	assert.True(t, d("12").Equal(lines[0].GrossProfit))
	assert.True(t, d("0.6").Equal(lines[0].ProfitRate))
	assert.False(t, lines[0].CostMissing)
	assert.True(t, lines[2].CostMissing)
	assert.True(t, d("5").Equal(lines[2].GrossProfit))

	s := Summarize(lines)
	assert.True(t, d("25").Equal(s.PendingRevenue))
	assert.True(t, d("30").Equal(s.ArrivedRevenue))
	assert.True(t, d("55").Equal(s.TotalRevenue))
	assert.True(t, d("20").Equal(s.TotalCost))
	assert.True(t, d("35").Equal(s.GrossProfit))
	assert.True(t, d("0.6364").Equal(s.ProfitRate))
	assert.Equal(t, int64(2), s.PendingCount)
	assert.Equal(t, int64(1), s.ArrivedCount)
	assert.Equal(t, int64(1), s.MissingCostCount)
}

func TestLine_Rounded(t *testing.T) {
	r := &Record{SKU: "A", Volume: 3, AvgPrice: d("1.005"), Status: StatusPending}
	cost := d("0.0001")
	l := NewLine(r, &cost)
	require.True(t, d("3.0147").Equal(l.GrossProfit), "got %s", l.GrossProfit)

	out := l.Rounded()
	assert.Equal(t, "3.01", out.GrossProfit.String())
	assert.Equal(t, "3.02", out.Revenue.String())
	assert.True(t, out.Cost.IsZero(), "got %s", out.Cost)
	assert.True(t, l.ProfitRate.Equal(out.ProfitRate))
	assert.True(t, d("3.0147").Equal(l.GrossProfit), "the line itself is unchanged")
}

func TestSummaryFromRows(t *testing.T) {
	s := SummaryFromRows([]SummaryRow{
		{Status: StatusPending, Revenue: d("100.005"), Cost: d("40"), Count: 3, MissingCost: 1},
		{Status: StatusArrived, Revenue: d("50"), Cost: d("10"), Count: 2},
	})
	assert.True(t, d("100.01").Equal(s.PendingRevenue))
	assert.True(t, d("150.01").Equal(s.TotalRevenue))
	assert.True(t, d("100.01").Equal(s.GrossProfit))
	assert.Equal(t, int64(5), s.PendingCount+s.ArrivedCount)

	assert.Equal(t, "", s.ByCurrency[0].Currency)

	empty := SummaryFromRows(nil)
	assert.True(t, empty.ProfitRate.IsZero())
	assert.Empty(t, empty.Currency)
	assert.NotNil(t, empty.ByCurrency)
}

func TestSummary_ByCurrency(t *testing.T) {
	t.Run("single currency is named", func(t *testing.T) {
		s := SummaryFromRows([]SummaryRow{
			{Status: StatusPending, Currency: "MYR", Revenue: d("10"), Cost: d("4"), Count: 1},
			{Status: StatusArrived, Currency: "MYR", Revenue: d("20"), Cost: d("5"), Count: 1},
		})
		assert.Equal(t, "MYR", s.Currency)
		require.Len(t, s.ByCurrency, 1)
		assert.True(t, d("30").Equal(s.ByCurrency[0].TotalRevenue))
		assert.True(t, s.TotalRevenue.Equal(s.ByCurrency[0].TotalRevenue))
	})

	t.Run("mixed currencies are kept apart", func(t *testing.T) {
		store := uuid.New()
		lines := BuildLines([]*Record{
			{StoreID: store, SKU: "A", Volume: 1, AvgPrice: d("100"), Currency: "THB", Status: StatusArrived},
			{StoreID: store, SKU: "B", Volume: 2, AvgPrice: d("5"), Currency: "MYR", Status: StatusPending},
			{StoreID: store, SKU: "B", Volume: 1, AvgPrice: d("5"), Currency: "MYR", Status: StatusArrived},
		}, map[CostKey]decimal.Decimal{{StoreID: store, SKU: "B"}: d("1")})
		s := Summarize(lines)

		assert.Empty(t, s.Currency, "no single currency to report in")
		require.Len(t, s.ByCurrency, 2)

		myr, thb := s.ByCurrency[0], s.ByCurrency[1]
		assert.Equal(t, "MYR", myr.Currency)
		assert.True(t, d("10").Equal(myr.PendingRevenue))
		assert.True(t, d("5").Equal(myr.ArrivedRevenue))
		assert.True(t, d("12").Equal(myr.GrossProfit))
		assert.True(t, d("0.8").Equal(myr.ProfitRate))

		assert.Equal(t, "THB", thb.Currency)
		assert.True(t, d("100").Equal(thb.TotalRevenue))
		assert.True(t, d("100").Equal(thb.GrossProfit))
		assert.Equal(t, int64(3), s.PendingCount+s.ArrivedCount)
	})
}

func TestNewCostPrice(t *testing.T) {
	cp, err := NewCostPrice(uuid.New(), uuid.New(), " A ", d("3.2"))
	require.NoError(t, err)
	assert.Equal(t, "A", cp.SKU)

	_, err = NewCostPrice(uuid.New(), uuid.Nil, "A", d("1"))
	assert.Error(t, err)
	_, err = NewCostPrice(uuid.New(), uuid.New(), "A", d("-1"))
	assert.Error(t, err)
}
