package analysis

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func exampleTransactions() []Transaction { return ExampleTransactions() }

// laddered builds ten single-order customers whose recency and spend move
// in lockstep: the most recent customer spends the most.
func laddered() []Transaction {
	var out []Transaction
	for i := 1; i <= 10; i++ {
		out = append(out, Transaction{
			CustomerID:        "C" + string(rune('A'+i-1)),
			PurchaseDate:      asOf.AddDate(0, 0, -10*i),
			OrderID:           "O" + string(rune('A'+i-1)),
			TransactionAmount: float64(1100 - 100*i),
		})
	}
	return out
}

func scoreWith(t *testing.T, txns []Transaction) *Report {
	t.Helper()
	opt := DefaultOptions()
	opt.AsOf = asOf
	rep, err := Score(txns, opt)
	require.NoError(t, err)
	return rep
}

func TestScore_RequiresAsOf(t *testing.T) {
	_, err := Score(exampleTransactions(), DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoAsOf))
}

func TestScore_ExampleDataset(t *testing.T) {
	txns := exampleTransactions()
	rep := scoreWith(t, txns)

	require.Len(t, rep.Rows, len(txns))
	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, asOf, rep.AsOf)

	for i, row := range rep.Rows {
		assert.Equal(t, txns[i], row.Transaction, "row %d keeps its input", i)
	}

	assert.Equal(t, []int{144, 108, 92, 159, 134, 185, 78, 52, 30}, recencies(rep))
	assert.Equal(t, []int{2, 3, 4, 1, 2, 1, 4, 5, 5}, column(rep, func(r Row) int { return r.RecencyScore }))
	assert.Equal(t, []int{3, 2, 3, 2, 2, 1, 3, 2, 1}, column(rep, func(r Row) int { return r.FrequencyScore }))

	// monetary quantile edges collide at 620.75, so that metric is zero-filled
	assert.Equal(t, make([]int, 9), column(rep, func(r Row) int { return r.MonetaryScore }))
	require.Len(t, rep.Metrics, 3)
	assert.NoError(t, rep.Metrics[0].Err)
	assert.NoError(t, rep.Metrics[1].Err)
	var be *BinError
	assert.True(t, errors.As(rep.Metrics[2].Err, &be))
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "Monetary")

	assert.Equal(t, []int{5, 5, 7, 3, 4, 2, 7, 7, 6}, column(rep, func(r Row) int { return r.RFMScore }))
	assert.Equal(t, []string{
		SegmentAtRisk, SegmentAtRisk, SegmentPotentialLoyalists, SegmentLost, SegmentCantLose,
		SegmentLost, SegmentPotentialLoyalists, SegmentPotentialLoyalists, SegmentPotentialLoyalists,
	}, segments(rep))
	assert.Equal(t, []string{
		ValueMid, ValueMid, ValueHigh, ValueLow, ValueLow, ValueLow, ValueHigh, ValueHigh, ValueMid,
	}, valueSegments(rep))
}

func TestScore_CustomerAggregatesBroadcast(t *testing.T) {
	rep := scoreWith(t, exampleTransactions())
	for _, row := range rep.Rows {
		switch row.CustomerID {
		case "C001":
			assert.Equal(t, 3, row.Frequency)
			assert.InDelta(t, 620.75, row.MonetaryValue, 1e-9)
		case "C002":
			assert.Equal(t, 2, row.Frequency)
			assert.InDelta(t, 380.0, row.MonetaryValue, 1e-9)
		case "C004":
			assert.Equal(t, 1, row.Frequency)
			assert.InDelta(t, 275.5, row.MonetaryValue, 1e-9)
		}
	}
}

func TestScore_FrequencySkipsMissingOrderIDs(t *testing.T) {
	txns := []Transaction{
		{"C1", day("2023-09-01"), "O1", 10},
		{"C1", day("2023-09-02"), "", 5},
		{"C2", day("2023-09-03"), "O3", 7},
	}
	rep := scoreWith(t, txns)
	assert.Equal(t, 1, rep.Rows[0].Frequency)
	assert.Equal(t, 1, rep.Rows[1].Frequency)
	assert.InDelta(t, 15.0, rep.Rows[1].MonetaryValue, 1e-9)
}

func TestScore_Champions(t *testing.T) {
	rep := scoreWith(t, laddered())
	require.Empty(t, rep.Warnings)

	assert.Equal(t, []int{11, 11, 9, 9, 7, 7, 5, 5, 3, 3}, column(rep, func(r Row) int { return r.RFMScore }))
	for _, row := range rep.Rows {
		assert.Equal(t, 1, row.FrequencyScore, "single-order customers share one frequency bucket")
		assert.Equal(t, row.RecencyScore+row.FrequencyScore+row.MonetaryScore, row.RFMScore)
		assert.GreaterOrEqual(t, row.RFMScore, 3)
		assert.LessOrEqual(t, row.RFMScore, 15)
	}
	assert.Equal(t, ValueHigh, rep.Rows[0].ValueSegment)
	assert.Equal(t, ValueMid, rep.Rows[4].ValueSegment)
	assert.Equal(t, ValueLow, rep.Rows[9].ValueSegment)

	require.Len(t, rep.Champions, 4)
	for _, row := range rep.Champions {
		assert.Equal(t, SegmentChampions, row.CustomerSegment)
	}

	require.Len(t, rep.ChampionStats, 3)
	rs := rep.ChampionStats[0]
	assert.Equal(t, "RecencyScore", rs.Column)
	assert.Equal(t, 4, rs.Count)
	assert.InDelta(t, 4.0, rs.Min, 1e-9)
	assert.InDelta(t, 4.5, rs.Median, 1e-9)
	assert.InDelta(t, 5.0, rs.Max, 1e-9)

	corr := rep.ChampionCorr
	require.NotNil(t, corr)
	assert.Equal(t, ScoreColumns, corr.Columns)
	assert.InDelta(t, 1.0, corr.Values[0][0], 1e-9)
	assert.InDelta(t, 1.0, corr.Values[0][2], 1e-9)
	assert.InDelta(t, 1.0, corr.Values[2][0], 1e-9)
	assert.True(t, math.IsNaN(corr.Values[1][1]), "constant frequency has no correlation")
	assert.True(t, math.IsNaN(corr.Values[0][1]))
}

func TestScore_EmptyInput(t *testing.T) {
	rep := scoreWith(t, nil)
	assert.Empty(t, rep.Rows)
	assert.Empty(t, rep.Preview)
	// three metrics and the value segmentation all fail on an empty series
	assert.Len(t, rep.Warnings, 4)
	assert.Nil(t, rep.ValueSegmentCounts)
	assert.Empty(t, rep.Champions)
}

func TestScore_PreviewRows(t *testing.T) {
	opt := DefaultOptions()
	opt.AsOf = asOf
	opt.PreviewRows = 2
	rep, err := Score(exampleTransactions(), opt)
	require.NoError(t, err)
	require.Len(t, rep.Preview, 2)
	assert.Equal(t, "O001", rep.Preview[0].OrderID)

	opt.PreviewRows = 100
	rep, err = Score(exampleTransactions(), opt)
	require.NoError(t, err)
	assert.Len(t, rep.Preview, 9)
}

func TestScore_CustomBuckets(t *testing.T) {
	opt := DefaultOptions()
	opt.AsOf = asOf
	opt.Buckets = 2
	rep, err := Score(laddered(), opt)
	require.NoError(t, err)
	for _, row := range rep.Rows {
		assert.Contains(t, []int{1, 2}, row.RecencyScore)
		assert.Contains(t, []int{1, 2}, row.MonetaryScore)
	}
	assert.Equal(t, 2, rep.Rows[0].RecencyScore)
	assert.Equal(t, 1, rep.Rows[9].RecencyScore)
}

func TestRecencyDays(t *testing.T) {
	ref := time.Date(2023, 10, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, RecencyDays(ref, day("2023-09-30")))
	assert.Equal(t, 0, RecencyDays(ref, day("2023-10-01")))
	assert.Equal(t, -1, RecencyDays(ref, day("2023-10-02")))
	assert.Equal(t, 30, RecencyDays(asOf, day("2023-09-01")))
}

func TestWallClock(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*3600)
	got := WallClock(time.Date(2023, 10, 1, 20, 30, 0, 0, zone))
	assert.Equal(t, time.Date(2023, 10, 1, 20, 30, 0, 0, time.UTC), got)
}

func TestParseAsOf(t *testing.T) {
	got, err := ParseAsOf("2023-10-01")
	require.NoError(t, err)
	assert.Equal(t, asOf, got)

	got, err = ParseAsOf("2023-10-01T06:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, asOf.Add(6*time.Hour), got)

	_, err = ParseAsOf("01/10/2023")
	assert.Error(t, err)
}

func recencies(rep *Report) []int { return column(rep, func(r Row) int { return r.Recency }) }

func column(rep *Report, f func(Row) int) []int {
	out := make([]int, len(rep.Rows))
	for i, r := range rep.Rows {
		out[i] = f(r)
	}
	return out
}

func segments(rep *Report) []string {
	out := make([]string, len(rep.Rows))
	for i, r := range rep.Rows {
		out[i] = r.CustomerSegment
	}
	return out
}

func valueSegments(rep *Report) []string {
	out := make([]string, len(rep.Rows))
	for i, r := range rep.Rows {
		out[i] = r.ValueSegment
	}
	return out
}

func TestWriteTransactionsCSV(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, WriteTransactionsCSV(&buf, ExampleTransactions()[:2]))
	assert.Equal(t, "CustomerID,PurchaseDate,OrderID,TransactionAmount\n"+
		"C001,2023-05-10,O001,150.75\n"+
		"C002,2023-06-15,O002,200.00\n", buf.String())
}
