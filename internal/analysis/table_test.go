package analysis

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentFor(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{15, SegmentChampions},
		{9, SegmentChampions},
		{8.99, SegmentPotentialLoyalists},
		{6, SegmentPotentialLoyalists},
		{5.5, SegmentAtRisk},
		{5, SegmentAtRisk},
		{4.5, SegmentCantLose},
		{4, SegmentCantLose},
		{3.99, SegmentLost},
		{0, SegmentLost},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SegmentFor(tc.score), "score %v", tc.score)
	}
}

func TestReportViews(t *testing.T) {
	rep := scoreWith(t, exampleTransactions())

	assert.Equal(t, []SegmentCount{
		{Segment: ValueLow, Count: 3},
		{Segment: ValueMid, Count: 3},
		{Segment: ValueHigh, Count: 3},
	}, rep.ValueSegmentCounts)

	assert.Equal(t, []SegmentPair{
		{ValueSegment: ValueLow, CustomerSegment: SegmentCantLose, Count: 1},
		{ValueSegment: ValueLow, CustomerSegment: SegmentLost, Count: 2},
		{ValueSegment: ValueMid, CustomerSegment: SegmentAtRisk, Count: 2},
		{ValueSegment: ValueMid, CustomerSegment: SegmentPotentialLoyalists, Count: 1},
		{ValueSegment: ValueHigh, CustomerSegment: SegmentPotentialLoyalists, Count: 3},
	}, rep.SegmentBreakdown)

	require.Len(t, rep.SegmentScores, 4)
	names := []string{}
	for _, s := range rep.SegmentScores {
		names = append(names, s.Segment)
	}
	assert.Equal(t, []string{SegmentAtRisk, SegmentCantLose, SegmentLost, SegmentPotentialLoyalists}, names)
	pl := rep.SegmentScores[3]
	assert.Equal(t, 4, pl.Count)
	assert.InDelta(t, 4.5, pl.Recency, 1e-9)
	assert.InDelta(t, 2.25, pl.Frequency, 1e-9)
	assert.InDelta(t, 0.0, pl.Monetary, 1e-9)

	assert.Equal(t, []SegmentCount{
		{Segment: SegmentAtRisk, Count: 2},
		{Segment: SegmentCantLose, Count: 1},
		{Segment: SegmentLost, Count: 2},
		{Segment: SegmentPotentialLoyalists, Count: 4},
	}, rep.CustomerCounts)

	assert.Empty(t, rep.Champions)
	require.NotNil(t, rep.ChampionCorr)
	for _, row := range rep.ChampionCorr.Values {
		for _, v := range row {
			assert.True(t, v != v, "empty champions give an undefined matrix")
		}
	}
}

func TestReportMarkdown(t *testing.T) {
	rep := scoreWith(t, exampleTransactions())
	rep.Name = "purchases.csv"
	md := rep.Markdown()

	for _, want := range []string{
		"[RFM SUMMARY]",
		"File: purchases.csv",
		"Rows: 9",
		"Customers: 5",
		"[DATA PREVIEW]",
		"| C001 | 2023-05-10 | O001 | 150.75 |",
		"[VALUE SEGMENTS]",
		"- Low-Value: 3",
		"[SEGMENTS BY VALUE]",
		"• Potential Loyalists: 3",
		"[CUSTOMER SEGMENTS]",
		"| Potential Loyalists | 4 | 4.50 | 2.25 | 0.00 |",
		"No rows in the Champions segment.",
		"[SEGMENTED CUSTOMERS]",
		"| C005 | 6 | Mid-Value | Potential Loyalists |",
		"[NOTES]",
	} {
		assert.Contains(t, md, want)
	}
}

func TestReportMarkdown_ChampionCorrelations(t *testing.T) {
	md := scoreWith(t, laddered()).Markdown()
	assert.Contains(t, md, "RecencyScore ~ MonetaryScore: r=1.000")
	assert.Contains(t, md, "RecencyScore ~ FrequencyScore: n/a")
	assert.NotContains(t, md, "[NOTES]")
}

func TestReportWriteCSV(t *testing.T) {
	rep := scoreWith(t, exampleTransactions())
	var buf bytes.Buffer
	require.NoError(t, rep.WriteCSV(&buf))

	recs, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, len(rep.Rows)+1)
	assert.Equal(t, CSVHeader, recs[0])
	assert.Equal(t, []string{
		"C001", "2023-05-10", "O001", "150.75", "144", "3", "620.75",
		"2", "3", "0", "5", "Mid-Value", "At Risk Customers",
	}, recs[1])
}

func TestReportWriteJSON(t *testing.T) {
	rep := scoreWith(t, laddered())
	var buf bytes.Buffer
	require.NoError(t, rep.WriteJSON(&buf))

	var got struct {
		ID   string `json:"id"`
		Rows []struct {
			CustomerID      string `json:"customer_id"`
			RFMScore        int    `json:"rfm_score"`
			CustomerSegment string `json:"customer_segment"`
		} `json:"rows"`
		Corr struct {
			Columns []string     `json:"columns"`
			Values  [][]*float64 `json:"values"`
		} `json:"champion_correlations"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, rep.ID, got.ID)
	require.Len(t, got.Rows, 10)
	assert.Equal(t, "CA", got.Rows[0].CustomerID)
	assert.Equal(t, SegmentChampions, got.Rows[0].CustomerSegment)
	require.Len(t, got.Corr.Values, 3)
	assert.Nil(t, got.Corr.Values[1][1])
	require.NotNil(t, got.Corr.Values[0][2])
	assert.InDelta(t, 1.0, *got.Corr.Values[0][2], 1e-9)
}

func TestReportWriteJSON_EmptyChampionStats(t *testing.T) {
	rep := scoreWith(t, exampleTransactions())
	var buf bytes.Buffer
	require.NoError(t, rep.WriteJSON(&buf))
	assert.Contains(t, buf.String(), `"min": null`)
}
