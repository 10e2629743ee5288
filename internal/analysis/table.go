package analysis

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// ScoreColumns names the per-row score columns used by the Champions views.
var ScoreColumns = []string{"RecencyScore", "FrequencyScore", "MonetaryScore"}

// Report is the augmented transaction table plus the aggregate views built
// from it.
type Report struct {
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	AsOf     time.Time `json:"as_of"`
	Rows     []Row     `json:"rows"`
	Warnings []string  `json:"warnings,omitempty"`
	// Preview echoes the first input rows.
	Preview []Transaction `json:"preview"`

	ValueSegmentCounts []SegmentCount  `json:"value_segment_counts"`
	SegmentBreakdown   []SegmentPair   `json:"segment_breakdown"`
	SegmentScores      []SegmentScores `json:"segment_scores"`
	CustomerCounts     []SegmentCount  `json:"customer_segment_counts"`
	Champions          []Row           `json:"champions"`
	ChampionStats      []ScoreSummary  `json:"champion_stats"`
	ChampionCorr       *CorrMatrix     `json:"champion_correlations"`

	Metrics []MetricResult `json:"-"`

	valueSegmented bool
}

// SegmentCount is the number of rows carrying a segment label.
type SegmentCount struct {
	Segment string `json:"segment"`
	Count   int    `json:"count"`
}

// SegmentPair counts rows per (value segment, customer segment).
type SegmentPair struct {
	ValueSegment    string `json:"value_segment"`
	CustomerSegment string `json:"customer_segment"`
	Count           int    `json:"count"`
}

// SegmentScores holds the mean score columns for one customer segment.
type SegmentScores struct {
	Segment   string  `json:"segment"`
	Count     int     `json:"count"`
	Recency   float64 `json:"recency_score"`
	Frequency float64 `json:"frequency_score"`
	Monetary  float64 `json:"monetary_score"`
}

// ScoreSummary is a five-number summary of one score column.
type ScoreSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// MarshalJSON emits null for statistics of an empty column.
func (s ScoreSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Column string   `json:"column"`
		Count  int      `json:"count"`
		Min    *float64 `json:"min"`
		Q1     *float64 `json:"q1"`
		Median *float64 `json:"median"`
		Q3     *float64 `json:"q3"`
		Max    *float64 `json:"max"`
	}{s.Column, s.Count, finite(s.Min), finite(s.Q1), finite(s.Median), finite(s.Q3), finite(s.Max)})
}

// CorrMatrix holds a symmetric Pearson correlation matrix. Undefined entries
// (constant column, fewer than two rows) are NaN.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// MarshalJSON renders NaN entries as null.
func (m *CorrMatrix) MarshalJSON() ([]byte, error) {
	vals := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		vals[i] = make([]*float64, len(row))
		for j, v := range row {
			vals[i][j] = finite(v)
		}
	}
	return json.Marshal(struct {
		Columns []string     `json:"columns"`
		Values  [][]*float64 `json:"values"`
	}{m.Columns, vals})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func (r *Report) buildViews() {
	r.ValueSegmentCounts = r.valueSegmentCounts()
	r.SegmentBreakdown = r.segmentBreakdown()
	r.SegmentScores = r.segmentScores()
	r.CustomerCounts = r.customerCounts()

	r.Champions = nil
	for _, row := range r.Rows {
		if row.CustomerSegment == SegmentChampions {
			r.Champions = append(r.Champions, row)
		}
	}
	cols := scoreSeries(r.Champions)
	r.ChampionStats = make([]ScoreSummary, len(cols))
	for i, c := range cols {
		lo, q1, med, q3, hi := fiveNumber(c)
		r.ChampionStats[i] = ScoreSummary{Column: ScoreColumns[i], Count: len(c), Min: lo, Q1: q1, Median: med, Q3: q3, Max: hi}
	}
	r.ChampionCorr = correlationMatrix(ScoreColumns, cols)
}

// valueSegmentCounts counts rows per value segment, largest first. All three
// segments are listed once segmentation succeeded, including empty ones.
func (r *Report) valueSegmentCounts() []SegmentCount {
	if !r.valueSegmented {
		return nil
	}
	counts := make(map[string]int, len(ValueSegments))
	for _, row := range r.Rows {
		counts[row.ValueSegment]++
	}
	out := make([]SegmentCount, len(ValueSegments))
	for i, s := range ValueSegments {
		out[i] = SegmentCount{Segment: s, Count: counts[s]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func (r *Report) segmentBreakdown() []SegmentPair {
	type key struct{ value, customer string }
	counts := map[key]int{}
	for _, row := range r.Rows {
		if row.ValueSegment == "" {
			continue
		}
		counts[key{row.ValueSegment, row.CustomerSegment}]++
	}
	out := make([]SegmentPair, 0, len(counts))
	for k, n := range counts {
		out = append(out, SegmentPair{ValueSegment: k.value, CustomerSegment: k.customer, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		vi, vj := valueRank(out[i].ValueSegment), valueRank(out[j].ValueSegment)
		if vi == vj {
			return out[i].CustomerSegment < out[j].CustomerSegment
		}
		return vi < vj
	})
	return out
}

func (r *Report) segmentScores() []SegmentScores {
	type acc struct {
		n          int
		rs, fs, ms float64
	}
	groups := map[string]*acc{}
	for _, row := range r.Rows {
		a := groups[row.CustomerSegment]
		if a == nil {
			a = &acc{}
			groups[row.CustomerSegment] = a
		}
		a.n++
		a.rs += float64(row.RecencyScore)
		a.fs += float64(row.FrequencyScore)
		a.ms += float64(row.MonetaryScore)
	}
	out := make([]SegmentScores, 0, len(groups))
	for name, a := range groups {
		n := float64(a.n)
		out = append(out, SegmentScores{Segment: name, Count: a.n, Recency: a.rs / n, Frequency: a.fs / n, Monetary: a.ms / n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out
}

func (r *Report) customerCounts() []SegmentCount {
	counts := map[string]int{}
	for _, row := range r.Rows {
		counts[row.CustomerSegment]++
	}
	out := make([]SegmentCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, SegmentCount{Segment: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out
}

func valueRank(s string) int {
	for i, v := range ValueSegments {
		if v == s {
			return i
		}
	}
	return len(ValueSegments)
}

func scoreSeries(rows []Row) [][]float64 {
	cols := make([][]float64, len(ScoreColumns))
	for i := range cols {
		cols[i] = make([]float64, len(rows))
	}
	for i, row := range rows {
		cols[0][i] = float64(row.RecencyScore)
		cols[1][i] = float64(row.FrequencyScore)
		cols[2][i] = float64(row.MonetaryScore)
	}
	return cols
}

func correlationMatrix(names []string, cols [][]float64) *CorrMatrix {
	n := len(cols)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			r := pearson(cols[a], cols[b])
			if a == b && !math.IsNaN(r) {
				r = 1
			}
			mat[a][b] = r
			mat[b][a] = r
		}
	}
	return &CorrMatrix{Columns: append([]string(nil), names...), Values: mat}
}
