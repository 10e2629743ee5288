package analysis

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Metric names one of the three RFM dimensions.
type Metric string

const (
	MetricRecency   Metric = "Recency"
	MetricFrequency Metric = "Frequency"
	MetricMonetary  Metric = "Monetary"
)

// Value segment labels in ascending score order.
const (
	ValueLow  = "Low-Value"
	ValueMid  = "Mid-Value"
	ValueHigh = "High-Value"
)

// ValueSegments lists the value segment labels from lowest to highest.
var ValueSegments = []string{ValueLow, ValueMid, ValueHigh}

// ErrNoAsOf is returned when scoring is attempted without a reference instant.
var ErrNoAsOf = errors.New("as-of instant is required")

// Transaction is one row of the purchase log.
type Transaction struct {
	CustomerID        string    `json:"customer_id"`
	PurchaseDate      time.Time `json:"purchase_date"`
	OrderID           string    `json:"order_id"`
	TransactionAmount float64   `json:"transaction_amount"`
}

// Row is a transaction augmented with its RFM metrics, scores and segments.
type Row struct {
	Transaction
	Recency         int     `json:"recency"`
	Frequency       int     `json:"frequency"`
	MonetaryValue   float64 `json:"monetary_value"`
	RecencyScore    int     `json:"recency_score"`
	FrequencyScore  int     `json:"frequency_score"`
	MonetaryScore   int     `json:"monetary_score"`
	RFMScore        int     `json:"rfm_score"`
	ValueSegment    string  `json:"value_segment"`
	CustomerSegment string  `json:"customer_segment"`
}

// Options controls scoring.
type Options struct {
	// AsOf is the instant Recency is measured from.
	AsOf time.Time
	// Buckets is the target number of score buckets per metric.
	Buckets int
	// PreviewRows is how many input rows to echo in the report.
	PreviewRows int
}

// DefaultOptions returns the standard five-bucket scoring setup. AsOf is left
// for the caller.
func DefaultOptions() Options {
	return Options{
		Buckets:     5,
		PreviewRows: 5,
	}
}

// MetricResult is the outcome of binning one metric. When Err is set, Scores
// holds the zero-filled fallback column.
type MetricResult struct {
	Metric Metric
	Scores []int
	Err    error
}

// Score computes Recency, Frequency and Monetary metrics for every
// transaction, bins them into scores and assigns value and customer
// segments. Binning failures do not abort scoring: the affected metric is
// zero-filled and a warning is recorded on the report.
func Score(txns []Transaction, opt Options) (*Report, error) {
	if opt.AsOf.IsZero() {
		return nil, ErrNoAsOf
	}
	buckets := opt.Buckets
	if buckets <= 0 {
		buckets = 5
	}
	preview := opt.PreviewRows
	if preview < 0 {
		preview = 0
	}

	rep := &Report{
		ID:   uuid.NewString(),
		AsOf: opt.AsOf,
		Rows: make([]Row, len(txns)),
	}
	if preview > len(txns) {
		preview = len(txns)
	}
	rep.Preview = append([]Transaction(nil), txns[:preview]...)

	// group-by customer
	freq := make(map[string]int)
	monetary := make(map[string]float64)
	for _, t := range txns {
		if t.OrderID != "" {
			freq[t.CustomerID]++
		}
		monetary[t.CustomerID] += t.TransactionAmount
	}

	recency := make([]float64, len(txns))
	frequency := make([]float64, len(txns))
	money := make([]float64, len(txns))
	for i, t := range txns {
		r := &rep.Rows[i]
		r.Transaction = t
		r.Recency = RecencyDays(opt.AsOf, t.PurchaseDate)
		r.Frequency = freq[t.CustomerID]
		r.MonetaryValue = monetary[t.CustomerID]
		recency[i] = float64(r.Recency)
		frequency[i] = float64(r.Frequency)
		money[i] = r.MonetaryValue
	}

	rep.Metrics = []MetricResult{
		scoreMetric(MetricRecency, recency, DescendingLabels(buckets), buckets),
		scoreMetric(MetricFrequency, frequency, AscendingLabels(buckets), buckets),
		scoreMetric(MetricMonetary, money, AscendingLabels(buckets), buckets),
	}
	for _, m := range rep.Metrics {
		if m.Err != nil {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("scoring %s failed, scores set to 0: %v", m.Metric, m.Err))
		}
	}

	totals := make([]float64, len(txns))
	for i := range rep.Rows {
		r := &rep.Rows[i]
		r.RecencyScore = rep.Metrics[0].Scores[i]
		r.FrequencyScore = rep.Metrics[1].Scores[i]
		r.MonetaryScore = rep.Metrics[2].Scores[i]
		r.RFMScore = r.RecencyScore + r.FrequencyScore + r.MonetaryScore
		r.CustomerSegment = SegmentFor(float64(r.RFMScore))
		totals[i] = float64(r.RFMScore)
	}

	if idx, err := quantileBuckets(totals, len(ValueSegments)); err != nil {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("value segmentation failed, segments left unassigned: %v", err))
	} else {
		for i, b := range idx {
			rep.Rows[i].ValueSegment = ValueSegments[b]
		}
		rep.valueSegmented = true
	}

	rep.buildViews()
	return rep, nil
}

// RecencyDays returns the whole days elapsed between the purchase and asOf,
// rounded down. Purchases after asOf yield negative values.
func RecencyDays(asOf, purchased time.Time) int {
	return int(math.Floor(asOf.Sub(purchased).Hours() / 24))
}

func scoreMetric(m Metric, values []float64, labels []int, buckets int) MetricResult {
	scores, err := Bin(values, labels, buckets)
	if err != nil {
		return MetricResult{Metric: m, Scores: make([]int, len(values)), Err: err}
	}
	return MetricResult{Metric: m, Scores: scores}
}

// WallClock drops t's zone and returns the same wall-clock reading in UTC.
// Purchase dates carry no zone and are read as UTC, so "now" is compared on
// the same footing.
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// ParseAsOf reads an as-of instant given as YYYY-MM-DD or RFC3339.
func ParseAsOf(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid as-of %q (use YYYY-MM-DD or RFC3339)", s)
	}
	return t, nil
}
