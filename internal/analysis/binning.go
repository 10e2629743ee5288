package analysis

import (
	"fmt"
	"math"
	"sort"
)

// Default five-bucket label orders. A more recent purchase (smaller Recency)
// ranks higher, so its labels run backwards.
var (
	RecencyLabels   = DescendingLabels(5)
	FrequencyLabels = AscendingLabels(5)
	MonetaryLabels  = AscendingLabels(5)
)

// AscendingLabels returns 1..n.
func AscendingLabels(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// DescendingLabels returns n..1.
func DescendingLabels(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = n - i
	}
	return out
}

// BinError reports that a series could not be split into buckets.
type BinError struct {
	Buckets int
	Reason  string
}

func (e *BinError) Error() string {
	return fmt.Sprintf("bin into %d buckets: %s", e.Buckets, e.Reason)
}

// Bin assigns one of labels to every value.
//
// When the series has at least target distinct values it is cut into target
// equal-population buckets. Otherwise it falls back to u equal-width buckets
// (u = distinct values) labelled with the first u labels. Both modes use
// right-closed intervals.
func Bin(values []float64, labels []int, target int) ([]int, error) {
	if target <= 0 {
		return nil, &BinError{Buckets: target, Reason: "bucket count must be positive"}
	}
	if len(labels) < target {
		return nil, &BinError{Buckets: target, Reason: fmt.Sprintf("only %d labels for %d buckets", len(labels), target)}
	}
	n := distinctCount(values)
	if n > target {
		n = target
	}
	var idx []int
	var err error
	if n < target {
		idx, err = equalWidthBuckets(values, n)
	} else {
		idx, err = quantileBuckets(values, n)
	}
	if err != nil {
		return nil, err
	}
	out := make([]int, len(values))
	for i, b := range idx {
		out[i] = labels[b]
	}
	return out, nil
}

// quantileBuckets returns the 0-based bucket of each value when the series is
// split at its q-quantiles. Tied quantile edges cannot form distinct buckets
// and are reported as an error.
func quantileBuckets(values []float64, q int) ([]int, error) {
	if q <= 0 {
		return nil, &BinError{Buckets: q, Reason: "bucket count must be positive"}
	}
	if len(values) == 0 {
		return nil, &BinError{Buckets: q, Reason: "empty series"}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	probs := linspace(0, 1, q+1)
	edges := make([]float64, len(probs))
	for i, p := range probs {
		edges[i] = quantile(sorted, p)
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] == edges[i-1] {
			return nil, &BinError{Buckets: q, Reason: fmt.Sprintf("bin edges must be unique: %v", edges)}
		}
	}
	return assignBuckets(values, edges, true), nil
}

// equalWidthBuckets splits [min, max] into n buckets of equal width. The lowest
// edge is pushed down by 0.1% of the range so the minimum lands in bucket 0.
func equalWidthBuckets(values []float64, n int) ([]int, error) {
	if n <= 0 {
		return nil, &BinError{Buckets: n, Reason: "bins should be a positive integer"}
	}
	if len(values) == 0 {
		return nil, &BinError{Buckets: n, Reason: "empty series"}
	}
	mn, mx := values[0], values[0]
	for _, v := range values[1:] {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	if math.IsInf(mn, 0) || math.IsInf(mx, 0) {
		return nil, &BinError{Buckets: n, Reason: "cannot bin infinite values"}
	}
	var edges []float64
	if mn == mx {
		mn -= widen(mn)
		mx += widen(mx)
		edges = linspace(mn, mx, n+1)
	} else {
		edges = linspace(mn, mx, n+1)
		edges[0] -= (mx - mn) * 0.001
	}
	return assignBuckets(values, edges, false), nil
}

func widen(v float64) float64 {
	if v == 0 {
		return 0.001
	}
	return 0.001 * math.Abs(v)
}

// assignBuckets places each value in the right-closed interval (edges[i], edges[i+1]].
func assignBuckets(values, edges []float64, includeLowest bool) []int {
	last := len(edges) - 2
	out := make([]int, len(values))
	for i, v := range values {
		j := sort.SearchFloat64s(edges, v)
		if includeLowest && v == edges[0] {
			j = 1
		}
		b := j - 1
		if b < 0 {
			b = 0
		}
		if b > last {
			b = last
		}
		out[i] = b
	}
	return out
}

func distinctCount(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}
