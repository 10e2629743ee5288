package analysis

import (
	"math"
	"sort"
)

// quantile interpolates linearly between the closest ranks of an already
// sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	a, b := sorted[lo], sorted[hi]
	if w >= 0.5 {
		return b - (b-a)*(1-w)
	}
	return a + (b-a)*w
}

// linspace returns num evenly spaced samples over [start, stop].
func linspace(start, stop float64, num int) []float64 {
	if num <= 0 {
		return nil
	}
	out := make([]float64, num)
	if num == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(num-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[num-1] = stop
	return out
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	var s float64
	for _, v := range vals {
		s += v
	}
	return s / float64(len(vals))
}

// pearson returns the correlation of x and y, NaN when either side has no
// variance or there are fewer than two observations.
func pearson(x, y []float64) float64 {
	n := len(x)
	if n != len(y) || n < 2 {
		return math.NaN()
	}
	mx, my := mean(x), mean(y)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx := x[i] - mx
		dy := y[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	denom := math.Sqrt(sxx * syy)
	if denom == 0 {
		return math.NaN()
	}
	r := sxy / denom
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// fiveNumber computes min, lower quartile, median, upper quartile and max.
func fiveNumber(vals []float64) (lo, q1, med, q3, hi float64) {
	if len(vals) == 0 {
		nan := math.NaN()
		return nan, nan, nan, nan, nan
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return cp[0], quantile(cp, 0.25), quantile(cp, 0.5), quantile(cp, 0.75), cp[len(cp)-1]
}
