package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// sortedCopy returns vals sorted ascending without touching the input.
func sortedCopy(vals []float64) []float64 {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return cp
}

// quantile interpolates linearly at position q*(n-1) of an ascending slice.
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
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Median returns the interpolated median, NaN for an empty slice.
func Median(vals []float64) float64 {
	return quantile(sortedCopy(vals), 0.5)
}

// Mode returns the most frequent value and its count. Ties resolve to the
// value encountered first.
func Mode(vals []string) (string, int) {
	counts := make(map[string]int, len(vals))
	var best string
	bestN := 0
	for _, v := range vals {
		counts[v]++
	}
	for _, v := range vals {
		if n := counts[v]; n > bestN {
			best, bestN = v, n
		}
	}
	return best, bestN
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := sortedCopy(vals)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

// robustOutliers counts values whose robust z-score exceeds threshold.
func robustOutliers(vals []float64, threshold float64) (count int, maxAbsZ float64) {
	med, mad := medianMAD(vals)
	if mad == 0 {
		return 0, 0
	}
	for _, v := range vals {
		az := math.Abs(0.6745 * (v - med) / mad)
		if az > threshold {
			count++
			if az > maxAbsZ {
				maxAbsZ = az
			}
		}
	}
	return
}

// pearson returns the correlation of x and y, 0 when it is undefined.
func pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}
