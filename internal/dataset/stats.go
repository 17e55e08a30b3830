package dataset

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean of values. ok is false for empty input.
func Mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// Median returns the 0.5 quantile of values. ok is false for empty input.
func Median(values []float64) (float64, bool) {
	return Quantile(values, 0.5)
}

// Quantile returns the q-th quantile of values using linear interpolation
// between the two closest ranks. q must be in [0,1]; ok is false for empty
// input or q outside that range.
func Quantile(values []float64, q float64) (float64, bool) {
	if len(values) == 0 || q < 0 || q > 1 {
		return 0, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], true
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo]), true
}

// Mode returns the most frequent value and its count. Ties break toward the
// lexicographically smallest value so fills are deterministic. count is zero
// for empty input.
func Mode(values []string) (mode string, count int) {
	freq := make(map[string]int, len(values))
	for _, v := range values {
		freq[v]++
	}
	for v, n := range freq {
		if n > count || (n == count && v < mode) {
			mode, count = v, n
		}
	}
	return mode, count
}

// IQRBounds returns the Tukey fences for values: Q1-k*IQR and Q3+k*IQR,
// where k is the fence multiplier (1.5 is the conventional choice).
// ok is false for empty input.
func IQRBounds(values []float64, k float64) (lower, upper float64, ok bool) {
	q1, ok1 := Quantile(values, 0.25)
	q3, ok3 := Quantile(values, 0.75)
	if !ok1 || !ok3 {
		return 0, 0, false
	}
	iqr := q3 - q1
	return q1 - k*iqr, q3 + k*iqr, true
}
