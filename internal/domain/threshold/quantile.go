package threshold

import (
	"fmt"
	"math"
	"slices"

	"github.com/shopspring/decimal"
)

// Quantile returns the p-quantile of the values using the (n+1) plotting position
// with linear interpolation. NaN values are ignored. An empty input gives NaN.
func Quantile(values []float64, p float64) (float64, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%w: probability %v is outside [0,1]", ErrInvalidQuantile, p)
	}
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	n := len(sorted)
	switch n {
	case 0:
		return math.NaN(), nil
	case 1:
		return sorted[0], nil
	}
	slices.Sort(sorted)

	pos := p * float64(n+1)
	if pos < 1 {
		return sorted[0], nil
	}
	if pos >= float64(n) {
		return sorted[n-1], nil
	}
	lower := math.Floor(pos)
	d := pos - lower
	i := int(lower)
	return sorted[i-1] + d*(sorted[i]-sorted[i-1]), nil
}

// Round rounds v to the given number of decimal places. Negative digits or
// non-finite values are returned unchanged.
func Round(v float64, digits int) float64 {
	if digits < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, _ := decimal.NewFromFloat(v).Round(int32(digits)).Float64()
	return r
}

// Resolve converts a probability threshold into a value threshold using the
// climatology. Value thresholds are returned unchanged. An empty climatology
// resolves to NaN, which no value passes.
func Resolve(t Threshold, climatology []float64, digits int) (Threshold, error) {
	if !t.IsProbability {
		return t, nil
	}
	v, err := Quantile(climatology, t.Probability)
	if err != nil {
		return Threshold{}, err
	}
	t.Value = Round(v, digits)
	if t.Operator == Between {
		u, err := Quantile(climatology, t.ProbabilityUpper)
		if err != nil {
			return Threshold{}, err
		}
		t.Upper = Round(u, digits)
	}
	t.Resolved = true
	return t, nil
}
