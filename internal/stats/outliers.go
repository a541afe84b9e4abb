// Package stats holds the small numeric helpers shared by the estimator and
// the aggregation queries.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultOutlierThreshold is the number of standard deviations above the mean kept.
	DefaultOutlierThreshold = 3.0
	// DefaultMinSamples is the smallest sample size outlier exclusion applies to.
	DefaultMinSamples = 2
)

// OutlierConfig tunes ExcludeOutliers.
type OutlierConfig struct {
	Threshold  float64
	MinSamples int
}

// DefaultOutlierConfig returns the standard 3-sigma cutoff.
func DefaultOutlierConfig() OutlierConfig {
	return OutlierConfig{Threshold: DefaultOutlierThreshold, MinSamples: DefaultMinSamples}
}

// ExcludeOutliers drops values above mean + threshold*stddev (sample stddev).
// Slices smaller than the minimum sample size are returned unchanged.
// Order is preserved.
func ExcludeOutliers(values []float64, cfg OutlierConfig) []float64 {
	keep := OutlierMask(values, cfg)
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if keep[i] {
			out = append(out, v)
		}
	}
	return out
}

// OutlierMask reports, per value, whether ExcludeOutliers would keep it.
func OutlierMask(values []float64, cfg OutlierConfig) []bool {
	keep := make([]bool, len(values))
	for i := range keep {
		keep[i] = true
	}

	minSamples := cfg.MinSamples
	if minSamples < 2 {
		minSamples = DefaultMinSamples
	}
	if len(values) < minSamples {
		return keep
	}

	cutoff := Cutoff(values, cfg.Threshold)
	for i, v := range values {
		keep[i] = v <= cutoff
	}
	return keep
}

// Cutoff returns mean + threshold*stddev for values.
func Cutoff(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return math.Inf(1)
	}
	if threshold <= 0 {
		threshold = DefaultOutlierThreshold
	}
	mean, std := stat.MeanStdDev(values, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean + threshold*std
}

// Summary describes a sample.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Summarize returns count, mean, min and max. An empty sample is all zeros.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	s := Summary{Count: len(values), Mean: stat.Mean(values, nil), Min: values[0], Max: values[0]}
	for _, v := range values[1:] {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	return s
}

// Mean returns the arithmetic mean, 0 for an empty sample.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
