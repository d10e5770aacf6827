package metrics

import "gonum.org/v1/gonum/stat"

// WeightedStats computes the confidence-weighted mean and variance of a
// sample series. Samples with confidence <= 0 are excluded entirely before
// the computation; they contribute neither value nor weight. This is the
// single shared aggregation primitive for the whole pipeline; calculators
// and the temporal aggregator must not reimplement it.
//
// Returns the weighted mean and variance, the total weight, and the number
// of contributing samples. With no contributing samples all results are 0.
func WeightedStats(samples []Sample) (mean, variance, totalWeight float64, n int) {
	values := make([]float64, 0, len(samples))
	weights := make([]float64, 0, len(samples))

	for _, s := range samples {
		if s.Confidence <= 0 {
			continue
		}
		values = append(values, s.Value)
		weights = append(weights, s.Confidence)
		totalWeight += s.Confidence
	}

	n = len(values)
	if n == 0 || totalWeight <= 0 {
		return 0, 0, 0, 0
	}

	mean = stat.Mean(values, weights)
	if n > 1 {
		variance = stat.Variance(values, weights)
	}
	return mean, variance, totalWeight, n
}
