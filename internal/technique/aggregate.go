// Package technique turns per-frame metric samples into session-level
// aspect scores, composite scores, and feedback text.
package technique

import "github.com/ayusman/fretsense/internal/metrics"

// Status marks whether an aspect had enough valid data to be scored.
type Status string

const (
	// StatusOK means the aspect was aggregated from sufficient valid samples.
	StatusOK Status = "ok"
	// StatusInsufficientData means too few valid samples were available.
	// It is an expected outcome, not an error: the aspect is excluded from
	// composite scoring rather than scored as 0.
	StatusInsufficientData Status = "insufficient_data"
)

// DefaultMinSampleCount is the minimum number of valid samples below which
// an aspect is reported as insufficient data.
const DefaultMinSampleCount = 5

// Aggregate is the session-level statistic of one aspect's sample series.
type Aggregate struct {
	Aspect      metrics.Aspect
	Mean        float64
	Variance    float64
	SampleCount int
	TotalFrames int
	Status      Status
}

// ValidFraction returns the share of emitted samples that carried usable
// confidence. Used as a feature so the learned model sees data quality.
func (a Aggregate) ValidFraction() float64 {
	if a.TotalFrames == 0 {
		return 0
	}
	return float64(a.SampleCount) / float64(a.TotalFrames)
}

// Aggregator reduces per-frame samples to per-aspect aggregates using
// confidence-weighted statistics.
type Aggregator struct {
	minSampleCount int
}

// NewAggregator creates an Aggregator. A non-positive minSampleCount falls
// back to DefaultMinSampleCount.
func NewAggregator(minSampleCount int) *Aggregator {
	if minSampleCount <= 0 {
		minSampleCount = DefaultMinSampleCount
	}
	return &Aggregator{minSampleCount: minSampleCount}
}

// Aggregate computes the confidence-weighted mean and variance of a sample
// series. Zero-confidence samples are excluded entirely; if no confidence
// remains, or fewer valid samples than the minimum, the aggregate is
// marked insufficient.
func (a *Aggregator) Aggregate(aspect metrics.Aspect, samples []metrics.Sample) Aggregate {
	mean, variance, totalWeight, n := metrics.WeightedStats(samples)

	agg := Aggregate{
		Aspect:      aspect,
		Mean:        mean,
		Variance:    variance,
		SampleCount: n,
		TotalFrames: len(samples),
		Status:      StatusOK,
	}
	if totalWeight <= 0 || n < a.minSampleCount {
		agg.Status = StatusInsufficientData
		agg.Mean = 0
		agg.Variance = 0
	}
	return agg
}
