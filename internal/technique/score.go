package technique

import (
	"fmt"
	"sort"

	"github.com/ayusman/fretsense/internal/metrics"
	"github.com/ayusman/fretsense/internal/model"
)

// Mode reports which scoring strategy produced a result.
type Mode string

const (
	// ModeRuleBased means the fixed biomechanical thresholds were used.
	ModeRuleBased Mode = "rule_based"
	// ModeLearned means the active trained model produced the scores.
	ModeLearned Mode = "learned"
	// ModeRuleBasedFallback means the learned model was selected but
	// unavailable or erroring, and the rule-based scorer stood in. This is
	// a degraded-mode event and is always logged by the caller.
	ModeRuleBasedFallback Mode = "rule_based_fallback"
)

// GoodRange is the configured acceptable band of an aspect's metric.
// Neutral optionally pins the scoring peak to a point inside the band;
// zero means the peak sits at the midpoint.
type GoodRange struct {
	Low     float64
	High    float64
	Neutral float64
}

// Center returns the midpoint of the range.
func (r GoodRange) Center() float64 { return (r.Low + r.High) / 2 }

// HalfWidth returns half the width of the range.
func (r GoodRange) HalfWidth() float64 { return (r.High - r.Low) / 2 }

// Peak returns the metric value that scores 100: the configured neutral
// point when set, otherwise the range midpoint.
func (r GoodRange) Peak() float64 {
	if r.Neutral != 0 {
		return r.Neutral
	}
	return r.Center()
}

// AspectScore is the session result for one aspect.
type AspectScore struct {
	Aspect      metrics.Aspect
	Score       float64 // 0..100, meaningful only when Status is ok
	Mean        float64
	Variance    float64
	SampleCount int
	Status      Status
}

// Scorer maps per-aspect aggregates to 0-100 scores.
type Scorer interface {
	Score(aggregates []Aggregate) ([]AspectScore, error)
}

// RuleBasedScorer is the fixed-threshold baseline: a piecewise-linear map
// from the aspect mean to 0-100, peaking at the good range's neutral point
// (its midpoint unless configured otherwise) and reaching 0 three
// half-widths out from the peak.
type RuleBasedScorer struct {
	ranges map[metrics.Aspect]GoodRange
}

// NewRuleBasedScorer creates a scorer over the configured good ranges.
func NewRuleBasedScorer(ranges map[metrics.Aspect]GoodRange) *RuleBasedScorer {
	return &RuleBasedScorer{ranges: ranges}
}

// Score implements Scorer. Insufficient aggregates pass through unscored.
func (s *RuleBasedScorer) Score(aggregates []Aggregate) ([]AspectScore, error) {
	scores := make([]AspectScore, 0, len(aggregates))
	for _, agg := range aggregates {
		as := AspectScore{
			Aspect:      agg.Aspect,
			Mean:        agg.Mean,
			Variance:    agg.Variance,
			SampleCount: agg.SampleCount,
			Status:      agg.Status,
		}
		if agg.Status == StatusOK {
			rng, ok := s.ranges[agg.Aspect]
			if !ok {
				return nil, fmt.Errorf("no good range configured for aspect %s", agg.Aspect)
			}
			as.Score = s.scoreValue(agg.Mean, rng)
		}
		scores = append(scores, as)
	}
	return scores, nil
}

// scoreValue maps a metric value to 0-100: 100 at the range's peak,
// decaying linearly to 0 at peak + 3 half-widths, clamped.
func (s *RuleBasedScorer) scoreValue(value float64, rng GoodRange) float64 {
	half := rng.HalfWidth()
	if half <= 0 {
		if value == rng.Peak() {
			return 100
		}
		return 0
	}
	deviation := value - rng.Peak()
	if deviation < 0 {
		deviation = -deviation
	}
	score := 100 * (1 - deviation/(3*half))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// LearnedScorer scores with a trained per-aspect classifier: the score is
// the good-class probability scaled to 0-100. Aspects the model was not
// trained on surface as errors so the caller can fall back.
type LearnedScorer struct {
	model *model.Model
}

// NewLearnedScorer wraps a model snapshot. The snapshot is taken once at
// scoring-call start; a concurrent promotion does not affect it.
func NewLearnedScorer(m *model.Model) *LearnedScorer {
	return &LearnedScorer{model: m}
}

// Score implements Scorer.
func (s *LearnedScorer) Score(aggregates []Aggregate) ([]AspectScore, error) {
	if s.model == nil {
		return nil, fmt.Errorf("no active model")
	}

	probs, err := s.model.Predict(FeatureVector(aggregates))
	if err != nil {
		return nil, err
	}

	scores := make([]AspectScore, 0, len(aggregates))
	for _, agg := range aggregates {
		as := AspectScore{
			Aspect:      agg.Aspect,
			Mean:        agg.Mean,
			Variance:    agg.Variance,
			SampleCount: agg.SampleCount,
			Status:      agg.Status,
		}
		if agg.Status == StatusOK {
			p, ok := probs[agg.Aspect]
			if !ok {
				return nil, fmt.Errorf("%w: %s", model.ErrUntrainedAspect, agg.Aspect)
			}
			as.Score = p * 100
		}
		scores = append(scores, as)
	}
	return scores, nil
}

// Composite computes the weighted mean of the scoreable aspects. Missing
// weights default to 1 (equal weighting). The second return is false when
// every aspect is insufficient: the session has no score, which is distinct
// from a score of zero.
func Composite(scores []AspectScore, weights map[metrics.Aspect]float64) (float64, bool) {
	var sum, weightSum float64
	for _, s := range scores {
		if s.Status != StatusOK {
			continue
		}
		w := 1.0
		if weights != nil {
			if cw, ok := weights[s.Aspect]; ok && cw > 0 {
				w = cw
			}
		}
		sum += s.Score * w
		weightSum += w
	}
	if weightSum <= 0 {
		return 0, false
	}
	return sum / weightSum, true
}

// FeatureVector flattens aggregates to the canonical session feature
// layout: for each aspect in metrics.Aspects() order, its weighted mean,
// weighted variance, and valid-sample fraction. Insufficient aspects
// contribute zero mean/variance with fraction 0, which the model sees as a
// data-quality signal. This layout is shared by scoring, label submission,
// and training; changing it invalidates stored examples.
func FeatureVector(aggregates []Aggregate) []float64 {
	byAspect := make(map[metrics.Aspect]Aggregate, len(aggregates))
	for _, agg := range aggregates {
		byAspect[agg.Aspect] = agg
	}

	features := make([]float64, 0, 3*len(metrics.Aspects()))
	for _, aspect := range metrics.Aspects() {
		agg := byAspect[aspect]
		if agg.Status != StatusOK {
			features = append(features, 0, 0, 0)
			continue
		}
		features = append(features, agg.Mean, agg.Variance, agg.ValidFraction())
	}
	return features
}

// SortWorstFirst orders scores ascending, with insufficient aspects last.
func SortWorstFirst(scores []AspectScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		si, sj := scores[i], scores[j]
		if (si.Status == StatusOK) != (sj.Status == StatusOK) {
			return si.Status == StatusOK
		}
		return si.Score < sj.Score
	})
}
