// Package analysis runs the per-clip scoring pipeline: landmark sequence →
// metric calculators → temporal aggregation → technique scoring → feedback.
package analysis

import (
	"context"
	"log"
	"time"

	"github.com/ayusman/fretsense/internal/config"
	"github.com/ayusman/fretsense/internal/metrics"
	"github.com/ayusman/fretsense/internal/pose"
	"github.com/ayusman/fretsense/internal/registry"
	"github.com/ayusman/fretsense/internal/technique"
)

// Result is the structured outcome of one clip analysis. It is always
// produced: degraded clips surface as insufficient aspects or a missing
// composite, never as an error.
type Result struct {
	Aspects         []technique.AspectScore
	Composite       float64
	HasComposite    bool // false means NO_SCORE
	Mode            technique.Mode
	Features        []float64
	Recommendations []string
}

// Pipeline is the strictly sequential per-session scoring chain. One
// pipeline instance is safe for concurrent use across sessions; each call
// owns its sequence and the only shared state read is the registry's
// active-model snapshot, taken once at call start.
type Pipeline struct {
	calculators []metrics.Calculator
	aggregator  *technique.Aggregator
	rule        *technique.RuleBasedScorer
	feedback    *technique.FeedbackGenerator
	registry    *registry.Registry
	weights     map[metrics.Aspect]float64
	timeout     time.Duration
}

// New builds the pipeline from configuration. The registry may be nil, in
// which case scoring is always rule-based.
func New(cfg *config.Config, reg *registry.Registry) *Pipeline {
	minConf := cfg.Aspects.MinLandmarkConfidence
	ranges := Ranges(cfg)

	return &Pipeline{
		calculators: []metrics.Calculator{
			metrics.NewShoulderAlignmentCalculator(minConf),
			metrics.NewWristAngleCalculator(minConf, pose.RightElbow, pose.RightWrist, pose.RightIndex),
			metrics.NewHandMovementCalculator(minConf, pose.RightWrist,
				cfg.Analysis.MovementWindowFrames, cfg.Analysis.MovementMinValidFrames,
				cfg.Analysis.InterpolateMaxGap),
			metrics.NewFingerPositionCalculator(minConf),
		},
		aggregator: technique.NewAggregator(cfg.Analysis.MinSampleCount),
		rule:       technique.NewRuleBasedScorer(ranges),
		feedback:   technique.NewFeedbackGenerator(ranges, cfg.Analysis.PraiseEnabled),
		registry:   reg,
		weights: map[metrics.Aspect]float64{
			metrics.AspectShoulderAlignment: cfg.Analysis.Weights.Shoulder,
			metrics.AspectWristAngle:        cfg.Analysis.Weights.Wrist,
			metrics.AspectHandMovement:      cfg.Analysis.Weights.Hand,
			metrics.AspectFingerPosition:    cfg.Analysis.Weights.Finger,
		},
		timeout: time.Duration(cfg.Analysis.AnalysisTimeoutSeconds) * time.Second,
	}
}

// Ranges maps the configured per-aspect good ranges.
func Ranges(cfg *config.Config) map[metrics.Aspect]technique.GoodRange {
	return map[metrics.Aspect]technique.GoodRange{
		metrics.AspectShoulderAlignment: {Low: cfg.Aspects.ShoulderRange.Low, High: cfg.Aspects.ShoulderRange.High},
		metrics.AspectWristAngle: {
			Low:     cfg.Aspects.WristRange.Low,
			High:    cfg.Aspects.WristRange.High,
			Neutral: cfg.Aspects.WristNeutralAngle,
		},
		metrics.AspectHandMovement:      {Low: cfg.Aspects.HandStabilityRange.Low, High: cfg.Aspects.HandStabilityRange.High},
		metrics.AspectFingerPosition:    {Low: cfg.Aspects.FingerCurlRange.Low, High: cfg.Aspects.FingerCurlRange.High},
	}
}

// Analyze runs the full scoring chain over one sequence. The configured
// analysis timeout is applied on top of the caller's context; if it
// expires mid-computation, the aspects computed so far keep their results
// and the rest report insufficient data.
func (p *Pipeline) Analyze(ctx context.Context, seq *pose.Sequence) *Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	aggregates := make([]technique.Aggregate, 0, len(p.calculators))
	for _, calc := range p.calculators {
		if ctx.Err() != nil {
			// Out of time: everything not yet computed is missing data.
			log.Printf("Analysis timed out; aspect %s and later report insufficient data", calc.Aspect())
			aggregates = append(aggregates, technique.Aggregate{
				Aspect: calc.Aspect(),
				Status: technique.StatusInsufficientData,
			})
			continue
		}
		samples := calc.Compute(seq)
		aggregates = append(aggregates, p.aggregator.Aggregate(calc.Aspect(), samples))
	}

	scores, mode := p.score(aggregates)
	composite, ok := technique.Composite(scores, p.weights)

	return &Result{
		Aspects:         scores,
		Composite:       composite,
		HasComposite:    ok,
		Mode:            mode,
		Features:        technique.FeatureVector(aggregates),
		Recommendations: p.feedback.Generate(scores),
	}
}

// score prefers the active learned model and falls back to the rule-based
// baseline. A fallback while a model is active is a degraded-mode event:
// it is logged and flagged in the result, never silent.
func (p *Pipeline) score(aggregates []technique.Aggregate) ([]technique.AspectScore, technique.Mode) {
	if p.registry != nil {
		if m := p.registry.ActiveModel(); m != nil {
			scores, err := technique.NewLearnedScorer(m).Score(aggregates)
			if err == nil {
				return scores, technique.ModeLearned
			}
			log.Printf("Learned scorer unavailable (%v); falling back to rule-based scoring", err)
			scores, ruleErr := p.rule.Score(aggregates)
			if ruleErr != nil {
				log.Printf("Rule-based scorer failed after fallback: %v", ruleErr)
				return nil, technique.ModeRuleBasedFallback
			}
			return scores, technique.ModeRuleBasedFallback
		}
	}

	scores, err := p.rule.Score(aggregates)
	if err != nil {
		log.Printf("Rule-based scorer failed: %v", err)
		return nil, technique.ModeRuleBased
	}
	return scores, technique.ModeRuleBased
}
