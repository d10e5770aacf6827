package technique

import (
	"fmt"

	"github.com/ayusman/fretsense/internal/metrics"
)

// Score bands for feedback severity.
const (
	correctiveBand = 60
	mildBand       = 80
)

// FeedbackGenerator maps aspect scores to ordered recommendation text via a
// fixed rule table keyed on (aspect, deviation direction) and score band.
// Output is deterministic for a given score set.
type FeedbackGenerator struct {
	ranges        map[metrics.Aspect]GoodRange
	praiseEnabled bool
}

// NewFeedbackGenerator creates a generator. When praiseEnabled is false,
// aspects at or above the mild band produce no message.
func NewFeedbackGenerator(ranges map[metrics.Aspect]GoodRange, praiseEnabled bool) *FeedbackGenerator {
	return &FeedbackGenerator{ranges: ranges, praiseEnabled: praiseEnabled}
}

// Generate returns recommendations ordered worst-scoring aspect first.
// Aspects without enough data get a closing note instead of advice.
func (g *FeedbackGenerator) Generate(scores []AspectScore) []string {
	ordered := make([]AspectScore, len(scores))
	copy(ordered, scores)
	SortWorstFirst(ordered)

	var out []string
	var missing []AspectScore

	for _, s := range ordered {
		if s.Status != StatusOK {
			missing = append(missing, s)
			continue
		}
		if msg := g.message(s); msg != "" {
			out = append(out, msg)
		}
	}

	for _, s := range missing {
		out = append(out, fmt.Sprintf("%s could not be assessed: not enough reliable detections in this clip", aspectLabel(s.Aspect)))
	}

	return out
}

func (g *FeedbackGenerator) message(s AspectScore) string {
	rng, ok := g.ranges[s.Aspect]
	if !ok {
		return ""
	}
	deviation := s.Mean - rng.Peak()

	switch {
	case s.Score < correctiveBand:
		return corrective(s.Aspect, deviation, s.Mean, rng)
	case s.Score < mildBand:
		return mild(s.Aspect, deviation)
	default:
		if g.praiseEnabled {
			return praise(s.Aspect)
		}
		return ""
	}
}

func corrective(aspect metrics.Aspect, deviation, mean float64, rng GoodRange) string {
	switch aspect {
	case metrics.AspectShoulderAlignment:
		if deviation > 0 {
			return fmt.Sprintf("right shoulder is %.1f° higher than level; drop and relax the picking shoulder", deviation)
		}
		return fmt.Sprintf("left shoulder is %.1f° higher than level; check the strap height and square up", -deviation)
	case metrics.AspectWristAngle:
		if mean > rng.High {
			return fmt.Sprintf("wrist extension is %.1f° above the optimal range; ease the wrist toward neutral", mean-rng.High)
		}
		return fmt.Sprintf("wrist is %.1f° flatter than the optimal range; allow a slight natural bend", rng.Low-mean)
	case metrics.AspectHandMovement:
		return fmt.Sprintf("picking hand is drifting (stability %.2f); anchor the forearm and keep strokes compact", mean)
	case metrics.AspectFingerPosition:
		if deviation > 0 {
			return fmt.Sprintf("fretting fingers are %.1f° too flat; curl them so the tips press the strings", deviation)
		}
		return fmt.Sprintf("fretting fingers are over-curled by %.1f°; relax the grip toward a natural arch", -deviation)
	}
	return ""
}

func mild(aspect metrics.Aspect, deviation float64) string {
	switch aspect {
	case metrics.AspectShoulderAlignment:
		return fmt.Sprintf("shoulders are slightly uneven (%.1f° off level); worth a glance in the mirror", abs(deviation))
	case metrics.AspectWristAngle:
		return fmt.Sprintf("wrist angle is %.1f° off neutral; mostly fine, keep an eye on it during faster passages", abs(deviation))
	case metrics.AspectHandMovement:
		return "picking hand movement is mostly steady; tighten it up on string crossings"
	case metrics.AspectFingerPosition:
		return fmt.Sprintf("finger curvature is %.1f° off the ideal arch; minor, but it will matter for barre chords", abs(deviation))
	}
	return ""
}

func praise(aspect metrics.Aspect) string {
	switch aspect {
	case metrics.AspectShoulderAlignment:
		return "shoulder posture looks level and relaxed, keep it up"
	case metrics.AspectWristAngle:
		return "wrist angle stays in the healthy range, nice"
	case metrics.AspectHandMovement:
		return "picking hand is steady and economical"
	case metrics.AspectFingerPosition:
		return "finger arch over the fretboard looks solid"
	}
	return ""
}

func aspectLabel(aspect metrics.Aspect) string {
	switch aspect {
	case metrics.AspectShoulderAlignment:
		return "shoulder alignment"
	case metrics.AspectWristAngle:
		return "wrist angle"
	case metrics.AspectHandMovement:
		return "hand movement"
	case metrics.AspectFingerPosition:
		return "finger position"
	}
	return string(aspect)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
