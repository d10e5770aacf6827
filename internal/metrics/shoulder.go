package metrics

import (
	"math"

	"github.com/ayusman/fretsense/internal/pose"
)

// ShoulderAlignmentCalculator measures the angle of the line between the
// shoulders relative to horizontal, in degrees. Positive means the right
// shoulder sits higher than the left.
type ShoulderAlignmentCalculator struct {
	minConfidence float64
}

// NewShoulderAlignmentCalculator creates a calculator that requires both
// shoulder landmarks at minConfidence or above.
func NewShoulderAlignmentCalculator(minConfidence float64) *ShoulderAlignmentCalculator {
	return &ShoulderAlignmentCalculator{minConfidence: minConfidence}
}

// Aspect implements Calculator.
func (c *ShoulderAlignmentCalculator) Aspect() Aspect {
	return AspectShoulderAlignment
}

// Compute emits one sample per frame. Frames missing either shoulder emit a
// confidence-0 sample so the gap stays visible downstream.
func (c *ShoulderAlignmentCalculator) Compute(seq *pose.Sequence) []Sample {
	frames := seq.Frames()
	samples := make([]Sample, 0, len(frames))

	for i := range frames {
		f := &frames[i]
		left, okL := f.Landmark(pose.LeftShoulder, c.minConfidence)
		right, okR := f.Landmark(pose.RightShoulder, c.minConfidence)
		if !okL || !okR {
			samples = append(samples, Sample{Aspect: AspectShoulderAlignment, FrameIndex: f.Index})
			continue
		}

		// Image y grows downward, so a smaller right-shoulder y means the
		// right shoulder is higher and the angle comes out positive.
		dx := math.Abs(right.X - left.X)
		dy := left.Y - right.Y
		angle := math.Atan2(dy, dx) * 180 / math.Pi

		conf := left.Confidence
		if right.Confidence < conf {
			conf = right.Confidence
		}

		samples = append(samples, Sample{
			Aspect:     AspectShoulderAlignment,
			FrameIndex: f.Index,
			Value:      angle,
			Confidence: conf,
		})
	}

	return samples
}
