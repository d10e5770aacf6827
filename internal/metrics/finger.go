package metrics

import "github.com/ayusman/fretsense/internal/pose"

// FingerPositionCalculator estimates fretting-finger curvature per frame:
// the interior angle at each finger's PIP joint (180° is a flat finger,
// smaller is more curled), averaged across the fingers visible in that
// frame. Confidence is the fraction of fingers visible.
type FingerPositionCalculator struct {
	minConfidence float64
}

// NewFingerPositionCalculator creates a calculator requiring each joint of
// a finger at minConfidence or above for that finger to count as visible.
func NewFingerPositionCalculator(minConfidence float64) *FingerPositionCalculator {
	return &FingerPositionCalculator{minConfidence: minConfidence}
}

// Aspect implements Calculator.
func (c *FingerPositionCalculator) Aspect() Aspect {
	return AspectFingerPosition
}

// Compute emits one sample per frame. Frames with no visible finger emit a
// confidence-0 sample.
func (c *FingerPositionCalculator) Compute(seq *pose.Sequence) []Sample {
	frames := seq.Frames()
	samples := make([]Sample, 0, len(frames))

	for i := range frames {
		f := &frames[i]

		sum := 0.0
		visible := 0
		for _, joints := range pose.FingerJoints {
			mcp, okM := f.Landmark(joints[0], c.minConfidence)
			pip, okP := f.Landmark(joints[1], c.minConfidence)
			dip, okD := f.Landmark(joints[2], c.minConfidence)
			if !okM || !okP || !okD {
				continue
			}
			sum += pose.AngleAt(mcp, pip, dip)
			visible++
		}

		if visible == 0 {
			samples = append(samples, Sample{Aspect: AspectFingerPosition, FrameIndex: f.Index})
			continue
		}

		samples = append(samples, Sample{
			Aspect:     AspectFingerPosition,
			FrameIndex: f.Index,
			Value:      sum / float64(visible),
			Confidence: float64(visible) / float64(len(pose.FingerJoints)),
		})
	}

	return samples
}
