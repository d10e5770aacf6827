package metrics

import "github.com/ayusman/fretsense/internal/pose"

// WristAngleCalculator measures the deflection at the wrist: the angle
// between the forearm direction (elbow→wrist) and the hand direction
// (wrist→hand reference), in degrees within [0,180]. A straight wrist reads
// 0; scoring later compares against the configured neutral angle.
type WristAngleCalculator struct {
	minConfidence float64
	elbow         string
	wrist         string
	handRef       string
}

// NewWristAngleCalculator creates a calculator over the given arm landmarks.
// The hand reference is typically the index knuckle of the same arm.
func NewWristAngleCalculator(minConfidence float64, elbow, wrist, handRef string) *WristAngleCalculator {
	return &WristAngleCalculator{
		minConfidence: minConfidence,
		elbow:         elbow,
		wrist:         wrist,
		handRef:       handRef,
	}
}

// Aspect implements Calculator.
func (c *WristAngleCalculator) Aspect() Aspect {
	return AspectWristAngle
}

// Compute emits one sample per frame, confidence 0 when any of the three
// landmarks is missing or below the confidence threshold.
func (c *WristAngleCalculator) Compute(seq *pose.Sequence) []Sample {
	frames := seq.Frames()
	samples := make([]Sample, 0, len(frames))

	for i := range frames {
		f := &frames[i]
		elbow, okE := f.Landmark(c.elbow, c.minConfidence)
		wrist, okW := f.Landmark(c.wrist, c.minConfidence)
		hand, okH := f.Landmark(c.handRef, c.minConfidence)
		if !okE || !okW || !okH {
			samples = append(samples, Sample{Aspect: AspectWristAngle, FrameIndex: f.Index})
			continue
		}

		// The interior angle at the wrist is 180° for a straight arm;
		// deflection is its complement.
		deflection := 180 - pose.AngleAt(elbow, wrist, hand)

		conf := elbow.Confidence
		if wrist.Confidence < conf {
			conf = wrist.Confidence
		}
		if hand.Confidence < conf {
			conf = hand.Confidence
		}

		samples = append(samples, Sample{
			Aspect:     AspectWristAngle,
			FrameIndex: f.Index,
			Value:      deflection,
			Confidence: conf,
		})
	}

	return samples
}
