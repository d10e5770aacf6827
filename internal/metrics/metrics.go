// Package metrics computes per-frame biomechanical metrics from pose
// landmark sequences.
package metrics

import "github.com/ayusman/fretsense/internal/pose"

// Aspect identifies one tracked biomechanical dimension.
type Aspect string

const (
	// AspectShoulderAlignment tracks the tilt of the shoulder line.
	AspectShoulderAlignment Aspect = "shoulder_alignment"
	// AspectWristAngle tracks wrist deflection of the picking arm.
	AspectWristAngle Aspect = "wrist_angle"
	// AspectHandMovement tracks positional stability of the picking hand.
	AspectHandMovement Aspect = "hand_movement"
	// AspectFingerPosition tracks fretting-finger curvature.
	AspectFingerPosition Aspect = "finger_position"
)

// Aspects returns all tracked aspects in their canonical order. The order
// is load-bearing: feature vectors and aggregation reports follow it.
func Aspects() []Aspect {
	return []Aspect{
		AspectShoulderAlignment,
		AspectWristAngle,
		AspectHandMovement,
		AspectFingerPosition,
	}
}

// Sample is one per-frame (or per-window) metric observation. A confidence
// of 0 means the metric could not be computed for that frame; such samples
// must be excluded from aggregation, never treated as a zero value.
type Sample struct {
	Aspect     Aspect
	FrameIndex int
	Value      float64
	Confidence float64
}

// Calculator maps a landmark sequence to a series of metric samples for one
// aspect.
type Calculator interface {
	Aspect() Aspect
	Compute(seq *pose.Sequence) []Sample
}
