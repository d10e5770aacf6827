package metrics

import (
	"math"
	"testing"

	"github.com/ayusman/fretsense/internal/pose"
)

// newTestSequence builds a sequence from the given frames, assigning
// indices and timestamps in order.
func newTestSequence(t *testing.T, frames ...pose.Frame) *pose.Sequence {
	t.Helper()
	seq := pose.NewSequence()
	for i := range frames {
		frames[i].Index = i
		frames[i].Timestamp = float64(i) / 30.0
		if err := seq.Append(frames[i]); err != nil {
			t.Fatalf("append frame %d: %v", i, err)
		}
	}
	return seq
}

func shoulderFrame(leftY, rightY, conf float64) pose.Frame {
	return pose.Frame{
		Detected: true,
		Landmarks: map[string]pose.Landmark{
			pose.LeftShoulder:  {X: 0.4, Y: leftY, Confidence: conf},
			pose.RightShoulder: {X: 0.6, Y: rightY, Confidence: conf},
		},
	}
}

func TestShoulderAlignmentLevel(t *testing.T) {
	seq := newTestSequence(t, shoulderFrame(0.35, 0.35, 0.9), shoulderFrame(0.35, 0.35, 0.9))

	samples := NewShoulderAlignmentCalculator(0.5).Compute(seq)
	if len(samples) != 2 {
		t.Fatalf("sample count = %d, want 2", len(samples))
	}
	for _, s := range samples {
		if math.Abs(s.Value) > 1e-9 {
			t.Errorf("level shoulders: angle = %f, want 0", s.Value)
		}
		if s.Confidence != 0.9 {
			t.Errorf("confidence = %f, want 0.9", s.Confidence)
		}
	}
}

func TestShoulderAlignmentTiltSign(t *testing.T) {
	// Right shoulder higher (smaller y) must read positive.
	seq := newTestSequence(t, shoulderFrame(0.40, 0.30, 0.9))
	samples := NewShoulderAlignmentCalculator(0.5).Compute(seq)

	want := math.Atan2(0.10, 0.2) * 180 / math.Pi
	if math.Abs(samples[0].Value-want) > 1e-6 {
		t.Errorf("angle = %f, want %f", samples[0].Value, want)
	}

	// Mirrored tilt must read negative with the same magnitude.
	seq = newTestSequence(t, shoulderFrame(0.30, 0.40, 0.9))
	samples = NewShoulderAlignmentCalculator(0.5).Compute(seq)
	if math.Abs(samples[0].Value+want) > 1e-6 {
		t.Errorf("mirrored angle = %f, want %f", samples[0].Value, -want)
	}
}

func TestShoulderAlignmentMissingLandmark(t *testing.T) {
	missing := pose.Frame{
		Detected: true,
		Landmarks: map[string]pose.Landmark{
			pose.LeftShoulder: {X: 0.4, Y: 0.35, Confidence: 0.9},
		},
	}
	seq := newTestSequence(t, missing, shoulderFrame(0.35, 0.35, 0.2))

	samples := NewShoulderAlignmentCalculator(0.5).Compute(seq)
	if len(samples) != 2 {
		t.Fatalf("sample count = %d, want 2", len(samples))
	}
	for i, s := range samples {
		if s.Confidence != 0 {
			t.Errorf("frame %d: confidence = %f, want 0 for unusable frame", i, s.Confidence)
		}
	}
}
