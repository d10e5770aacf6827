package pose

import (
	"errors"
	"testing"
)

func frameAt(index int, timestamp float64) Frame {
	return Frame{
		Index:     index,
		Timestamp: timestamp,
		Detected:  true,
		Landmarks: map[string]Landmark{
			RightWrist: {X: 0.5, Y: 0.5, Confidence: 0.9},
		},
	}
}

func TestSequenceAppendOrdering(t *testing.T) {
	seq := NewSequence()

	if err := seq.Append(frameAt(0, 0.0)); err != nil {
		t.Fatalf("append frame 0: %v", err)
	}
	if err := seq.Append(frameAt(1, 0.033)); err != nil {
		t.Fatalf("append frame 1: %v", err)
	}

	// Regressing frame index must be rejected.
	if err := seq.Append(frameAt(1, 0.066)); !errors.Is(err, ErrSequenceOrder) {
		t.Errorf("duplicate index: got %v, want ErrSequenceOrder", err)
	}

	// Regressing timestamp must be rejected.
	if err := seq.Append(frameAt(2, 0.01)); !errors.Is(err, ErrSequenceOrder) {
		t.Errorf("backwards timestamp: got %v, want ErrSequenceOrder", err)
	}

	// A valid frame after rejections still appends.
	if err := seq.Append(frameAt(2, 0.066)); err != nil {
		t.Fatalf("append frame 2: %v", err)
	}
	if seq.Len() != 3 {
		t.Errorf("Len = %d, want 3", seq.Len())
	}
}

func TestSequenceDetectedCount(t *testing.T) {
	seq := NewSequence()
	seq.Append(frameAt(0, 0.0))
	seq.Append(Frame{Index: 1, Timestamp: 0.033}) // detection gap
	seq.Append(frameAt(2, 0.066))

	if got := seq.DetectedCount(); got != 2 {
		t.Errorf("DetectedCount = %d, want 2", got)
	}
}

func TestTrackPreservesGaps(t *testing.T) {
	seq := NewSequence()
	seq.Append(frameAt(0, 0.0))
	seq.Append(Frame{Index: 1, Timestamp: 0.033}) // no detection
	seq.Append(Frame{Index: 2, Timestamp: 0.066, Detected: true,
		Landmarks: map[string]Landmark{RightWrist: {X: 0.6, Y: 0.5, Confidence: 0.2}}}) // low confidence
	seq.Append(frameAt(3, 0.1))

	track := seq.Track(RightWrist, 0.5)
	if len(track) != 2 {
		t.Fatalf("track length = %d, want 2", len(track))
	}
	if track[0].FrameIndex != 0 || track[1].FrameIndex != 3 {
		t.Errorf("track indices = %d, %d; want 0, 3", track[0].FrameIndex, track[1].FrameIndex)
	}
}

func TestInterpolateGaps(t *testing.T) {
	track := []TrackPoint{
		{FrameIndex: 0, X: 0.0, Y: 0.0, Confidence: 0.9},
		{FrameIndex: 3, X: 0.3, Y: 0.6, Confidence: 0.6},
	}

	filled := InterpolateGaps(track, 2)
	if len(filled) != 4 {
		t.Fatalf("filled length = %d, want 4", len(filled))
	}

	// Linear interpolation at frame 1: one third of the way.
	p := filled[1]
	if p.FrameIndex != 1 {
		t.Fatalf("frame index = %d, want 1", p.FrameIndex)
	}
	if p.X < 0.099 || p.X > 0.101 {
		t.Errorf("interpolated X = %f, want 0.1", p.X)
	}
	if p.Y < 0.199 || p.Y > 0.201 {
		t.Errorf("interpolated Y = %f, want 0.2", p.Y)
	}
	// Interpolated points carry the lower endpoint confidence.
	if p.Confidence != 0.6 {
		t.Errorf("interpolated confidence = %f, want 0.6", p.Confidence)
	}
}

func TestInterpolateGapsLeavesLargeGaps(t *testing.T) {
	track := []TrackPoint{
		{FrameIndex: 0, X: 0.0, Confidence: 0.9},
		{FrameIndex: 10, X: 1.0, Confidence: 0.9},
	}

	filled := InterpolateGaps(track, 3)
	if len(filled) != 2 {
		t.Errorf("filled length = %d, want gap of 9 frames left open", len(filled))
	}
}
