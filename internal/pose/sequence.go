package pose

import (
	"errors"
	"fmt"
)

// ErrSequenceOrder is returned when an appended frame violates the sequence
// ordering invariant (strictly increasing frame index, monotonic timestamps).
var ErrSequenceOrder = errors.New("sequence order violation")

// Sequence accumulates the ordered pose frames of one video clip. It owns
// its frames for the duration of a session; one analysis request reads it
// sequentially, so it is not safe for concurrent mutation.
type Sequence struct {
	frames []Frame
}

// NewSequence creates an empty Sequence.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Append adds a frame to the sequence. The frame index must strictly
// increase and the timestamp must not go backwards.
func (s *Sequence) Append(f Frame) error {
	if n := len(s.frames); n > 0 {
		last := s.frames[n-1]
		if f.Index <= last.Index {
			return fmt.Errorf("%w: frame index %d after %d", ErrSequenceOrder, f.Index, last.Index)
		}
		if f.Timestamp < last.Timestamp {
			return fmt.Errorf("%w: timestamp %.3f after %.3f", ErrSequenceOrder, f.Timestamp, last.Timestamp)
		}
	}
	s.frames = append(s.frames, f)
	return nil
}

// Frames returns the accumulated frames in order.
func (s *Sequence) Frames() []Frame {
	return s.frames
}

// Len returns the number of accumulated frames.
func (s *Sequence) Len() int {
	return len(s.frames)
}

// DetectedCount returns the number of frames with a successful detection.
func (s *Sequence) DetectedCount() int {
	n := 0
	for i := range s.frames {
		if s.frames[i].Detected {
			n++
		}
	}
	return n
}

// TrackPoint is one position observation of a single landmark.
type TrackPoint struct {
	FrameIndex int
	X          float64
	Y          float64
	Z          float64
	Confidence float64
}

// Track returns the ordered positions of one landmark across the sequence,
// skipping frames where detection failed or the landmark's confidence is
// below minConfidence. Frame indices in the result may be non-contiguous:
// gaps are preserved, never silently filled. Use InterpolateGaps to fill
// them explicitly.
func (s *Sequence) Track(name string, minConfidence float64) []TrackPoint {
	var track []TrackPoint
	for i := range s.frames {
		f := &s.frames[i]
		lm, ok := f.Landmark(name, minConfidence)
		if !ok {
			continue
		}
		track = append(track, TrackPoint{
			FrameIndex: f.Index,
			X:          lm.X,
			Y:          lm.Y,
			Z:          lm.Z,
			Confidence: lm.Confidence,
		})
	}
	return track
}

// InterpolateGaps fills gaps in a landmark track by linear interpolation of
// x/y/z between the surrounding observations. Only gaps of at most
// maxGapFrames missing frames are filled; larger gaps are left as-is.
// Interpolated points carry the lower confidence of the two endpoints.
func InterpolateGaps(track []TrackPoint, maxGapFrames int) []TrackPoint {
	if len(track) < 2 || maxGapFrames <= 0 {
		return track
	}

	result := make([]TrackPoint, 0, len(track))
	result = append(result, track[0])

	for i := 1; i < len(track); i++ {
		prev := track[i-1]
		next := track[i]
		missing := next.FrameIndex - prev.FrameIndex - 1

		if missing > 0 && missing <= maxGapFrames {
			conf := prev.Confidence
			if next.Confidence < conf {
				conf = next.Confidence
			}
			span := float64(next.FrameIndex - prev.FrameIndex)
			for idx := prev.FrameIndex + 1; idx < next.FrameIndex; idx++ {
				frac := float64(idx-prev.FrameIndex) / span
				result = append(result, TrackPoint{
					FrameIndex: idx,
					X:          prev.X + frac*(next.X-prev.X),
					Y:          prev.Y + frac*(next.Y-prev.Y),
					Z:          prev.Z + frac*(next.Z-prev.Z),
					Confidence: conf,
				})
			}
		}

		result = append(result, next)
	}

	return result
}
