package metrics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/fretsense/internal/pose"
)

// Default sliding-window parameters for hand movement stability.
const (
	DefaultMovementWindow    = 5
	DefaultMovementMinFrames = 3
)

// HandMovementCalculator measures positional stability of the picking hand
// over a sliding window of wrist positions. The metric is the inverse of
// the positional variance within the window, so a steadier hand scores
// higher. Windows with fewer than the minimum valid frames emit a
// confidence-0 sample.
type HandMovementCalculator struct {
	minConfidence  float64
	wrist          string
	windowSize     int
	minValidFrames int
	maxGapFrames   int
}

// NewHandMovementCalculator creates a calculator tracking the given wrist
// landmark. Non-positive window parameters fall back to the defaults. A
// positive maxGapFrames enables linear interpolation of wrist positions
// across detection gaps of at most that many frames; zero disables it.
func NewHandMovementCalculator(minConfidence float64, wrist string, windowSize, minValidFrames, maxGapFrames int) *HandMovementCalculator {
	if windowSize <= 0 {
		windowSize = DefaultMovementWindow
	}
	if minValidFrames <= 0 {
		minValidFrames = DefaultMovementMinFrames
	}
	return &HandMovementCalculator{
		minConfidence:  minConfidence,
		wrist:          wrist,
		windowSize:     windowSize,
		minValidFrames: minValidFrames,
		maxGapFrames:   maxGapFrames,
	}
}

// Aspect implements Calculator.
func (c *HandMovementCalculator) Aspect() Aspect {
	return AspectHandMovement
}

// Compute slides a window over the frame sequence and emits one sample per
// window position, indexed by the window's last frame. Wrist positions come
// from the sequence's confidence-filtered track; with interpolation enabled,
// short detection gaps are filled before windowing.
func (c *HandMovementCalculator) Compute(seq *pose.Sequence) []Sample {
	frames := seq.Frames()
	if len(frames) < c.windowSize {
		return nil
	}

	track := seq.Track(c.wrist, c.minConfidence)
	if c.maxGapFrames > 0 {
		track = pose.InterpolateGaps(track, c.maxGapFrames)
	}
	points := make(map[int]pose.TrackPoint, len(track))
	for _, tp := range track {
		points[tp.FrameIndex] = tp
	}

	samples := make([]Sample, 0, len(frames)-c.windowSize+1)

	for start := 0; start+c.windowSize <= len(frames); start++ {
		window := frames[start : start+c.windowSize]
		endIndex := window[len(window)-1].Index

		xs := make([]float64, 0, c.windowSize)
		ys := make([]float64, 0, c.windowSize)
		confSum := 0.0
		for i := range window {
			tp, ok := points[window[i].Index]
			if !ok {
				continue
			}
			xs = append(xs, tp.X)
			ys = append(ys, tp.Y)
			confSum += tp.Confidence
		}

		if len(xs) < c.minValidFrames {
			samples = append(samples, Sample{Aspect: AspectHandMovement, FrameIndex: endIndex})
			continue
		}

		posVariance := stat.Variance(xs, nil) + stat.Variance(ys, nil)
		stability := 1 / (1 + posVariance)

		samples = append(samples, Sample{
			Aspect:     AspectHandMovement,
			FrameIndex: endIndex,
			Value:      stability,
			Confidence: confSum / float64(len(xs)),
		})
	}

	return samples
}
