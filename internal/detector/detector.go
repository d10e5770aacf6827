// Package detector provides the pose detection boundary: implementations
// turn video frames into named pose landmarks for the analysis pipeline.
package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/fretsense/internal/pose"
)

// Detector defines the interface for pose detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the detected landmarks.
	// The returned frame has Landmarks and Detected set; the caller fills
	// in the frame index and timestamp. A frame with no detectable pose
	// returns Detected=false, not an error.
	Detect(frame *gocv.Mat) (*pose.Frame, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// ModelComplexity selects the pose model: 0 lite, 1 full, 2 heavy.
	ModelComplexity int

	// MinDetectionConfidence is the minimum detection confidence (0.0-1.0).
	MinDetectionConfidence float64

	// MinTrackingConfidence is the minimum tracking confidence (0.0-1.0).
	MinTrackingConfidence float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelComplexity:        1,
		MinDetectionConfidence: 0.6,
		MinTrackingConfidence:  0.5,
	}
}
