package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/fretsense/internal/pose"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests (and hosts without MediaPipe) to control detection
// results. By default every frame returns a neutral playing posture.
type MockDetector struct {
	frames []*pose.Frame
	next   int
	err    error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFrames sets the frames that Detect will return in order; once
// exhausted, the last frame repeats.
func (m *MockDetector) SetFrames(frames []*pose.Frame) {
	m.frames = frames
	m.next = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured frames or error. With neither
// configured it returns NeutralPostureFrame.
func (m *MockDetector) Detect(frame *gocv.Mat) (*pose.Frame, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.frames) == 0 {
		f := NeutralPostureFrame()
		return &f, nil
	}
	f := m.frames[m.next]
	if m.next < len(m.frames)-1 {
		m.next++
	}
	return f, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// NeutralPostureFrame returns a preset frame representing a seated player
// with level shoulders, a mildly bent picking wrist, and naturally curled
// fretting fingers. All landmarks carry confidence 0.9.
func NeutralPostureFrame() pose.Frame {
	lm := func(x, y, z float64) pose.Landmark {
		return pose.Landmark{X: x, Y: y, Z: z, Confidence: 0.9}
	}

	landmarks := map[string]pose.Landmark{
		pose.Nose:          lm(0.50, 0.20, 0),
		pose.LeftShoulder:  lm(0.40, 0.35, 0),
		pose.RightShoulder: lm(0.60, 0.35, 0),
		pose.LeftElbow:     lm(0.33, 0.50, 0),
		pose.RightElbow:    lm(0.68, 0.50, 0),
		pose.LeftWrist:     lm(0.30, 0.62, 0),
		pose.RightWrist:    lm(0.62, 0.62, 0),
		pose.LeftIndex:     lm(0.29, 0.66, 0),
		pose.LeftHip:       lm(0.43, 0.65, 0),
		pose.RightHip:      lm(0.57, 0.65, 0),
	}

	// Picking hand: index knuckle placed so the wrist deflects ~15° from
	// the forearm line.
	landmarks[pose.RightIndex] = pose.Landmark{X: 0.574, Y: 0.672, Z: 0, Confidence: 0.9}

	// Fretting fingers: MCP-PIP-DIP triplets with a gentle arch, interior
	// PIP angle around 155°.
	fingerX := []float64{0.26, 0.28, 0.30, 0.32}
	for i, joints := range pose.FingerJoints {
		x := fingerX[i]
		landmarks[joints[0]] = lm(x, 0.64, 0)        // MCP
		landmarks[joints[1]] = lm(x+0.015, 0.67, 0)  // PIP
		landmarks[joints[2]] = lm(x+0.016, 0.705, 0) // DIP
	}

	return pose.Frame{
		Detected:  true,
		Landmarks: landmarks,
	}
}
