// Package pose provides pose landmark types and the per-clip landmark
// sequence buffer used by the technique analysis pipeline.
package pose

import "math"

// Body landmark names following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose          = "nose"
	LeftShoulder  = "left_shoulder"
	RightShoulder = "right_shoulder"
	LeftElbow     = "left_elbow"
	RightElbow    = "right_elbow"
	LeftWrist     = "left_wrist"
	RightWrist    = "right_wrist"
	LeftIndex     = "left_index"
	RightIndex    = "right_index"
	LeftHip       = "left_hip"
	RightHip      = "right_hip"
)

// Fretting-hand finger joint names. The detector reports hand joints with a
// "fret_" prefix so body and hand landmarks share one namespace per frame.
// Joints follow the MediaPipe hand convention: MCP (knuckle), PIP (middle
// joint), DIP, TIP from palm outward.
const (
	FretIndexMCP  = "fret_index_mcp"
	FretIndexPIP  = "fret_index_pip"
	FretIndexDIP  = "fret_index_dip"
	FretIndexTip  = "fret_index_tip"
	FretMiddleMCP = "fret_middle_mcp"
	FretMiddlePIP = "fret_middle_pip"
	FretMiddleDIP = "fret_middle_dip"
	FretMiddleTip = "fret_middle_tip"
	FretRingMCP   = "fret_ring_mcp"
	FretRingPIP   = "fret_ring_pip"
	FretRingDIP   = "fret_ring_dip"
	FretRingTip   = "fret_ring_tip"
	FretPinkyMCP  = "fret_pinky_mcp"
	FretPinkyPIP  = "fret_pinky_pip"
	FretPinkyDIP  = "fret_pinky_dip"
	FretPinkyTip  = "fret_pinky_tip"
)

// FingerJoints lists the (MCP, PIP, DIP) joint triplet per fretting finger,
// in the order index, middle, ring, pinky.
var FingerJoints = [][3]string{
	{FretIndexMCP, FretIndexPIP, FretIndexDIP},
	{FretMiddleMCP, FretMiddlePIP, FretMiddleDIP},
	{FretRingMCP, FretRingPIP, FretRingDIP},
	{FretPinkyMCP, FretPinkyPIP, FretPinkyDIP},
}

// Landmark is a single named 3D keypoint with its detection confidence.
// Coordinates are normalized to [0,1] in image space (y grows downward)
// unless the configured coordinate format is pixel.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Confidence float64 `json:"confidence"`
}

// Frame is one frame's detection result. Immutable once produced.
type Frame struct {
	Index     int                 `json:"frame_index"`
	Timestamp float64             `json:"timestamp"` // seconds from clip start
	Landmarks map[string]Landmark `json:"landmarks"`
	Detected  bool                `json:"detected"`
}

// Landmark returns the named landmark if the frame detected a pose and the
// landmark's confidence is at least minConfidence.
func (f *Frame) Landmark(name string, minConfidence float64) (Landmark, bool) {
	if !f.Detected {
		return Landmark{}, false
	}
	lm, ok := f.Landmarks[name]
	if !ok || lm.Confidence < minConfidence {
		return Landmark{}, false
	}
	return lm, true
}

// Distance calculates the Euclidean distance between two landmarks.
func Distance(a, b Landmark) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// AngleAt returns the interior angle in degrees at vertex b formed by the
// segments b→a and b→c. Returns 0 if either segment has zero length.
func AngleAt(a, b, c Landmark) float64 {
	v1x, v1y, v1z := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	v2x, v2y, v2z := c.X-b.X, c.Y-b.Y, c.Z-b.Z

	n1 := math.Sqrt(v1x*v1x + v1y*v1y + v1z*v1z)
	n2 := math.Sqrt(v2x*v2x + v2y*v2y + v2z*v2z)
	if n1 < 1e-10 || n2 < 1e-10 {
		return 0
	}

	cos := (v1x*v2x + v1y*v2y + v1z*v2z) / (n1 * n2)
	// Clamp against floating point drift before acos.
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos) * 180 / math.Pi
}
