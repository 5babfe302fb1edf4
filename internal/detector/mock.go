package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// curledFingers places the middle, ring and pinky fingers folded near the palm,
// offset vertically by dy.
func curledFingers(lm *HandLandmarks, dy float64) {
	lm.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68 + dy, Z: -0.02}
	lm.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66 + dy, Z: -0.05}
	lm.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68 + dy, Z: -0.04}
	lm.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.70 + dy, Z: -0.02}

	lm.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70 + dy, Z: -0.02}
	lm.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68 + dy, Z: -0.05}
	lm.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70 + dy, Z: -0.04}
	lm.Points[RingTip] = Point3D{X: 0.40, Y: 0.72 + dy, Z: -0.02}

	lm.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72 + dy, Z: -0.02}
	lm.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70 + dy, Z: -0.05}
	lm.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72 + dy, Z: -0.04}
	lm.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74 + dy, Z: -0.02}
}

// ThumbsUpLandmarks returns a right hand with the thumb extended upward and the
// other fingers curled. The thumb tip sits well above the index fingertip.
func ThumbsUpLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	lm.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended upward (Y decreases going up)
	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	lm.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.65, Z: 0.0}
	lm.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	lm.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	// Index finger curled, tip near the palm
	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: -0.02}
	lm.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}
	lm.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}
	lm.Points[IndexTip] = Point3D{X: 0.50, Y: 0.72, Z: -0.02}

	curledFingers(&lm, 0)
	return lm
}

// ThumbsDownLandmarks returns a right hand with the thumb pointing down, its tip
// well below the index fingertip.
func ThumbsDownLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: "Right",
		Score:      0.93,
	}

	lm.Points[Wrist] = Point3D{X: 0.5, Y: 0.35, Z: 0.0}

	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.40, Z: 0.0}
	lm.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	lm.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.65, Z: 0.0}
	lm.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.80, Z: 0.0}

	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.45, Z: -0.02}
	lm.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.47, Z: -0.05}
	lm.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.45, Z: -0.04}
	lm.Points[IndexTip] = Point3D{X: 0.50, Y: 0.43, Z: -0.02}

	curledFingers(&lm, -0.25)
	return lm
}

// OKLandmarks returns a right hand forming a ring with thumb and index fingertips
// touching, the remaining fingers extended.
func OKLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: "Right",
		Score:      0.97,
	}

	lm.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	lm.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.68, Z: 0.0}
	lm.Points[ThumbIP] = Point3D{X: 0.62, Y: 0.60, Z: 0.0}
	lm.Points[ThumbTip] = Point3D{X: 0.61, Y: 0.54, Z: 0.0}

	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.66, Z: 0.0}
	lm.Points[IndexPIP] = Point3D{X: 0.58, Y: 0.58, Z: -0.02}
	lm.Points[IndexDIP] = Point3D{X: 0.60, Y: 0.54, Z: -0.03}
	lm.Points[IndexTip] = Point3D{X: 0.61, Y: 0.53, Z: -0.02}

	// Middle, ring and pinky extended upward
	lm.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	lm.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	lm.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	lm.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	lm.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	lm.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	lm.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	lm.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	lm.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	lm.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	lm.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	lm.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return lm
}

// RaisedPalmLandmarks returns an open palm held high, wrist at y=0.45, centered
// horizontally on x. The thumb tip and index fingertip are level with each other.
func RaisedPalmLandmarks(handedness string, x float64) HandLandmarks {
	lm := HandLandmarks{
		Handedness: handedness,
		Score:      0.94,
	}

	side := 1.0
	if handedness == "Left" {
		side = -1.0
	}

	lm.Points[Wrist] = Point3D{X: x, Y: 0.45, Z: 0.0}

	lm.Points[ThumbCMC] = Point3D{X: x + side*0.04, Y: 0.42, Z: 0.02}
	lm.Points[ThumbMCP] = Point3D{X: x + side*0.08, Y: 0.38, Z: 0.03}
	lm.Points[ThumbIP] = Point3D{X: x + side*0.11, Y: 0.33, Z: 0.03}
	lm.Points[ThumbTip] = Point3D{X: x + side*0.14, Y: 0.20, Z: 0.03}

	lm.Points[IndexMCP] = Point3D{X: x + side*0.04, Y: 0.34, Z: 0.0}
	lm.Points[IndexPIP] = Point3D{X: x + side*0.05, Y: 0.27, Z: 0.0}
	lm.Points[IndexDIP] = Point3D{X: x + side*0.05, Y: 0.23, Z: 0.0}
	lm.Points[IndexTip] = Point3D{X: x + side*0.05, Y: 0.20, Z: 0.0}

	lm.Points[MiddleMCP] = Point3D{X: x, Y: 0.33, Z: 0.0}
	lm.Points[MiddlePIP] = Point3D{X: x, Y: 0.25, Z: 0.0}
	lm.Points[MiddleDIP] = Point3D{X: x, Y: 0.20, Z: 0.0}
	lm.Points[MiddleTip] = Point3D{X: x, Y: 0.16, Z: 0.0}

	lm.Points[RingMCP] = Point3D{X: x - side*0.03, Y: 0.34, Z: 0.0}
	lm.Points[RingPIP] = Point3D{X: x - side*0.04, Y: 0.27, Z: 0.0}
	lm.Points[RingDIP] = Point3D{X: x - side*0.04, Y: 0.23, Z: 0.0}
	lm.Points[RingTip] = Point3D{X: x - side*0.04, Y: 0.19, Z: 0.0}

	lm.Points[PinkyMCP] = Point3D{X: x - side*0.06, Y: 0.36, Z: 0.0}
	lm.Points[PinkyPIP] = Point3D{X: x - side*0.07, Y: 0.31, Z: 0.0}
	lm.Points[PinkyDIP] = Point3D{X: x - side*0.08, Y: 0.28, Z: 0.0}
	lm.Points[PinkyTip] = Point3D{X: x - side*0.08, Y: 0.25, Z: 0.0}

	return lm
}
