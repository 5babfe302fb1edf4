// Package detector provides the hand landmark provider contract and its implementations.
package detector

import (
	"errors"
	"fmt"
)

// ErrMalformedHand is returned when a provider reports a hand that does not
// carry the full landmark set.
var ErrMalformedHand = errors.New("malformed hand observation")

// LandmarkID names one of the 21 hand landmarks, following the MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
type LandmarkID int

const (
	Wrist LandmarkID = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip
)

// NumLandmarks is the number of landmarks in every detected hand.
const NumLandmarks = 21

var landmarkNames = [NumLandmarks]string{
	"WRIST",
	"THUMB_CMC",
	"THUMB_MCP",
	"THUMB_IP",
	"THUMB_TIP",
	"INDEX_FINGER_MCP",
	"INDEX_FINGER_PIP",
	"INDEX_FINGER_DIP",
	"INDEX_FINGER_TIP",
	"MIDDLE_FINGER_MCP",
	"MIDDLE_FINGER_PIP",
	"MIDDLE_FINGER_DIP",
	"MIDDLE_FINGER_TIP",
	"RING_FINGER_MCP",
	"RING_FINGER_PIP",
	"RING_FINGER_DIP",
	"RING_FINGER_TIP",
	"PINKY_MCP",
	"PINKY_PIP",
	"PINKY_DIP",
	"PINKY_TIP",
}

// String returns the MediaPipe name of the landmark, e.g. "THUMB_TIP".
func (id LandmarkID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("LandmarkID(%d)", int(id))
	}
	return landmarkNames[id]
}

// Valid reports whether id is one of the 21 known landmarks.
func (id LandmarkID) Valid() bool {
	return id >= Wrist && id <= PinkyTip
}

// Point3D represents a landmark position. X and Y are normalized to the image
// width and height with the origin at the top-left corner; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents one detected hand. The fixed-size array guarantees
// every named landmark is present.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Point returns the landmark with the given name.
func (h *HandLandmarks) Point(id LandmarkID) Point3D {
	return h.Points[id]
}

// NewHandLandmarks builds a hand from a provider's point list.
// It returns ErrMalformedHand unless exactly NumLandmarks points are given.
func NewHandLandmarks(points []Point3D, handedness string, score float64) (HandLandmarks, error) {
	if len(points) != NumLandmarks {
		return HandLandmarks{}, fmt.Errorf("%w: got %d landmarks, want %d", ErrMalformedHand, len(points), NumLandmarks)
	}

	h := HandLandmarks{
		Handedness: handedness,
		Score:      score,
	}
	copy(h.Points[:], points)
	return h, nil
}

// DecodeHands parses hands in the landmark service's JSON form,
// {"hands":[{"points":[{"x":..,"y":..,"z":..}, ...],"handedness":"Right","score":0.9}]}.
// Every hand must carry exactly NumLandmarks points. Unknown keys are ignored.
func DecodeHands(data []byte) ([]HandLandmarks, error) {
	return decodeResponse(data, 0)
}
