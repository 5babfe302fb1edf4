package gesture

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ayusman/mudra/internal/detector"
)

// Classification thresholds. They are part of the gesture definitions and
// are not configurable.
const (
	// MaxHands is the largest number of hands a frame may carry.
	MaxHands = 2
	// ShenkaMaxWristY is the normalized wrist height both hands must be above.
	ShenkaMaxWristY = 0.6
	// OKMaxTipDistance is the pixel distance below which thumb and index tips touch.
	OKMaxTipDistance = 30
	// ThumbsDownMinAngle is the pixel drop of the thumb tip below the index tip
	// that must be exceeded for ThumbsDown.
	ThumbsDownMinAngle = 15
)

// Observation limits. Providers report landmarks slightly outside the frame
// when a hand is cut off at an edge, so normalized coordinates may stray one
// frame width past either side.
const (
	MinCoordinate = -1.0
	MaxCoordinate = 2.0
	// MaxFrameSide is the largest accepted frame width or height in pixels.
	MaxFrameSide = 1 << 16
)

// ErrMalformedObservation is returned when a frame cannot be classified
// because the observation breaks the provider contract.
var ErrMalformedObservation = errors.New("malformed frame observation")

// Frame is one frame's worth of detected hands plus the frame size in pixels.
type Frame struct {
	Hands  []detector.HandLandmarks `json:"hands"`
	Width  int                      `json:"width"`
	Height int                      `json:"height"`
}

// Pixel is an absolute image position.
type Pixel struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Point converts p to an image.Point.
func (p Pixel) Point() image.Point {
	return image.Pt(p.X, p.Y)
}

// TipMarkers holds the thumb-tip and index-fingertip positions of one hand.
type TipMarkers struct {
	Hand  int   `json:"hand"`
	Thumb Pixel `json:"thumb"`
	Index Pixel `json:"index"`
}

// HandMetrics are the measurements taken on the hand that decided the label.
type HandMetrics struct {
	TipDistance float64 `json:"tip_distance"`
	ThumbAngle  int     `json:"thumb_angle"`
	ThumbOffset int     `json:"thumb_offset"`
}

// Result is the outcome of classifying one frame.
type Result struct {
	Label Label `json:"label"`
	// Hand is the detection-order index of the hand that matched a per-hand
	// rule, or -1.
	Hand    int          `json:"hand"`
	Wrists  []Pixel      `json:"wrists"`
	WristY  []float64    `json:"wrist_y"`
	Tips    []TipMarkers `json:"tips"`
	Metrics *HandMetrics `json:"metrics,omitempty"`
}

// Detected reports whether a gesture label was produced.
func (r Result) Detected() bool {
	return r.Label != None
}

// handGeometry is one hand measured in pixel space.
type handGeometry struct {
	thumb, index Pixel
}

func (g handGeometry) tipDistance() float64 {
	return math.Hypot(float64(g.thumb.X-g.index.X), float64(g.thumb.Y-g.index.Y))
}

// thumbAngle is how far the thumb tip sits below the index tip.
func (g handGeometry) thumbAngle() int {
	return g.thumb.Y - g.index.Y
}

// thumbOffset is the horizontal thumb-to-index offset. It is reported but
// does not gate any rule.
func (g handGeometry) thumbOffset() int {
	return g.thumb.X - g.index.X
}

func (g handGeometry) metrics() *HandMetrics {
	return &HandMetrics{
		TipDistance: g.tipDistance(),
		ThumbAngle:  g.thumbAngle(),
		ThumbOffset: g.thumbOffset(),
	}
}

// handRule is a single-hand gesture test.
type handRule struct {
	label Label
	match func(g handGeometry) bool
}

// handRules run in order for each hand; the first match decides the frame.
var handRules = []handRule{
	{OK, func(g handGeometry) bool {
		return g.tipDistance() < OKMaxTipDistance
	}},
	{ThumbsUp, func(g handGeometry) bool {
		return g.thumb.Y < g.index.Y
	}},
	{ThumbsDown, func(g handGeometry) bool {
		return g.thumb.Y > g.index.Y && g.thumbAngle() > ThumbsDownMinAngle
	}},
}

// bothHandsRaised is the frame-level Shenka rule.
func bothHandsRaised(hands []detector.HandLandmarks) bool {
	if len(hands) != 2 {
		return false
	}
	return hands[0].Point(detector.Wrist).Y < ShenkaMaxWristY &&
		hands[1].Point(detector.Wrist).Y < ShenkaMaxWristY
}

// Classify decides which gesture, if any, the frame shows.
//
// Shenka is checked first and is exclusive. Otherwise each hand is tested in
// detection order against OK, ThumbsUp and ThumbsDown, and the first hand/rule
// match wins. A frame with no match yields a Result with Label None.
//
// Classify is a pure function of f.
func Classify(f Frame) (Result, error) {
	if err := validate(f); err != nil {
		return Result{}, err
	}

	res := Result{
		Hand:   -1,
		Wrists: make([]Pixel, 0, len(f.Hands)),
		WristY: make([]float64, 0, len(f.Hands)),
		Tips:   make([]TipMarkers, 0, len(f.Hands)),
	}
	for i := range f.Hands {
		wrist := f.Hands[i].Point(detector.Wrist)
		res.Wrists = append(res.Wrists, denormalize(wrist, f.Width, f.Height))
		res.WristY = append(res.WristY, wrist.Y)
	}

	if bothHandsRaised(f.Hands) {
		res.Label = Shenka
		return res, nil
	}

	for i := range f.Hands {
		g := measure(&f.Hands[i], f.Width, f.Height)
		res.Tips = append(res.Tips, TipMarkers{Hand: i, Thumb: g.thumb, Index: g.index})

		for _, r := range handRules {
			if r.match(g) {
				res.Label = r.label
				res.Hand = i
				res.Metrics = g.metrics()
				return res, nil
			}
		}
	}

	return res, nil
}

func measure(h *detector.HandLandmarks, width, height int) handGeometry {
	return handGeometry{
		thumb: denormalize(h.Point(detector.ThumbTip), width, height),
		index: denormalize(h.Point(detector.IndexTip), width, height),
	}
}

// denormalize maps a normalized landmark to pixels, truncating toward zero.
func denormalize(p detector.Point3D, width, height int) Pixel {
	return Pixel{
		X: int(p.X * float64(width)),
		Y: int(p.Y * float64(height)),
	}
}

func validate(f Frame) error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: frame size %dx%d", ErrMalformedObservation, f.Width, f.Height)
	}
	if f.Width > MaxFrameSide || f.Height > MaxFrameSide {
		return fmt.Errorf("%w: frame size %dx%d exceeds %d", ErrMalformedObservation, f.Width, f.Height, MaxFrameSide)
	}
	if len(f.Hands) > MaxHands {
		return fmt.Errorf("%w: %d hands, at most %d supported", ErrMalformedObservation, len(f.Hands), MaxHands)
	}

	for i := range f.Hands {
		for _, id := range []detector.LandmarkID{detector.Wrist, detector.ThumbTip, detector.IndexTip} {
			p := f.Hands[i].Point(id)
			if !finite(p.X) || !finite(p.Y) {
				return fmt.Errorf("%w: hand %d %s is not a finite coordinate", ErrMalformedObservation, i, id)
			}
			if !inRange(p.X) || !inRange(p.Y) {
				return fmt.Errorf("%w: hand %d %s at (%g, %g) is outside [%g, %g]",
					ErrMalformedObservation, i, id, p.X, p.Y, MinCoordinate, MaxCoordinate)
			}
		}
	}

	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func inRange(v float64) bool {
	return v >= MinCoordinate && v <= MaxCoordinate
}
