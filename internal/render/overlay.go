// Package render draws landmark overlays and gesture labels onto frames and
// shows them in a window.
package render

import (
	"image"
	"image/color"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"gocv.io/x/gocv"
)

var (
	blue  = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	green = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	red   = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	grey  = color.RGBA{R: 224, G: 224, B: 224, A: 0}
)

// Marker sizes in pixels.
const (
	WristRadius = 10
	TipRadius   = 8
	pointRadius = 2
	lineWidth   = 2
)

// Connection is a pair of landmarks joined by a skeleton line.
type Connection [2]detector.LandmarkID

// HandConnections is the 21-edge hand skeleton: palm, then each finger from
// base to tip.
var HandConnections = []Connection{
	{detector.Wrist, detector.ThumbCMC},
	{detector.Wrist, detector.IndexMCP},
	{detector.MiddleMCP, detector.RingMCP},
	{detector.RingMCP, detector.PinkyMCP},
	{detector.IndexMCP, detector.MiddleMCP},
	{detector.Wrist, detector.PinkyMCP},

	{detector.ThumbCMC, detector.ThumbMCP},
	{detector.ThumbMCP, detector.ThumbIP},
	{detector.ThumbIP, detector.ThumbTip},

	{detector.IndexMCP, detector.IndexPIP},
	{detector.IndexPIP, detector.IndexDIP},
	{detector.IndexDIP, detector.IndexTip},

	{detector.MiddleMCP, detector.MiddlePIP},
	{detector.MiddlePIP, detector.MiddleDIP},
	{detector.MiddleDIP, detector.MiddleTip},

	{detector.RingMCP, detector.RingPIP},
	{detector.RingPIP, detector.RingDIP},
	{detector.RingDIP, detector.RingTip},

	{detector.PinkyMCP, detector.PinkyPIP},
	{detector.PinkyPIP, detector.PinkyDIP},
	{detector.PinkyDIP, detector.PinkyTip},
}

// Caption is the on-screen text for a gesture label.
type Caption struct {
	Text   string
	Origin image.Point
	Color  color.RGBA
}

var captions = map[gesture.Label]Caption{
	gesture.OK:         {"OK Gesture Detected", image.Pt(50, 50), green},
	gesture.ThumbsUp:   {"Thumbs Up Detected", image.Pt(50, 100), green},
	gesture.ThumbsDown: {"Thumbs Down Detected", image.Pt(50, 150), red},
	gesture.Shenka:     {"Shenka Gesture Detected", image.Pt(50, 200), blue},
}

// CaptionFor returns the caption shown for label. None has no caption.
func CaptionFor(label gesture.Label) (Caption, bool) {
	c, ok := captions[label]
	return c, ok
}

// Overlay annotates frames with hand skeletons, markers and the gesture caption.
type Overlay struct {
	// Skeleton enables drawing of the landmark connections and points.
	Skeleton bool
}

// NewOverlay returns an overlay that draws everything.
func NewOverlay() *Overlay {
	return &Overlay{Skeleton: true}
}

// Draw annotates img in place. Hands must be the observation that res was
// classified from.
func (o *Overlay) Draw(img *gocv.Mat, hands []detector.HandLandmarks, res gesture.Result) {
	if img == nil || img.Empty() {
		return
	}
	width, height := img.Cols(), img.Rows()

	if o.Skeleton {
		for i := range hands {
			drawSkeleton(img, &hands[i], width, height)
		}
	}

	for _, w := range res.Wrists {
		gocv.Circle(img, w.Point(), WristRadius, blue, -1)
	}

	for _, tip := range res.Tips {
		gocv.Circle(img, tip.Thumb.Point(), TipRadius, green, -1)
		gocv.Circle(img, tip.Index.Point(), TipRadius, red, -1)
	}

	if c, ok := CaptionFor(res.Label); ok {
		gocv.PutText(img, c.Text, c.Origin, gocv.FontHersheySimplex, 1, c.Color, 2)
	}
}

func drawSkeleton(img *gocv.Mat, hand *detector.HandLandmarks, width, height int) {
	for _, c := range HandConnections {
		from := pixel(hand.Point(c[0]), width, height)
		to := pixel(hand.Point(c[1]), width, height)
		gocv.Line(img, from, to, grey, lineWidth)
	}
	for id := detector.Wrist; id <= detector.PinkyTip; id++ {
		gocv.Circle(img, pixel(hand.Point(id), width, height), pointRadius, red, -1)
	}
}

func pixel(p detector.Point3D, width, height int) image.Point {
	return image.Pt(int(p.X*float64(width)), int(p.Y*float64(height)))
}
