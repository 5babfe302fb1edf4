package render

import "gocv.io/x/gocv"

// DefaultWindowTitle is the title of the preview window.
const DefaultWindowTitle = "Hand Gesture Recognition"

// NoKey is returned by PollKey when no key was pressed.
const NoKey = -1

// Display shows annotated frames and reports key presses.
type Display interface {
	Show(img *gocv.Mat)
	// PollKey waits briefly for a key press and returns its code, or NoKey.
	PollKey() int
	Close() error
}

// QuitRequested reports whether key asks the frame loop to stop.
func QuitRequested(key int) bool {
	return key != NoKey && key&0xFF == 'q'
}

// Window is a Display backed by a HighGUI window.
type Window struct {
	win   *gocv.Window
	shown bool
}

// NewWindow opens a preview window with the given title.
func NewWindow(title string) *Window {
	if title == "" {
		title = DefaultWindowTitle
	}
	return &Window{win: gocv.NewWindow(title)}
}

func (w *Window) Show(img *gocv.Mat) {
	w.win.IMShow(*img)
	w.shown = true
}

// PollKey waits one millisecond for a key. Once the window has been closed by
// the user it reports 'q'.
func (w *Window) PollKey() int {
	key := w.win.WaitKey(1)
	if w.shown && w.win.GetWindowProperty(gocv.WindowPropertyVisible) < 1 {
		return 'q'
	}
	return key
}

func (w *Window) Close() error {
	return w.win.Close()
}

// Headless is a Display that shows nothing and never reports a key. The
// frame loop then runs until its context is cancelled.
type Headless struct{}

func (Headless) Show(*gocv.Mat) {}
func (Headless) PollKey() int   { return NoKey }
func (Headless) Close() error   { return nil }
