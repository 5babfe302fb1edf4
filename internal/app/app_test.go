package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/render"
	"gocv.io/x/gocv"
)

// fakeDisplay counts shown frames and asks to quit after quitAfter frames.
type fakeDisplay struct {
	mu        sync.Mutex
	quitAfter int
	shown     int
	closed    bool
}

func (d *fakeDisplay) Show(img *gocv.Mat) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown++
}

func (d *fakeDisplay) PollKey() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.quitAfter > 0 && d.shown >= d.quitAfter {
		return 'q'
	}
	return render.NoKey
}

func (d *fakeDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDisplay) Shown() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shown
}

func (d *fakeDisplay) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// sequenceDetector returns one scripted observation per call and repeats
// the last one when the script runs out.
type sequenceDetector struct {
	mu    sync.Mutex
	steps [][]detector.HandLandmarks
	calls int
}

func (d *sequenceDetector) Detect(frame *gocv.Mat) ([]detector.HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.calls
	if i >= len(d.steps) {
		i = len(d.steps) - 1
	}
	d.calls++
	return d.steps[i], nil
}

func (d *sequenceDetector) Close() error { return nil }

// eventRecorder collects gesture events from the dispatcher.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) labels() []gesture.Label {
	r.mu.Lock()
	defer r.mu.Unlock()
	labels := make([]gesture.Label, len(r.events))
	for i, ev := range r.events {
		labels[i] = ev.Label
	}
	return labels
}

// blankFrames returns n black 640x480 frames.
func blankFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
		frames[i] = &m
		t.Cleanup(func() { m.Close() })
	}
	return frames
}

func newTestApp(t *testing.T, cfg Config, cam capture.Camera, det detector.Detector, disp render.Display) *App {
	t.Helper()
	a := New(cfg)
	a.SetCamera(cam)
	a.SetDetector(det)
	a.SetDisplay(disp)
	return a
}

func hands(h ...detector.HandLandmarks) []detector.HandLandmarks {
	return h
}

func TestRun_QuitKey(t *testing.T) {
	cam := capture.NewMockCamera(blankFrames(t, 1), true)
	det := detector.NewMockDetector()
	det.SetHands(hands(detector.ThumbsUpLandmarks()))
	disp := &fakeDisplay{quitAfter: 3}

	a := newTestApp(t, Config{}, cam, det, disp)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if disp.Shown() != 3 {
		t.Errorf("shown %d frames, want 3", disp.Shown())
	}
	if det.Calls() != 3 {
		t.Errorf("detector called %d times, want 3", det.Calls())
	}
	if cam.Closes() != 1 || cam.IsOpen() {
		t.Errorf("camera should be closed exactly once, closes=%d", cam.Closes())
	}
	if !disp.Closed() {
		t.Error("display should be closed")
	}
	if a.Status().Running {
		t.Error("Status().Running should be false after Run")
	}
}

func TestRun_CaptureFailure(t *testing.T) {
	cam := capture.NewMockCamera(blankFrames(t, 2), false)
	disp := &fakeDisplay{}

	a := newTestApp(t, Config{}, cam, detector.NewMockDetector(), disp)

	err := a.Run(context.Background())
	if !errors.Is(err, capture.ErrCaptureFailed) {
		t.Fatalf("Run() error = %v, want ErrCaptureFailed", err)
	}
	if disp.Shown() != 2 {
		t.Errorf("shown %d frames, want 2", disp.Shown())
	}
	if cam.Closes() != 1 {
		t.Errorf("camera closes = %d, want 1", cam.Closes())
	}
}

func TestRun_OpenFailure(t *testing.T) {
	cam := capture.NewMockCamera(nil, false)
	cam.SetOpenError(capture.ErrCaptureFailed)
	disp := &fakeDisplay{}

	a := newTestApp(t, Config{}, cam, detector.NewMockDetector(), disp)

	if err := a.Run(context.Background()); !errors.Is(err, capture.ErrCaptureFailed) {
		t.Fatalf("Run() error = %v, want ErrCaptureFailed", err)
	}
	if !disp.Closed() {
		t.Error("display should be closed when the camera cannot open")
	}
}

func TestRun_Cancelled(t *testing.T) {
	cam := capture.NewMockCamera(blankFrames(t, 1), true)
	det := detector.NewMockDetector()
	disp := &fakeDisplay{}

	a := newTestApp(t, Config{}, cam, det, disp)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v, want nil on cancellation", err)
	}
	if cam.Reads() != 0 {
		t.Errorf("no frame should be read after cancellation, got %d", cam.Reads())
	}
	if cam.Closes() != 1 {
		t.Errorf("camera closes = %d, want 1", cam.Closes())
	}
}

func TestRun_CancelWhileRunning(t *testing.T) {
	cam := capture.NewMockCamera(blankFrames(t, 1), true)
	a := newTestApp(t, Config{}, cam, detector.NewMockDetector(), &fakeDisplay{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for a.Status().Frames < 5 {
		if time.Now().After(deadline) {
			t.Fatal("loop did not start")
		}
		time.Sleep(time.Millisecond)
	}

	if err := a.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if cam.Closes() != 1 {
		t.Errorf("camera closes = %d, want 1", cam.Closes())
	}
}

func TestRun_MalformedObservationIsFatal(t *testing.T) {
	cam := capture.NewMockCamera(blankFrames(t, 1), true)
	det := detector.NewMockDetector()
	det.SetError(detector.ErrMalformedHand)
	disp := &fakeDisplay{}

	a := newTestApp(t, Config{}, cam, det, disp)

	err := a.Run(context.Background())
	if !errors.Is(err, detector.ErrMalformedHand) {
		t.Fatalf("Run() error = %v, want ErrMalformedHand", err)
	}
	if disp.Shown() != 0 {
		t.Errorf("malformed frame should not be shown, shown=%d", disp.Shown())
	}
	if cam.Closes() != 1 {
		t.Errorf("camera closes = %d, want 1", cam.Closes())
	}
}

func TestRun_TooManyHandsIsFatal(t *testing.T) {
	cam := capture.NewMockCamera(blankFrames(t, 1), true)
	det := detector.NewMockDetector()
	det.SetHands(hands(detector.OKLandmarks(), detector.OKLandmarks(), detector.OKLandmarks()))

	a := newTestApp(t, Config{}, cam, det, &fakeDisplay{})

	if err := a.Run(context.Background()); !errors.Is(err, gesture.ErrMalformedObservation) {
		t.Fatalf("Run() error = %v, want ErrMalformedObservation", err)
	}
}

func TestRun_DetectorErrorShowsUnannotatedFrame(t *testing.T) {
	cam := capture.NewMockCamera(blankFrames(t, 3), false)
	det := detector.NewMockDetector()
	det.SetError(errors.New("service timeout"))
	disp := &fakeDisplay{}
	rec := &eventRecorder{}

	a := newTestApp(t, Config{}, cam, det, disp)
	a.RegisterGestureCallback(rec.record)

	err := a.Run(context.Background())
	if !errors.Is(err, capture.ErrCaptureFailed) {
		t.Fatalf("Run() error = %v, want ErrCaptureFailed once frames run out", err)
	}
	if disp.Shown() != 3 {
		t.Errorf("shown %d frames, want 3", disp.Shown())
	}
	if len(rec.labels()) != 0 {
		t.Errorf("no events expected, got %v", rec.labels())
	}
}

func TestRun_EventsOnLabelChange(t *testing.T) {
	up := detector.ThumbsUpLandmarks()
	ok := detector.OKLandmarks()

	det := &sequenceDetector{steps: [][]detector.HandLandmarks{
		hands(ok),
		hands(ok),
		nil,
		hands(ok),
		hands(up),
		hands(up),
	}}
	cam := capture.NewMockCamera(blankFrames(t, 1), true)
	disp := &fakeDisplay{quitAfter: 6}
	rec := &eventRecorder{}

	a := newTestApp(t, Config{}, cam, det, disp)
	a.RegisterGestureCallback(rec.record)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := rec.labels()
	want := []gesture.Label{gesture.OK, gesture.OK, gesture.ThumbsUp}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	for _, ev := range rec.events {
		if ev.ID == "" || ev.Time.IsZero() {
			t.Errorf("event missing id or time: %+v", ev)
		}
		if ev.Hand != 0 {
			t.Errorf("event hand = %d, want 0", ev.Hand)
		}
	}
}

func TestRun_ShenkaEvent(t *testing.T) {
	det := detector.NewMockDetector()
	det.SetHands(hands(
		detector.RaisedPalmLandmarks("Left", 0.3),
		detector.RaisedPalmLandmarks("Right", 0.7),
	))
	cam := capture.NewMockCamera(blankFrames(t, 1), true)
	rec := &eventRecorder{}

	a := newTestApp(t, Config{}, cam, det, &fakeDisplay{quitAfter: 2})
	a.RegisterGestureCallback(rec.record)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := rec.labels()
	if len(got) != 1 || got[0] != gesture.Shenka {
		t.Fatalf("events = %v, want [Shenka]", got)
	}
	if rec.events[0].Hand != -1 || rec.events[0].Handedness != "" {
		t.Errorf("Shenka event should not name a hand: %+v", rec.events[0])
	}
}

func TestRun_Disabled(t *testing.T) {
	det := detector.NewMockDetector()
	det.SetHands(hands(detector.ThumbsUpLandmarks()))
	cam := capture.NewMockCamera(blankFrames(t, 1), true)
	disp := &fakeDisplay{quitAfter: 4}
	rec := &eventRecorder{}

	a := newTestApp(t, Config{}, cam, det, disp)
	a.RegisterGestureCallback(rec.record)
	a.SetEnabled(false)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if det.Calls() != 0 {
		t.Errorf("detector called %d times while disabled", det.Calls())
	}
	if disp.Shown() != 4 {
		t.Errorf("frames should still be shown while disabled, shown=%d", disp.Shown())
	}
	if len(rec.labels()) != 0 {
		t.Errorf("no events expected while disabled, got %v", rec.labels())
	}
}

func TestRun_ResultObserversAndSink(t *testing.T) {
	det := detector.NewMockDetector()
	det.SetHands(hands(detector.ThumbsDownLandmarks()))
	cam := capture.NewMockCamera(blankFrames(t, 1), true)

	a := newTestApp(t, Config{}, cam, det, &fakeDisplay{quitAfter: 3})

	var results []FrameResult
	a.OnResult(func(fr FrameResult) {
		results = append(results, fr)
	})

	sunk := 0
	a.SetFrameSink(func(img *gocv.Mat) {
		if img.Empty() {
			t.Error("sink received an empty frame")
		}
		sunk++
	})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("observed %d results, want 3", len(results))
	}
	for i, fr := range results {
		if fr.Seq != i+1 {
			t.Errorf("results[%d].Seq = %d, want %d", i, fr.Seq, i+1)
		}
		if fr.Label != gesture.ThumbsDown {
			t.Errorf("results[%d].Label = %s, want ThumbsDown", i, fr.Label)
		}
	}
	if sunk != 3 {
		t.Errorf("sink called %d times, want 3", sunk)
	}
}

func TestProcessFrame(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	tests := []struct {
		name  string
		hands []detector.HandLandmarks
		want  gesture.Label
	}{
		{"no hands", nil, gesture.None},
		{"thumbs up", hands(detector.ThumbsUpLandmarks()), gesture.ThumbsUp},
		{"thumbs down", hands(detector.ThumbsDownLandmarks()), gesture.ThumbsDown},
		{"ok", hands(detector.OKLandmarks()), gesture.OK},
		{"one raised palm", hands(detector.RaisedPalmLandmarks("Left", 0.5)), gesture.None},
		{"two raised palms", hands(detector.RaisedPalmLandmarks("Left", 0.3), detector.RaisedPalmLandmarks("Right", 0.7)), gesture.Shenka},
	}

	det := detector.NewMockDetector()
	a := New(Config{})
	a.SetDetector(det)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det.SetHands(tt.hands)

			res, err := a.ProcessFrame(&frame)
			if err != nil {
				t.Fatalf("ProcessFrame() error = %v", err)
			}
			if res.Label != tt.want {
				t.Errorf("Label = %s, want %s", res.Label, tt.want)
			}
		})
	}
}

func TestEdgeDetector(t *testing.T) {
	var e edgeDetector

	steps := []struct {
		label gesture.Label
		want  bool
	}{
		{gesture.None, false},
		{gesture.OK, true},
		{gesture.OK, false},
		{gesture.ThumbsUp, true},
		{gesture.None, false},
		{gesture.ThumbsUp, true},
	}

	for i, s := range steps {
		if got := e.next(s.label); got != s.want {
			t.Errorf("step %d next(%s) = %v, want %v", i, s.label, got, s.want)
		}
	}

	e.reset()
	if !e.next(gesture.ThumbsUp) {
		t.Error("label after reset should fire")
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	a := New(Config{})
	d := newDispatcher(a, 1)

	if !d.emit(Event{Label: gesture.OK}) {
		t.Fatal("first event should be queued")
	}
	if d.emit(Event{Label: gesture.ThumbsUp}) {
		t.Error("second event should be dropped when the queue is full")
	}

	rec := &eventRecorder{}
	a.RegisterGestureCallback(rec.record)
	d.start(context.Background())
	d.stop()

	if got := rec.labels(); len(got) != 1 || got[0] != gesture.OK {
		t.Errorf("delivered %v, want [OK]", got)
	}
}

func TestApp_SetEnabled(t *testing.T) {
	a := New(Config{})

	if !a.IsEnabled() {
		t.Error("detection should be enabled by default")
	}
	a.SetEnabled(false)
	if a.IsEnabled() || a.Status().Enabled {
		t.Error("detection should be disabled")
	}
}
