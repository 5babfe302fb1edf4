package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/render"
	"github.com/ayusman/mudra/internal/store"
	"gocv.io/x/gocv"
)

// Run opens the camera and processes frames until the user quits, ctx is
// cancelled or a fatal error occurs. Quit and cancellation return nil.
//
// Each iteration is strictly sequential:
// 1. Check for cancellation
// 2. Read a frame (failure is fatal)
// 3. Detect hands and classify the frame
// 4. Draw the overlay and show the frame
// 5. Poll the display for a quit key
//
// The camera and display are released on every exit path.
func (a *App) Run(ctx context.Context) (err error) {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	a.mu.RLock()
	camera, display := a.camera, a.display
	a.mu.RUnlock()

	if err := camera.Open(); err != nil {
		display.Close()
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if err := camera.Close(); err != nil {
			log.Errorf("Error closing camera: %v", err)
		}
		if err := display.Close(); err != nil {
			log.Errorf("Error closing display: %v", err)
		}
	}()

	sessionID := a.startSession()
	a.frames.Store(0)
	reason := store.ExitError
	defer func() {
		a.finishSession(sessionID, int(a.frames.Load()), reason)
		a.setSession("")
		a.setLastLabel(gesture.None)
	}()

	events := newDispatcher(a, a.config.EventBuffer)
	events.start(ctx)
	defer events.stop()

	log.Info("Frame loop started")
	reason, err = a.loop(ctx, camera, display, events, sessionID)
	log.Infof("Frame loop stopped (%s) after %d frames", reason, a.frames.Load())

	return err
}

func (a *App) loop(ctx context.Context, camera capture.Camera, display render.Display, events *dispatcher, sessionID string) (string, error) {
	var edges edgeDetector

	for {
		if ctx.Err() != nil {
			return store.ExitCancelled, nil
		}

		frame, err := camera.ReadFrame()
		if err != nil {
			return store.ExitCaptureFailure, fmt.Errorf("read frame: %w", err)
		}

		err = a.step(frame, &edges, events, sessionID)
		if err == nil {
			display.Show(frame)
		}
		frame.Close()
		if err != nil {
			return store.ExitError, err
		}

		if render.QuitRequested(display.PollKey()) {
			return store.ExitQuit, nil
		}
	}
}

// step analyzes and annotates one frame in place. Only malformed
// observations are returned as errors.
func (a *App) step(frame *gocv.Mat, edges *edgeDetector, events *dispatcher, sessionID string) error {
	seq := a.frames.Add(1)
	observers, sink := a.resultObservers()

	if !a.IsEnabled() {
		edges.reset()
		if sink != nil {
			sink(frame)
		}
		return nil
	}

	hands, res, err := a.analyze(frame)
	switch {
	case isMalformed(err):
		return err
	case err != nil:
		log.Warnf("Hand detection failed: %v", err)
		edges.reset()
	default:
		if len(res.WristY) == 2 {
			log.Debugf("Wrist 1 Y: %f, Wrist 2 Y: %f", res.WristY[0], res.WristY[1])
		}

		a.overlay.Draw(frame, hands, res)

		fr := FrameResult{Result: res, Seq: int(seq), Time: time.Now()}
		for _, cb := range observers {
			cb(fr)
		}

		if edges.next(res.Label) {
			events.emit(newEvent(sessionID, res, handedness(hands, res.Hand)))
		}
		a.setLastLabel(res.Label)
	}

	if sink != nil {
		sink(frame)
	}
	return nil
}

// ProcessFrame detects hands in frame and classifies them. The frame is not
// modified.
func (a *App) ProcessFrame(frame *gocv.Mat) (gesture.Result, error) {
	_, res, err := a.analyze(frame)
	return res, err
}

func (a *App) analyze(frame *gocv.Mat) ([]detector.HandLandmarks, gesture.Result, error) {
	det := a.Detector()
	if det == nil {
		return nil, gesture.Result{}, errors.New("no hand detector configured")
	}

	hands, err := det.Detect(frame)
	if err != nil {
		return nil, gesture.Result{}, fmt.Errorf("detect: %w", err)
	}

	res, err := gesture.Classify(gesture.Frame{
		Hands:  hands,
		Width:  frame.Cols(),
		Height: frame.Rows(),
	})
	if err != nil {
		return hands, gesture.Result{}, err
	}
	return hands, res, nil
}

func isMalformed(err error) bool {
	return errors.Is(err, detector.ErrMalformedHand) || errors.Is(err, gesture.ErrMalformedObservation)
}

func handedness(hands []detector.HandLandmarks, i int) string {
	if i < 0 || i >= len(hands) {
		return ""
	}
	return hands[i].Handedness
}

func (a *App) startSession() string {
	if a.config.Store == nil {
		return ""
	}

	sess := &store.Session{
		ID:       uuid.New().String(),
		CameraID: a.config.Camera.DeviceID,
	}
	if err := a.config.Store.Sessions().Create(sess); err != nil {
		log.Errorf("Failed to create session: %v", err)
		return ""
	}

	a.setSession(sess.ID)
	return sess.ID
}

func (a *App) finishSession(id string, frames int, reason string) {
	if a.config.Store == nil || id == "" {
		return
	}
	if err := a.config.Store.Sessions().Finish(id, frames, reason); err != nil {
		log.Errorf("Failed to finish session %s: %v", id, err)
	}
}
