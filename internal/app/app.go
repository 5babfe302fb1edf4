// Package app runs the live gesture recognition loop: capture, detect,
// classify, render and display, one frame at a time.
package app

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/render"
	"github.com/ayusman/mudra/internal/store"
	"gocv.io/x/gocv"
)

// DefaultEventBuffer is the number of gesture events that may wait for the
// dispatcher before new ones are dropped.
const DefaultEventBuffer = 16

// ErrAlreadyRunning is returned by Run when the loop is already active.
var ErrAlreadyRunning = errors.New("frame loop already running")

// Config holds configuration options for the application.
type Config struct {
	Store         *store.Store
	PluginDir     string
	PluginTimeout time.Duration
	Camera        capture.Config
	Detector      detector.Config
	EventBuffer   int
}

// ResultCallback observes every classified frame. It runs on the frame loop
// and must not block.
type ResultCallback func(FrameResult)

// FrameSink receives each annotated frame before it is displayed. The Mat is
// only valid during the call. It runs on the frame loop and must not block.
type FrameSink func(img *gocv.Mat)

// FrameResult is one frame's classification with its position in the session.
type FrameResult struct {
	gesture.Result
	Seq  int       `json:"seq"`
	Time time.Time `json:"timestamp"`
}

// Status is a snapshot of the loop state.
type Status struct {
	Running   bool          `json:"running"`
	Enabled   bool          `json:"enabled"`
	SessionID string        `json:"session_id,omitempty"`
	Frames    int64         `json:"frames"`
	LastLabel gesture.Label `json:"last_label"`
}

// App owns the camera for the duration of Run and coordinates detection,
// classification, rendering and gesture actions.
type App struct {
	config     Config
	camera     capture.Camera
	detector   detector.Detector
	display    render.Display
	overlay    *render.Overlay
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor

	mu        sync.RWMutex
	enabled   bool
	callbacks []GestureCallback
	observers []ResultCallback
	sink      FrameSink
	sessionID string
	lastLabel gesture.Label

	running atomic.Bool
	frames  atomic.Int64
}

// New creates a new App instance with the given configuration.
// MediaPipe is used for hand detection when available, otherwise a mock
// detector that never sees hands.
func New(config Config) *App {
	if config.Camera.Width <= 0 || config.Camera.Height <= 0 {
		config.Camera = capture.DefaultConfig()
	}
	if config.Detector.MaxHands <= 0 {
		config.Detector = detector.DefaultConfig()
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = DefaultEventBuffer
	}

	a := &App{
		config:     config,
		camera:     capture.NewCamera(config.Camera),
		display:    render.Headless{},
		overlay:    render.NewOverlay(),
		pluginMgr:  plugin.NewManager(config.PluginDir),
		pluginExec: plugin.NewExecutor(config.PluginTimeout),
		enabled:    true,
	}

	if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
		a.detector = mp
		log.Info("Using MediaPipe hand detection")
	} else {
		log.Warnf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a
}

// SetEnabled enables or disables gesture detection. While disabled, frames
// are still displayed but not classified.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the video source. It must not be called while Run is active.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// SetDisplay replaces the display. Run closes it on exit.
func (a *App) SetDisplay(d render.Display) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.display = d
}

// OnResult registers an observer for every classified frame.
func (a *App) OnResult(cb ResultCallback) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, cb)
}

// SetFrameSink registers the receiver of annotated frames.
func (a *App) SetFrameSink(sink FrameSink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sink = sink
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Status returns a snapshot of the loop state.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Status{
		Running:   a.running.Load(),
		Enabled:   a.enabled,
		SessionID: a.sessionID,
		Frames:    a.frames.Load(),
		LastLabel: a.lastLabel,
	}
}

// Close releases the detector.
func (a *App) Close() error {
	if d := a.Detector(); d != nil {
		return d.Close()
	}
	return nil
}

func (a *App) setLastLabel(l gesture.Label) {
	a.mu.Lock()
	a.lastLabel = l
	a.mu.Unlock()
}

func (a *App) setSession(id string) {
	a.mu.Lock()
	a.sessionID = id
	a.mu.Unlock()
}

func (a *App) resultObservers() ([]ResultCallback, FrameSink) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.observers, a.sink
}
