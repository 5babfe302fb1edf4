package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
)

// Event is emitted when the frame label changes to a gesture.
type Event struct {
	ID         string        `json:"id"`
	SessionID  string        `json:"session_id,omitempty"`
	Label      gesture.Label `json:"label"`
	Hand       int           `json:"hand"`
	Handedness string        `json:"handedness,omitempty"`
	Time       time.Time     `json:"timestamp"`
}

// GestureCallback is called from the event dispatcher for each gesture event.
type GestureCallback func(Event)

// RegisterGestureCallback registers cb to receive gesture events.
func (a *App) RegisterGestureCallback(cb GestureCallback) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append(a.callbacks, cb)
}

func (a *App) gestureCallbacks() []GestureCallback {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.callbacks
}

// edgeDetector turns the per-frame label stream into events on change.
type edgeDetector struct {
	prev gesture.Label
}

// next reports whether label starts a new gesture.
func (e *edgeDetector) next(label gesture.Label) bool {
	changed := label != e.prev
	e.prev = label
	return changed && label != gesture.None
}

func (e *edgeDetector) reset() {
	e.prev = gesture.None
}

// dispatcher delivers gesture events off the frame loop.
type dispatcher struct {
	app    *App
	events chan Event
	wg     sync.WaitGroup
}

func newDispatcher(a *App, size int) *dispatcher {
	return &dispatcher{
		app:    a,
		events: make(chan Event, size),
	}
}

func (d *dispatcher) start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for ev := range d.events {
			d.app.handleEvent(ctx, ev)
		}
	}()
}

// emit queues ev without blocking. It reports false when the queue is full.
func (d *dispatcher) emit(ev Event) bool {
	select {
	case d.events <- ev:
		return true
	default:
		log.Warnf("Gesture event queue full, dropping %s", ev.Label)
		return false
	}
}

// stop drains queued events and waits for the dispatcher to exit.
func (d *dispatcher) stop() {
	close(d.events)
	d.wg.Wait()
}

func newEvent(sessionID string, res gesture.Result, handedness string) Event {
	return Event{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		Label:      res.Label,
		Hand:       res.Hand,
		Handedness: handedness,
		Time:       time.Now(),
	}
}

// handleEvent records the detection, runs the bound action and notifies callbacks.
func (a *App) handleEvent(ctx context.Context, ev Event) {
	log.Infof("Gesture detected: %s (hand %d)", ev.Label, ev.Hand)

	a.recordDetection(ev)
	a.executeAction(ctx, ev)

	for _, cb := range a.gestureCallbacks() {
		cb(ev)
	}
}

func (a *App) recordDetection(ev Event) {
	if a.config.Store == nil || ev.SessionID == "" {
		return
	}

	err := a.config.Store.Detections().Create(&store.Detection{
		ID:         ev.ID,
		SessionID:  ev.SessionID,
		Label:      string(ev.Label),
		HandIndex:  ev.Hand,
		Handedness: ev.Handedness,
		CreatedAt:  ev.Time,
	})
	if err != nil {
		log.Errorf("Failed to record detection %s: %v", ev.Label, err)
	}
}

// executeAction runs the plugin action bound to the event's label, if any.
func (a *App) executeAction(ctx context.Context, ev Event) {
	if a.config.Store == nil {
		return
	}

	action, err := a.config.Store.Actions().GetByLabel(string(ev.Label))
	if err != nil {
		log.Errorf("Failed to look up action for %s: %v", ev.Label, err)
		return
	}
	if action == nil || !action.Enabled {
		return
	}

	plug, err := a.pluginMgr.Get(action.PluginName)
	if err != nil {
		log.Warnf("Action for %s: plugin %s: %v", ev.Label, action.PluginName, err)
		return
	}

	resp, err := a.pluginExec.Execute(ctx, plug, &plugin.Request{
		Action:     action.ActionName,
		Gesture:    string(ev.Label),
		Hand:       ev.Hand,
		Handedness: ev.Handedness,
		Config:     action.Config,
	})
	if err != nil {
		log.Errorf("Action %s/%s for %s failed: %v", action.PluginName, action.ActionName, ev.Label, err)
		return
	}
	if !resp.Success {
		log.Warnf("Action %s/%s for %s reported: %s", action.PluginName, action.ActionName, ev.Label, resp.Error)
		return
	}

	log.Debugf("Action %s/%s executed for %s", action.PluginName, action.ActionName, ev.Label)
}
