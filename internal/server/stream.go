package server

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// streamInterval caps the MJPEG frame rate at ~15 FPS.
const streamInterval = 66 * time.Millisecond

// FrameBuffer holds the most recent annotated frame as JPEG. Update is used
// as the frame loop's sink, so it never blocks on viewers.
type FrameBuffer struct {
	viewers atomic.Int32

	mu      sync.Mutex
	jpeg    []byte
	seq     uint64
	updated chan struct{}
}

// NewFrameBuffer creates an empty FrameBuffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{updated: make(chan struct{})}
}

// Update encodes img as JPEG and makes it the latest frame. Frames are only
// encoded while someone is watching the stream.
func (b *FrameBuffer) Update(img *gocv.Mat) {
	if img == nil || img.Empty() || b.viewers.Load() == 0 {
		return
	}

	buf, err := gocv.IMEncode(".jpg", *img)
	if err != nil {
		log.Debugf("Frame encode failed: %v", err)
		return
	}
	defer buf.Close()

	// buf is freed on Close, so keep a copy
	b.Set(append([]byte(nil), buf.GetBytes()...))
}

// Set stores an already encoded JPEG frame and wakes waiting viewers.
func (b *FrameBuffer) Set(jpeg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.jpeg = jpeg
	b.seq++
	close(b.updated)
	b.updated = make(chan struct{})
}

// Latest returns the latest frame and its sequence number. The sequence is
// zero before the first frame.
func (b *FrameBuffer) Latest() ([]byte, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.jpeg, b.seq
}

// Viewers returns the number of connected stream clients.
func (b *FrameBuffer) Viewers() int {
	return int(b.viewers.Load())
}

// changed returns a channel that is closed on the next Set.
func (b *FrameBuffer) changed() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.updated
}

// StreamHandler serves the latest annotated frames as MJPEG.
type StreamHandler struct {
	frames   *FrameBuffer
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler reading from frames.
func NewStreamHandler(frames *FrameBuffer) *StreamHandler {
	return &StreamHandler{frames: frames, interval: streamInterval}
}

// ServeHTTP streams MJPEG frames to connected clients until they disconnect.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.frames.viewers.Add(1)
	defer h.frames.viewers.Add(-1)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var sent uint64
	for {
		jpeg, seq := h.frames.Latest()
		if seq == sent {
			select {
			case <-r.Context().Done():
				return
			case <-h.frames.changed():
				continue
			}
		}

		if err := writePart(w, jpeg); err != nil {
			return
		}
		sent = seq

		select {
		case <-r.Context().Done():
			return
		case <-time.After(h.interval):
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
