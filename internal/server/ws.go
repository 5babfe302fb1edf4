package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/app"
)

const (
	resultsBuffer = 8
	writeWait     = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// ResultsHub broadcasts per-frame classification results via WebSocket.
type ResultsHub struct {
	results chan app.FrameResult
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewResultsHub creates a ResultsHub. Call Run to start broadcasting.
func NewResultsHub() *ResultsHub {
	return &ResultsHub{
		results: make(chan app.FrameResult, resultsBuffer),
		clients: make(map[*websocket.Conn]bool),
	}
}

// Publish queues a result for broadcast without blocking. Results are
// dropped when no client is connected or the queue is full.
func (h *ResultsHub) Publish(res app.FrameResult) {
	if h.Clients() == 0 {
		return
	}
	select {
	case h.results <- res:
	default:
	}
}

// Clients returns the number of connected clients.
func (h *ResultsHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run broadcasts queued results until ctx is cancelled, then closes all
// client connections.
func (h *ResultsHub) Run(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case res := <-h.results:
			h.broadcast(res)
		}
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *ResultsHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade error: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	log.Debugf("Results client connected from %s", r.RemoteAddr)

	defer h.remove(conn)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *ResultsHub) broadcast(res app.FrameResult) {
	msg, err := json.Marshal(res)
	if err != nil {
		log.Errorf("Failed to encode frame result: %v", err)
		return
	}

	var failed []*websocket.Conn
	h.mu.RLock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			failed = append(failed, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range failed {
		h.remove(conn)
	}
}

func (h *ResultsHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[conn] {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *ResultsHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
		conn.Close()
		delete(h.clients, conn)
	}
}
