package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/mudra/internal/store"
)

const (
	defaultSessionLimit = 50
	maxSessionLimit     = 500
)

// SessionHandler serves capture session history.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

type sessionResponse struct {
	ID         string `json:"id"`
	CameraID   int    `json:"camera_id"`
	StartedAt  string `json:"started_at"`
	EndedAt    string `json:"ended_at,omitempty"`
	Active     bool   `json:"active"`
	Frames     int    `json:"frames"`
	ExitReason string `json:"exit_reason,omitempty"`
}

type sessionDetailResponse struct {
	sessionResponse
	Detections []detectionResponse `json:"detections"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:         s.ID,
		CameraID:   s.CameraID,
		StartedAt:  formatTime(s.StartedAt),
		Active:     s.Active(),
		Frames:     s.Frames,
		ExitReason: s.ExitReason,
	}
	if s.EndedAt != nil {
		resp.EndedAt = formatTime(*s.EndedAt)
	}
	return resp
}

// ServeHTTP handles GET /api/sessions and GET /api/sessions/{id}.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if id := itemPath(r, "/api/sessions"); id != "" {
		h.get(w, r, id)
		return
	}
	h.list(w, r)
}

func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultSessionLimit, maxSessionLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

// get returns the session with its detections, newest first.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	detections, err := h.store.Detections().List(store.DetectionFilter{SessionID: id})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list detections")
		return
	}

	response := sessionDetailResponse{
		sessionResponse: toSessionResponse(sess),
		Detections:      make([]detectionResponse, 0, len(detections)),
	}
	for _, d := range detections {
		response.Detections = append(response.Detections, toDetectionResponse(d))
	}

	writeJSON(w, http.StatusOK, response)
}
