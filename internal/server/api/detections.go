package api

import (
	"net/http"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

const (
	defaultDetectionLimit = 100
	maxDetectionLimit     = 1000
)

// DetectionHandler serves the gesture event history.
type DetectionHandler struct {
	store *store.Store
}

// NewDetectionHandler creates a new DetectionHandler with the given store.
func NewDetectionHandler(s *store.Store) *DetectionHandler {
	return &DetectionHandler{store: s}
}

type detectionResponse struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id"`
	Label      string `json:"label"`
	HandIndex  int    `json:"hand_index"`
	Handedness string `json:"handedness,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type listDetectionsResponse struct {
	Detections []detectionResponse `json:"detections"`
}

type detectionStatsResponse struct {
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
}

func toDetectionResponse(d *store.Detection) detectionResponse {
	return detectionResponse{
		ID:         d.ID,
		SessionID:  d.SessionID,
		Label:      d.Label,
		HandIndex:  d.HandIndex,
		Handedness: d.Handedness,
		CreatedAt:  formatTime(d.CreatedAt),
	}
}

// ServeHTTP handles GET /api/detections and GET /api/detections/stats.
func (h *DetectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch itemPath(r, "/api/detections") {
	case "":
		h.list(w, r)
	case "stats":
		h.stats(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// list accepts label, session and limit query parameters.
func (h *DetectionHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.DetectionFilter{SessionID: q.Get("session")}

	if raw := q.Get("label"); raw != "" {
		label, err := gesture.ParseLabel(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Unknown gesture label")
			return
		}
		filter.Label = string(label)
	}

	limit, err := queryLimit(r, defaultDetectionLimit, maxDetectionLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	filter.Limit = limit

	detections, err := h.store.Detections().List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list detections")
		return
	}

	response := listDetectionsResponse{
		Detections: make([]detectionResponse, 0, len(detections)),
	}
	for _, d := range detections {
		response.Detections = append(response.Detections, toDetectionResponse(d))
	}

	writeJSON(w, http.StatusOK, response)
}

// stats reports a count for every label, including ones never detected.
func (h *DetectionHandler) stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.Detections().CountByLabel()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count detections")
		return
	}

	response := detectionStatsResponse{Counts: make(map[string]int)}
	for _, label := range gesture.Labels() {
		n := counts[string(label)]
		response.Counts[string(label)] = n
		response.Total += n
	}

	writeJSON(w, http.StatusOK, response)
}
