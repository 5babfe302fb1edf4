package api

import (
	"net/http"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/render"
	"github.com/ayusman/mudra/internal/store"
)

// GestureHandler serves the fixed gesture vocabulary.
type GestureHandler struct {
	store *store.Store
}

// NewGestureHandler creates a GestureHandler. The store is optional and is
// used to report bound actions.
func NewGestureHandler(s *store.Store) *GestureHandler {
	return &GestureHandler{store: s}
}

type gestureResponse struct {
	Label    string `json:"label"`
	Priority int    `json:"priority"`
	Caption  string `json:"caption"`
	Rule     string `json:"rule"`
	ActionID string `json:"action_id,omitempty"`
}

type listGesturesResponse struct {
	Gestures []gestureResponse `json:"gestures"`
}

var gestureRules = map[gesture.Label]string{
	gesture.Shenka:     "two hands, both wrists above 60% of the frame height",
	gesture.OK:         "thumb and index fingertips closer than 30 px",
	gesture.ThumbsUp:   "thumb tip above the index fingertip",
	gesture.ThumbsDown: "thumb tip more than 15 px below the index fingertip",
}

// ServeHTTP handles GET /api/gestures and GET /api/gestures/{label}.
func (h *GestureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if name := itemPath(r, "/api/gestures"); name != "" {
		label, err := gesture.ParseLabel(name)
		if err != nil {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		resp, err := h.describe(label)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to look up action")
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	response := listGesturesResponse{Gestures: make([]gestureResponse, 0, len(gesture.Labels()))}
	for _, label := range gesture.Labels() {
		resp, err := h.describe(label)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to look up action")
			return
		}
		response.Gestures = append(response.Gestures, resp)
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *GestureHandler) describe(label gesture.Label) (gestureResponse, error) {
	resp := gestureResponse{
		Label: string(label),
		Rule:  gestureRules[label],
	}
	for i, l := range gesture.Labels() {
		if l == label {
			resp.Priority = i + 1
		}
	}
	if c, ok := render.CaptionFor(label); ok {
		resp.Caption = c.Text
	}

	if h.store != nil {
		action, err := h.store.Actions().GetByLabel(string(label))
		if err != nil {
			return resp, err
		}
		if action != nil {
			resp.ActionID = action.ID
		}
	}
	return resp, nil
}
