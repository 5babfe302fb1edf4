// Package plugin discovers and runs external action plugins bound to gestures.
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// SupportsAction reports whether the manifest lists action.
func (m Manifest) SupportsAction(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request is written as JSON to the plugin's stdin.
type Request struct {
	Action string `json:"action"`
	// Gesture is the label that triggered the action.
	Gesture    string          `json:"gesture"`
	Hand       int             `json:"hand"`
	Handedness string          `json:"handedness,omitempty"`
	Config     json.RawMessage `json:"config"`
	Params     json.RawMessage `json:"params,omitempty"`
}

// Response is read as JSON from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
