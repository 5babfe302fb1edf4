// Package main provides a plugin that runs a configured shell command.
//
// The command receives the gesture label and hand in MUDRA_GESTURE,
// MUDRA_HAND and MUDRA_HANDEDNESS.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action     string          `json:"action"`
	Gesture    string          `json:"gesture"`
	Hand       int             `json:"hand"`
	Handedness string          `json:"handedness"`
	Config     json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the per-binding configuration stored with the action.
type Config struct {
	Command string `json:"command"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Action != "run" {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	out, err := run(req)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	data, _ := json.Marshal(map[string]string{"output": out})
	writeResponse(Response{Success: true, Data: data})
}

func run(req Request) (string, error) {
	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return "", fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if strings.TrimSpace(cfg.Command) == "" {
		return "", fmt.Errorf("command is required")
	}

	cmd := shellCommand(cfg.Command)
	cmd.Env = append(os.Environ(),
		"MUDRA_GESTURE="+req.Gesture,
		"MUDRA_HAND="+strconv.Itoa(req.Hand),
		"MUDRA_HANDEDNESS="+req.Handedness,
	)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(out.String()))
	}
	return strings.TrimSpace(out.String()), nil
}

func shellCommand(command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.Command("cmd", "/C", command)
	}
	return exec.Command("/bin/sh", "-c", command)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	writeResponse(Response{Success: false, Error: errMsg})
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
