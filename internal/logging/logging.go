// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Config selects the log level and an optional log file.
type Config struct {
	Debug bool
	// File receives a copy of everything written to stderr when set.
	File string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// Setup configures the standard logrus logger and returns a cleanup func
// that closes the log file and restores stderr output.
func Setup(cfg Config) (func() error, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level := log.InfoLevel
	if cfg.Debug {
		level = log.DebugLevel
	}

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	log.SetLevel(level)

	if cfg.File == "" {
		log.SetOutput(out)
		return func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		log.SetOutput(out)
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		log.SetOutput(out)
		return nil, fmt.Errorf("open log file: %w", err)
	}

	log.SetOutput(io.MultiWriter(out, f))
	log.Debugf("Logging to %s", cfg.File)

	cleanup := func() error {
		log.SetOutput(os.Stderr)
		return f.Close()
	}
	return cleanup, nil
}
