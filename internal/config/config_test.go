package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Camera.DeviceID != 0 || cfg.Camera.Width != 640 || cfg.Camera.Height != 480 {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if cfg.Display.Title != "Hand Gesture Recognition" {
		t.Errorf("title = %q", cfg.Display.Title)
	}
	if cfg.Redis.Channel != "mudra:gestures" || cfg.Redis.Addr != "" {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if cfg.Plugins.Timeout != 5*time.Second {
		t.Errorf("plugin timeout = %s", cfg.Plugins.Timeout)
	}
	if filepath.Base(cfg.Store.Path) != "mudra.db" {
		t.Errorf("store path = %q", cfg.Store.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
camera:
  device_id: 2
  width: 1280
  height: 720
display:
  headless: true
http:
  addr: ""
redis:
  addr: localhost:6379
plugins:
  timeout: 2s
logging:
  debug: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Camera.DeviceID != 2 || cfg.Camera.Width != 1280 || cfg.Camera.Height != 720 {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if !cfg.Display.Headless {
		t.Error("headless should be set")
	}
	// Unset keys keep their defaults
	if cfg.Display.Title != "Hand Gesture Recognition" {
		t.Errorf("title = %q", cfg.Display.Title)
	}
	if cfg.HTTP.Addr != "" {
		t.Errorf("http addr = %q, want disabled", cfg.HTTP.Addr)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.Channel != "mudra:gestures" {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if cfg.Plugins.Timeout != 2*time.Second {
		t.Errorf("plugin timeout = %s", cfg.Plugins.Timeout)
	}
	if !cfg.Logging.Debug {
		t.Error("debug should be set")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "camera: [1, 2"},
		{"wrong type", "camera:\n  width: wide\n"},
		{"negative device", "camera:\n  device_id: -1\n"},
		{"zero height", "camera:\n  height: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want not exist", err)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("MUDRA_CAMERA", "1")
	t.Setenv("MUDRA_HEADLESS", "true")
	t.Setenv("MUDRA_REDIS_CHANNEL", "gestures")

	cfg, err := Load(writeConfig(t, "camera:\n  device_id: 4\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Environment wins over the file
	if cfg.Camera.DeviceID != 1 {
		t.Errorf("device id = %d, want 1", cfg.Camera.DeviceID)
	}
	if !cfg.Display.Headless {
		t.Error("headless should be set from env")
	}
	if cfg.Redis.Channel != "gestures" {
		t.Errorf("channel = %q", cfg.Redis.Channel)
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, c Config)
	}{
		{
			name: "all kinds",
			env: map[string]string{
				"MUDRA_WIDTH":          "320",
				"MUDRA_TRAY":           "1",
				"MUDRA_PLUGIN_TIMEOUT": "750ms",
				"MUDRA_ADDR":           ":9090",
				"MUDRA_LOG_FILE":       "/tmp/mudra.log",
			},
			check: func(t *testing.T, c Config) {
				if c.Camera.Width != 320 || !c.Tray || c.Plugins.Timeout != 750*time.Millisecond {
					t.Errorf("config = %+v", c)
				}
				if c.HTTP.Addr != ":9090" || c.Logging.File != "/tmp/mudra.log" {
					t.Errorf("config = %+v", c)
				}
			},
		},
		{
			name: "empty value clears string",
			env:  map[string]string{"MUDRA_DB": ""},
			check: func(t *testing.T, c Config) {
				if c.Store.Path != "" {
					t.Errorf("store path = %q, want empty", c.Store.Path)
				}
			},
		},
		{name: "bad int", env: map[string]string{"MUDRA_HEIGHT": "tall"}, wantErr: true},
		{name: "bad bool", env: map[string]string{"MUDRA_DEBUG": "sometimes"}, wantErr: true},
		{name: "bad duration", env: map[string]string{"MUDRA_PLUGIN_TIMEOUT": "5"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := cfg.applyEnv(envMap(tt.env))
			if (err != nil) != tt.wantErr {
				t.Fatalf("applyEnv() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("error %v does not wrap ErrInvalidConfig", err)
				}
				return
			}
			tt.check(t, cfg)
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Camera.DeviceID = 3
	cfg.Detector.Script = "/opt/mediapipe_service.py"
	cfg.Redis.Addr = "redis:6379"

	if c := cfg.CaptureSettings(); c.DeviceID != 3 || c.Width != 640 {
		t.Errorf("CaptureSettings() = %+v", c)
	}
	if d := cfg.DetectorSettings(); d.ScriptPath != "/opt/mediapipe_service.py" || d.MaxHands != 2 {
		t.Errorf("DetectorSettings() = %+v", d)
	}
	if r := cfg.RedisSettings(); r.Addr != "redis:6379" || r.Channel != "mudra:gestures" {
		t.Errorf("RedisSettings() = %+v", r)
	}
}
