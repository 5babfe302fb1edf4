// Package config loads mudra settings from defaults, a YAML file and the
// environment. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/publish"
	"github.com/ayusman/mudra/internal/render"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "MUDRA_"

// ErrInvalidConfig wraps every validation and parse failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all runtime settings.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Display  DisplayConfig  `yaml:"display"`
	Detector DetectorConfig `yaml:"detector"`
	Store    StoreConfig    `yaml:"store"`
	HTTP     HTTPConfig     `yaml:"http"`
	Redis    RedisConfig    `yaml:"redis"`
	Plugins  PluginConfig   `yaml:"plugins"`
	Tray     bool           `yaml:"tray"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type CameraConfig struct {
	DeviceID int `yaml:"device_id"`
	Width    int `yaml:"width"`
	Height   int `yaml:"height"`
}

type DisplayConfig struct {
	Headless bool   `yaml:"headless"`
	Title    string `yaml:"title"`
}

// DetectorConfig locates the MediaPipe landmark service.
type DetectorConfig struct {
	Script string `yaml:"script"`
	Python string `yaml:"python"`
}

type StoreConfig struct {
	// Path of the SQLite database. Empty disables persistence.
	Path string `yaml:"path"`
}

type HTTPConfig struct {
	// Addr is the listen address. Empty disables the HTTP server.
	Addr string `yaml:"addr"`
}

type RedisConfig struct {
	// Addr of the Redis server. Empty disables publishing.
	Addr     string `yaml:"addr"`
	Channel  string `yaml:"channel"`
	Password string `yaml:"password"`
}

type PluginConfig struct {
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
}

type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	File  string `yaml:"file"`
}

// Dir returns the mudra data directory, ~/.mudra.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mudra"
	}
	return filepath.Join(home, ".mudra")
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in settings.
func Default() Config {
	dir := Dir()
	return Config{
		Camera: CameraConfig{
			DeviceID: capture.DefaultDeviceID,
			Width:    capture.DefaultWidth,
			Height:   capture.DefaultHeight,
		},
		Display: DisplayConfig{Title: render.DefaultWindowTitle},
		Store:   StoreConfig{Path: filepath.Join(dir, "mudra.db")},
		HTTP:    HTTPConfig{Addr: "127.0.0.1:8080"},
		Redis:   RedisConfig{Channel: publish.DefaultChannel},
		Plugins: PluginConfig{
			Dir:     filepath.Join(dir, "plugins"),
			Timeout: plugin.DefaultTimeout,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path and
// MUDRA_* environment variables, in that order. A missing file is only an
// error when path was given explicitly. A .env file in the working directory
// is loaded into the environment first if present.
func Load(path string) (Config, error) {
	cfg := Default()

	// .env is optional; variables already set take precedence
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if err := cfg.loadFile(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			err = nil
		}
		if err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

// applyEnv overrides fields from environment variables found by lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s=%q is not an integer", ErrInvalidConfig, EnvPrefix, name, v))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s=%q is not a boolean", ErrInvalidConfig, EnvPrefix, name, v))
				return
			}
			*dst = b
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s=%q is not a duration", ErrInvalidConfig, EnvPrefix, name, v))
				return
			}
			*dst = d
		}
	}

	num("CAMERA", &c.Camera.DeviceID)
	num("WIDTH", &c.Camera.Width)
	num("HEIGHT", &c.Camera.Height)
	flag("HEADLESS", &c.Display.Headless)
	str("WINDOW_TITLE", &c.Display.Title)
	str("MEDIAPIPE_SCRIPT", &c.Detector.Script)
	str("PYTHON", &c.Detector.Python)
	str("DB", &c.Store.Path)
	str("ADDR", &c.HTTP.Addr)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_CHANNEL", &c.Redis.Channel)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("PLUGIN_DIR", &c.Plugins.Dir)
	dur("PLUGIN_TIMEOUT", &c.Plugins.Timeout)
	flag("TRAY", &c.Tray)
	flag("DEBUG", &c.Logging.Debug)
	str("LOG_FILE", &c.Logging.File)

	return errors.Join(errs...)
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.Camera.DeviceID < 0:
		return fmt.Errorf("%w: camera device id %d is negative", ErrInvalidConfig, c.Camera.DeviceID)
	case c.Camera.Width <= 0 || c.Camera.Height <= 0:
		return fmt.Errorf("%w: frame size %dx%d", ErrInvalidConfig, c.Camera.Width, c.Camera.Height)
	case c.Plugins.Timeout < 0:
		return fmt.Errorf("%w: plugin timeout %s is negative", ErrInvalidConfig, c.Plugins.Timeout)
	}
	return nil
}

// CaptureSettings returns the settings for capture.NewCamera.
func (c Config) CaptureSettings() capture.Config {
	return capture.Config{
		DeviceID: c.Camera.DeviceID,
		Width:    c.Camera.Width,
		Height:   c.Camera.Height,
	}
}

// DetectorSettings returns the settings for the MediaPipe detector. Hand count
// and confidence thresholds are fixed.
func (c Config) DetectorSettings() detector.Config {
	d := detector.DefaultConfig()
	d.ScriptPath = c.Detector.Script
	d.PythonPath = c.Detector.Python
	return d
}

// RedisSettings returns the settings for the Redis publisher.
func (c Config) RedisSettings() publish.RedisConfig {
	return publish.RedisConfig{
		Addr:     c.Redis.Addr,
		Channel:  c.Redis.Channel,
		Password: c.Redis.Password,
	}
}
