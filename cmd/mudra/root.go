package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logging"
)

// flags holds command-line overrides. Only flags the user set are applied.
type flags struct {
	configPath   string
	camera       int
	width        int
	height       int
	headless     bool
	title        string
	db           string
	addr         string
	redis        string
	redisChannel string
	pluginDir    string
	tray         bool
	debug        bool
	logFile      string
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:          "mudra",
		Short:        "Mudra - live hand gesture recognition",
		Long:         "Mudra reads a camera, detects hand landmarks and overlays the recognized gesture (Shenka, OK, ThumbsUp, ThumbsDown). Press q in the window to quit.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), f)
			if err != nil {
				return err
			}

			cleanup, err := logging.Setup(logging.Config{Debug: cfg.Logging.Debug, File: cfg.Logging.File})
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}

	bindPersistentFlags(cmd.PersistentFlags(), &f)
	bindFlags(cmd.Flags(), &f)

	cmd.AddCommand(newClassifyCmd())
	return cmd
}

func bindPersistentFlags(pf *pflag.FlagSet, f *flags) {
	pf.StringVar(&f.configPath, "config", "", "config file (default ~/.mudra/config.yaml)")
	pf.BoolVar(&f.debug, "debug", false, "enable debug logging")
	pf.StringVar(&f.logFile, "log-file", "", "also write logs to this file")
}

func bindFlags(fl *pflag.FlagSet, f *flags) {
	fl.IntVar(&f.camera, "camera", 0, "camera device id")
	fl.IntVar(&f.width, "width", 0, "capture width in pixels")
	fl.IntVar(&f.height, "height", 0, "capture height in pixels")
	fl.BoolVar(&f.headless, "headless", false, "do not open a display window")
	fl.StringVar(&f.title, "title", "", "display window title")
	fl.StringVar(&f.db, "db", "", "SQLite database path (empty string disables history)")
	fl.StringVar(&f.addr, "addr", "", "HTTP listen address (empty string disables the server)")
	fl.StringVar(&f.redis, "redis", "", "publish gesture events to this Redis address")
	fl.StringVar(&f.redisChannel, "redis-channel", "", "Redis channel for gesture events")
	fl.StringVar(&f.pluginDir, "plugin-dir", "", "plugin directory")
	fl.BoolVar(&f.tray, "tray", false, "show a system tray menu (runs headless)")
}

// loadConfig reads the config file and environment, then applies the flags
// that were set on the command line.
func loadConfig(fs *pflag.FlagSet, f flags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}

	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("camera", func() { cfg.Camera.DeviceID = f.camera })
	set("width", func() { cfg.Camera.Width = f.width })
	set("height", func() { cfg.Camera.Height = f.height })
	set("headless", func() { cfg.Display.Headless = f.headless })
	set("title", func() { cfg.Display.Title = f.title })
	set("db", func() { cfg.Store.Path = f.db })
	set("addr", func() { cfg.HTTP.Addr = f.addr })
	set("redis", func() { cfg.Redis.Addr = f.redis })
	set("redis-channel", func() { cfg.Redis.Channel = f.redisChannel })
	set("plugin-dir", func() { cfg.Plugins.Dir = f.pluginDir })
	set("tray", func() { cfg.Tray = f.tray })
	set("debug", func() { cfg.Logging.Debug = f.debug })
	set("log-file", func() { cfg.Logging.File = f.logFile })

	return cfg, cfg.Validate()
}
