package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/publish"
	"github.com/ayusman/mudra/internal/render"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

// run starts the frame loop with its supporting services. With the tray
// enabled the tray owns the main goroutine and the loop runs headless.
func run(ctx context.Context, cfg config.Config) error {
	if !cfg.Tray {
		return live(ctx, cfg, nil)
	}

	if !cfg.Display.Headless {
		log.Warn("Tray mode runs without a display window")
		cfg.Display.Headless = true
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ui := tray.New()
	ui.OnQuit(cancel)
	if url := streamURL(cfg.HTTP.Addr); url != "" {
		ui.OnOpen(func() { openBrowser(url) })
	}

	errc := make(chan error, 1)
	go func() {
		errc <- live(ctx, cfg, ui)
		ui.Quit()
	}()

	ui.Run()
	cancel()
	return <-errc
}

// live runs the frame loop until it stops, together with the HTTP server when
// an address is configured. A failing server stops the loop and the loop
// stopping shuts the server down.
func live(ctx context.Context, cfg config.Config, ui *tray.Tray) error {
	st, err := openStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	a := app.New(app.Config{
		Store:         st,
		PluginDir:     cfg.Plugins.Dir,
		PluginTimeout: cfg.Plugins.Timeout,
		Camera:        cfg.CaptureSettings(),
		Detector:      cfg.DetectorSettings(),
	})
	defer a.Close()

	if err := a.DiscoverPlugins(); err != nil {
		log.Warnf("Plugin discovery failed: %v", err)
	} else {
		log.Infof("Loaded %d plugins from %s", len(a.PluginManager().List()), cfg.Plugins.Dir)
	}

	if !cfg.Display.Headless {
		a.SetDisplay(render.NewWindow(cfg.Display.Title))
	}

	if cfg.Redis.Addr != "" {
		pub := publish.NewRedisPublisher(cfg.RedisSettings())
		defer pub.Close()
		if err := pub.Ping(); err != nil {
			log.Warnf("Redis at %s not reachable yet: %v", cfg.Redis.Addr, err)
		}
		a.RegisterGestureCallback(pub.Handle)
		log.Infof("Publishing gesture events to %s on %s", pub.Channel(), cfg.Redis.Addr)
	}

	if ui != nil {
		ui.OnToggle(a.SetEnabled)
		a.RegisterGestureCallback(func(ev app.Event) {
			ui.SetLastGesture(ev.Label.String())
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	auxCtx, stopAux := context.WithCancel(gctx)
	defer stopAux()

	if cfg.HTTP.Addr != "" {
		hub := server.NewResultsHub()
		frames := server.NewFrameBuffer()
		a.OnResult(hub.Publish)
		a.SetFrameSink(frames.Update)

		srv := server.New(server.Config{
			Store:   st,
			Plugins: a.PluginManager(),
			Status:  a.Status,
			Frames:  frames,
			Results: hub,
		})

		g.Go(func() error {
			hub.Run(auxCtx)
			return nil
		})
		g.Go(func() error {
			if err := srv.ListenAndServe(auxCtx, cfg.HTTP.Addr); err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	// The loop stays on this goroutine for the display window
	runErr := a.Run(gctx)
	stopAux()

	if err := g.Wait(); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func openStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Debugf("Using database %s", path)
	return st, nil
}

// streamURL returns the browser URL of the MJPEG stream served on addr.
func streamURL(addr string) string {
	if addr == "" {
		return ""
	}
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host + "/api/stream"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warnf("Failed to open %s: %v", url, err)
		return
	}
	go cmd.Wait()
}
