package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/fingerspell/internal/app"
	"github.com/ayusman/fingerspell/internal/config"
	"github.com/ayusman/fingerspell/internal/gesture"
	"github.com/ayusman/fingerspell/internal/lesson"
	"github.com/ayusman/fingerspell/internal/metrics"
	"github.com/ayusman/fingerspell/internal/overlay"
	"github.com/ayusman/fingerspell/internal/plugin"
	"github.com/ayusman/fingerspell/internal/receiver"
	"github.com/ayusman/fingerspell/internal/server"
	"github.com/ayusman/fingerspell/internal/store"
	"github.com/ayusman/fingerspell/internal/tracker"
	"github.com/ayusman/fingerspell/internal/tray"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Receive keypoints and run the lesson",
	Long: `Starts the UDP keypoint receiver, the evaluation loop and the HTTP API.
Optionally launches the hand tracker, the tray icon and the overlay window.`,
	RunE: runRun,
}

var (
	runPort    int
	runAddr    string
	runLesson  string
	runTracker bool
	runTray    bool
	runOverlay bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVar(&runPort, "port", 0, "UDP port for tracker keypoints (overrides config)")
	runCmd.Flags().StringVar(&runAddr, "addr", "", "HTTP listen address (overrides config)")
	runCmd.Flags().StringVar(&runLesson, "lesson", "", "Lesson to start with (overrides the saved selection)")
	runCmd.Flags().BoolVar(&runTracker, "tracker", false, "Launch the hand tracker")
	runCmd.Flags().BoolVar(&runTray, "tray", false, "Show the tray icon")
	runCmd.Flags().BoolVar(&runOverlay, "overlay", false, "Show the overlay window")
}

// applyFlags copies explicitly set flags over the config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Receiver.Port = runPort
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = runAddr
	}
	if flags.Changed("tracker") {
		cfg.Tracker.AutoStart = runTracker
	}
	if flags.Changed("tray") {
		cfg.Tray.Enabled = runTray
	}
	if flags.Changed("overlay") {
		cfg.Overlay.Enabled = runOverlay
	}
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.StorePath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if n, err := st.Lessons().Seed(gesture.Plans()); err != nil {
		logger.Warn("failed to seed built-in lessons", "error", err)
	} else if n > 0 {
		logger.Info("seeded built-in lessons", "count", n)
	}

	rcv := receiver.New(receiver.Config{
		ReadTimeout: cfg.ReadTimeout(),
		BufferSize:  cfg.Receiver.BufferSize,
		Logger:      logger,
	})
	if err := rcv.Start(cfg.Receiver.Port); err != nil {
		return err
	}
	defer rcv.Stop()

	hub := server.NewHub(logger)
	defer hub.Close()

	a, err := app.New(app.Config{
		Store:        st,
		Source:       rcv,
		Projector:    cfg.Projector(),
		Lesson:       cfg.Lesson,
		TickInterval: cfg.TickInterval(),
		FrameTTL:     cfg.FrameTTL(),
		Sinks:        []lesson.Sink{hub},
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	if runLesson != "" {
		if err := a.SelectLesson(runLesson); err != nil {
			return fmt.Errorf("select lesson: %w", err)
		}
	}

	plugins := plugin.NewManager(cfg.PluginDir(), logger)
	if err := plugins.Discover(); err != nil {
		logger.Warn("plugin discovery failed", "dir", cfg.PluginDir(), "error", err)
	}
	cues, err := plugin.NewRunner(plugin.RunnerConfig{
		Cues:     st.Cues(),
		Plugins:  plugins,
		Executor: plugin.NewExecutor(cfg.PluginTimeout()),
		Lesson:   func() string { return a.Snapshot().Lesson },
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	a.AddSink(cues)

	preview, err := overlay.New(overlay.Config{
		Width:     cfg.Overlay.Width,
		Height:    cfg.Overlay.Height,
		Projector: cfg.Projector(),
		Frames:    a,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	a.AddSink(preview)

	reg := metrics.NewRegistry(metrics.NewReceiverCollector(rcv.Stats))
	srv := server.New(server.Config{
		StaticDir:  findWebDir(cfg),
		Store:      st,
		Controller: a,
		Plugins:    plugins,
		Hub:        hub,
		Frames:     a,
		Preview:    preview,
		Metrics:    metrics.Handler(reg),
		Logger:     logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(); err != nil {
		return err
	}
	defer a.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx, cfg.Server.Addr)
	})
	g.Go(func() error {
		if err := cues.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if cfg.Tracker.AutoStart {
		sup := tracker.New(tracker.Config{
			Command: cfg.Tracker.Command,
			Args:    cfg.Tracker.Args,
			Dir:     cfg.Tracker.Dir,
			Port:    cfg.Receiver.Port,
			Logger:  logger,
		})
		if err := sup.Start(gctx); err != nil {
			logger.Warn("tracker not started", "error", err)
		} else {
			g.Go(func() error {
				<-gctx.Done()
				return sup.Stop()
			})
		}
	}

	var t *tray.Tray
	if cfg.Tray.Enabled {
		t = newTray(a, st, stop, logger)
		// The tray owns the main goroutine; it closes when the run group ends.
		g.Go(func() error {
			<-gctx.Done()
			t.Quit()
			return nil
		})
	}

	if cfg.Overlay.Enabled {
		w := overlay.NewWindow(preview)
		w.OnClose = stop
		if t == nil {
			// Native windows must stay on the main goroutine.
			if err := w.Run(gctx); err != nil {
				logger.Warn("overlay window failed", "error", err)
			}
		} else if runtime.GOOS == "darwin" {
			logger.Warn("overlay window is unavailable while the tray is shown on macOS; use /api/stream")
		} else {
			g.Go(func() error {
				if err := w.Run(gctx); err != nil {
					logger.Warn("overlay window failed", "error", err)
				}
				return nil
			})
		}
	}

	if t != nil {
		t.Run()
		stop()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutting down")
	return nil
}

// newTray builds the tray with the stored lessons in its menu.
func newTray(a *app.App, st *store.Store, quit func(), logger *slog.Logger) *tray.Tray {
	var names []string
	if lessons, err := st.Lessons().List(); err != nil {
		logger.Warn("failed to list lessons for tray", "error", err)
	} else {
		for _, l := range lessons {
			names = append(names, l.Name)
		}
	}

	t := tray.New(tray.Config{
		Controller: a,
		Lessons:    names,
		OnQuit:     quit,
		Logger:     logger,
	})
	a.AddSink(t)
	return t
}
