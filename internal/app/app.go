// Package app assembles the recorder, its upstream source, archives and the
// command dispatcher from the loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/OCAP2/facecsv/internal/config"
	"github.com/OCAP2/facecsv/internal/dispatcher"
	"github.com/OCAP2/facecsv/internal/handlers"
	"github.com/OCAP2/facecsv/internal/livelink"
	"github.com/OCAP2/facecsv/internal/livelink/relay"
	"github.com/OCAP2/facecsv/internal/logging"
	"github.com/OCAP2/facecsv/internal/monitor"
	"github.com/OCAP2/facecsv/internal/recorder"
	"github.com/OCAP2/facecsv/internal/scheduler"
	"github.com/OCAP2/facecsv/internal/storage"
)

// Options holds everything the app needs besides the viper settings.
type Options struct {
	// BaseDir anchors relative export and archive paths.
	BaseDir string

	Logger  *slog.Logger
	Session *logging.SessionAttrs

	// StoreLog is the zerolog logger used by dispatcher and storage code.
	StoreLog zerolog.Logger

	Notify    handlers.Notifier
	Version   string
	BuildDate string

	// RequireSource fails New when the relay cannot connect. When false a
	// failed relay is logged and the recorder runs without upstream data.
	RequireSource bool
}

// App is the assembled extension.
type App struct {
	Registry   *livelink.Registry
	Relay      *relay.Relay
	Recorder   *recorder.Recorder
	Manual     *scheduler.Manual // nil in timer mode
	Archives   []storage.Backend
	Dispatcher *dispatcher.Dispatcher
	Handlers   *handlers.Service
	Monitor    *monitor.Service // nil when disabled or without BaseDir

	logger *slog.Logger
	cancel context.CancelFunc
}

// New builds the app. Archives that fail to initialize are logged and skipped.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Session == nil {
		opts.Session = &logging.SessionAttrs{}
	}
	ctx, cancel := context.WithCancel(ctx)

	a := &App{
		Registry: livelink.NewRegistry(),
		logger:   opts.Logger,
		cancel:   cancel,
	}

	if err := a.startSource(ctx, opts); err != nil {
		cancel()
		return nil, err
	}

	a.Archives = a.initArchives(opts)

	rc := config.GetRecorderConfig()
	var sched scheduler.Scheduler
	if rc.TickMode == config.TickModeTimer {
		sched = scheduler.NewTicker(rc.TickInterval)
	} else {
		a.Manual = scheduler.NewManual()
		sched = a.Manual
	}

	exportRoot := rc.ExportRoot
	if exportRoot != "" && !filepath.IsAbs(exportRoot) && opts.BaseDir != "" {
		exportRoot = filepath.Join(opts.BaseDir, exportRoot)
	}

	rec, err := recorder.New(recorder.Config{
		Subject:    rc.Subject,
		Filename:   rc.Filename,
		ExportRoot: exportRoot,
		SaveFolder: rc.SaveFolder,
	}, recorder.Dependencies{
		Client:    a.Registry,
		Scheduler: sched,
		Archives:  a.Archives,
		Logger:    opts.Logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create recorder: %w", err)
	}
	a.Recorder = rec

	d, err := dispatcher.New(logging.NewDispatcherLogger(opts.StoreLog))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	a.Dispatcher = d

	a.Handlers = handlers.NewService(handlers.Dependencies{
		Recorder:  rec,
		Client:    a.Registry,
		Manual:    a.Manual,
		Session:   opts.Session,
		Notify:    opts.Notify,
		Logger:    opts.Logger,
		Version:   opts.Version,
		BuildDate: opts.BuildDate,
	})
	a.Handlers.Register(d)

	if mc := config.GetMonitorConfig(); mc.Enabled && opts.BaseDir != "" {
		deps := monitor.Dependencies{
			Recorder:   rec,
			Client:     a.Registry,
			Logger:     opts.Logger,
			StatusPath: filepath.Join(opts.BaseDir, monitor.StatusFileName),
			Interval:   mc.Interval,
		}
		if a.Relay != nil {
			deps.Reconnects = a.Relay.Reconnects
		}
		a.Monitor = monitor.NewService(deps)
		a.Monitor.Start()
	}

	opts.Logger.Info("Recorder ready",
		"tickMode", rc.TickMode,
		"folder", rec.SaveFolder(),
		"archives", len(a.Archives),
		"commands", len(d.Commands()))
	return a, nil
}

func (a *App) startSource(ctx context.Context, opts Options) error {
	sc := config.GetSourceConfig()
	if !sc.Enabled && !opts.RequireSource {
		return nil
	}

	r := relay.New(relay.Config{URL: sc.URL, Secret: sc.Secret}, a.Registry, opts.Logger)
	if err := r.Start(ctx); err != nil {
		if opts.RequireSource {
			return fmt.Errorf("failed to connect to source: %w", err)
		}
		opts.Logger.Error("Failed to connect to source, recording without upstream data", "url", sc.URL, "error", err)
		return nil
	}
	opts.Logger.Info("Connected to source", "url", sc.URL)
	a.Relay = r
	return nil
}

func (a *App) initArchives(opts Options) []storage.Backend {
	names := archiveNames(config.GetStorageConfig(), config.GetInfluxConfig(), config.GetAPIConfig())

	var archives []storage.Backend
	for _, name := range names {
		b, err := createArchive(name, opts.BaseDir, opts.StoreLog.With().Str("archive", name).Logger())
		if err == nil {
			err = b.Init()
			if err != nil {
				_ = b.Close()
			}
		}
		if err != nil {
			opts.Logger.Error("Failed to initialize archive", "backend", name, "error", err)
			continue
		}
		opts.Logger.Info("Archive initialized", "backend", storage.NameOf(b))
		archives = append(archives, b)
	}
	return archives
}

// Close stops sampling, drains the dispatcher and closes the source and archives.
func (a *App) Close() error {
	if a.Monitor != nil {
		a.Monitor.Stop()
	}
	if a.Recorder != nil {
		a.Recorder.Stop()
	}
	if a.Dispatcher != nil {
		a.Dispatcher.Close()
	}
	a.cancel()

	var errs []error
	if a.Relay != nil {
		if err := a.Relay.Close(); err != nil && !errors.Is(err, relay.ErrClosed) {
			errs = append(errs, fmt.Errorf("relay: %w", err))
		}
	}
	for _, b := range a.Archives {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", storage.NameOf(b), err))
		}
	}
	return errors.Join(errs...)
}
