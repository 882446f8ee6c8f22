package main

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C" // This is required to import the C code

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/OCAP2/facecsv/internal/app"
	"github.com/OCAP2/facecsv/internal/config"
	"github.com/OCAP2/facecsv/internal/logging"
	intOtel "github.com/OCAP2/facecsv/internal/otel"
	"github.com/OCAP2/facecsv/pkg/a3interface"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentExtensionVersion string = "0.1.0"
	BuildDate               string = "unknown"

	Addon         string = "facecsv"
	ExtensionName string = "facecsv"
)

// file paths
var (
	// HostDir is the directory of the host executable.
	HostDir string

	// AddonFolder holds config, logs and local archives. It is the folder the
	// library was loaded from, or @facecsv under HostDir when loaded from the root.
	AddonFolder string

	LogFilePath string
	LogFile     *os.File
)

// GELFWriter is the Graylog sink, nil unless graylog.enabled is set.
var GELFWriter io.Writer

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// StoreLog is the zerolog logger for dispatcher and storage
	StoreLog zerolog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	// Session mirrors recorder state into every log record
	Session = &logging.SessionAttrs{}

	SessionStartTime time.Time = time.Now()

	App *app.App
)

// init is run automatically when the module is loaded
func init() {
	var err error

	HostDir, err = a3interface.GetHostDir()
	if err != nil {
		panic(err)
	}

	AddonFolder, err = a3interface.ResolveAddonFolder(HostDir, a3interface.GetModuleDir(), Addon)
	if err != nil {
		panic(err)
	}

	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(logging.Options{Level: "info"})
	Logger = SlogManager.Logger()

	if err = config.Load(AddonFolder); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	setupLogging()

	Logger.Info("Setting up a3interface...")
	if err = setupA3Interface(); err != nil {
		Logger.Error("Failed to set up a3interface!", "error", err)
		panic(err)
	}
	Logger.Info("Set up a3interface")

	config.Watch(onConfigChange)
}

// setupLogging opens the session log file and rebuilds the slog sinks with
// optional OTel and Graylog outputs.
func setupLogging() {
	var err error
	logsDir := config.GetString("logsDir")
	if !filepath.IsAbs(logsDir) {
		logsDir = filepath.Join(AddonFolder, logsDir)
	}

	LogFile, err = logging.OpenLogFile(logsDir, ExtensionName, SessionStartTime)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "dir", logsDir)
	} else {
		LogFilePath = LogFile.Name()
		Logger.Info("Begin logging in logs directory", "path", LogFilePath)
	}

	if otelCfg := config.GetOTelConfig(); otelCfg.Enabled {
		var w io.Writer
		if LogFile != nil {
			w = LogFile
		}
		OTelProvider, err = intOtel.New(context.Background(), intOtel.FromSettings(otelCfg, w))
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	if config.GetBool("graylog.enabled") {
		addr := config.GetString("graylog.address")
		gw, err := logging.NewGELFWriter(addr, ExtensionName)
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "address", addr, "error", err)
		} else {
			GELFWriter = gw
		}
	}

	applyLogLevel(config.GetString("logLevel"))
}

func setupA3Interface() (err error) {
	a3interface.SetVersion(CurrentExtensionVersion)
	a3interface.SetExtensionName(ExtensionName)

	App, err = app.New(context.Background(), app.Options{
		BaseDir:   AddonFolder,
		Logger:    Logger,
		Session:   Session,
		StoreLog:  StoreLog,
		Notify:    a3interface.WriteArmaCallback,
		Version:   CurrentExtensionVersion,
		BuildDate: BuildDate,
	})
	if err != nil {
		return fmt.Errorf("failed to build recorder: %w", err)
	}

	a3interface.SetDispatcher(App.Dispatcher)
	Logger.Info("Dispatcher initialized", "commands", App.Dispatcher.Commands())
	return nil
}

// onConfigChange applies settings that can change without a restart.
// Only the slog level is live; zerolog sinks keep their startup level.
func onConfigChange(e fsnotify.Event) {
	level := config.GetString("logLevel")
	Logger.Info("Config file changed", "file", e.Name, "logLevel", level)
	SlogManager.SetLevel(level)
}

// applyLogLevel rebuilds every log sink at level.
func applyLogLevel(level string) {
	opts := logging.Options{
		Level:   level,
		GELF:    GELFWriter,
		Context: Session.Provider(),
	}
	var storeOut io.Writer = os.Stdout
	if LogFile != nil {
		opts.File = LogFile
		storeOut = LogFile
	}
	if OTelProvider != nil {
		opts.Provider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(opts)
	Logger = SlogManager.Logger()
	slog.SetDefault(Logger)

	StoreLog = logging.NewZerolog(storeOut, level)
}

// shutdown closes the app and flushes telemetry.
func shutdown() {
	if App != nil {
		if err := App.Close(); err != nil {
			Logger.Error("Error during shutdown", "error", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := SlogManager.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "flush logs: %v\n", err)
	}
	if OTelProvider != nil {
		_ = OTelProvider.Shutdown(ctx)
	}
	if LogFile != nil {
		_ = LogFile.Close()
	}
}

func main() {
	defer shutdown()

	if err := runCLI(os.Args[1:], os.Stdout); err != nil {
		Logger.Error("Command failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		shutdown()
		os.Exit(1)
	}
}
