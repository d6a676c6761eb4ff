// Command hudlink runs the HUD synchronization client: it connects to
// the gesture controller socket, mirrors mission state locally and
// exposes session diagnostics.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/aegisone/hudlink/internal/config"
	"github.com/aegisone/hudlink/internal/conn"
	"github.com/aegisone/hudlink/internal/engine"
	"github.com/aegisone/hudlink/internal/geo"
	"github.com/aegisone/hudlink/internal/influx"
	"github.com/aegisone/hudlink/internal/journal"
	"github.com/aegisone/hudlink/internal/logging"
	intOtel "github.com/aegisone/hudlink/internal/otel"
	"github.com/aegisone/hudlink/internal/state"
)

// Version can be set at build time via ldflags.
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"
)

const statusInterval = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "hudlink:", err)
		os.Exit(1)
	}
}

func run() error {
	sessionStart := time.Now().UTC()
	sessionID := sessionStart.Format("20060102_150405")

	configDir := "."
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}
	if err := config.Load(configDir); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	logFile, err := os.Create(logging.LogFilePath(logsDir, "hudlink", sessionStart))
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	// OTel log export, optional
	otelCfg := config.OTel()
	otelConfig := intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  "hudlink",
		BatchTimeout: time.Duration(otelCfg.BatchTimeoutMs) * time.Millisecond,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	}
	if otelCfg.Enabled {
		otelLogFile, err := os.Create(filepath.Join(logsDir, fmt.Sprintf("hudlink.%s.otel.json", sessionID)))
		if err != nil {
			return fmt.Errorf("creating otel log file: %w", err)
		}
		defer otelLogFile.Close()
		otelConfig.LogWriter = otelLogFile
	}
	provider, err := intOtel.New(otelConfig)
	if err != nil {
		return fmt.Errorf("initializing otel: %w", err)
	}

	// Graylog, optional
	var gelfWriter *gelf.Writer
	if gl := config.Graylog(); gl.Enabled {
		gelfWriter, err = gelf.NewWriter(gl.Address)
		if err != nil {
			fmt.Fprintln(os.Stderr, "hudlink: graylog unavailable:", err)
			gelfWriter = nil
		}
	}

	var eng *engine.Engine
	logManager := logging.NewSlogManager()
	logManager.Setup(config.GetString("logLevel"), logging.Options{
		File:     logFile,
		Provider: provider.LoggerProvider(),
		Graylog:  gelfWriter,
		Context: func() []slog.Attr {
			attrs := []slog.Attr{slog.String("session", sessionID)}
			if eng != nil {
				attrs = append(attrs, slog.Bool("connected", eng.Snapshot().Connected))
			}
			return attrs
		},
	})
	logger := logManager.Logger()
	logger.Info("Starting hudlink", "version", Version, "buildDate", BuildDate)

	zlog := zerolog.New(os.Stderr).With().Timestamp().Str("session", sessionID).Logger()

	// Session journal, optional
	jc := config.Journal()
	var recorder *journal.Recorder
	if jc.Enabled {
		recorder, err = journal.NewRecorder(journal.Config{
			Driver: jc.Driver,
			Path:   jc.Path,
			DSN:    jc.DSN,
		}, sessionID, zlog)
		if err != nil {
			logger.Error("Journal disabled", "error", err)
			recorder = nil
		} else {
			defer func() {
				if err := recorder.Close(); err != nil {
					logger.Error("Journal close failed", "error", err)
				}
			}()
		}
	}

	pc := config.Projector()
	proj := geo.NewProjector(pc.Radius, pc.Squash)

	engineOpts := []engine.Option{
		engine.WithMarkerObserver(func(m state.Marker) {
			if recorder != nil {
				recorder.RecordMarker(m)
			}
			if cam := eng.Snapshot().Camera; cam != nil {
				p := proj.Project(cam.Lon, m.Lat, m.Lon)
				attrs := []any{
					"name", m.Name, "kind", m.Kind,
					"x", p.X, "y", p.Y, "visible", p.Visible,
				}
				if anchor, err := geo.MercatorPoint(m.Lat, m.Lon); err == nil {
					if coords, ok := anchor.Coordinates(); ok {
						attrs = append(attrs, "minimapX", coords.X, "minimapY", coords.Y)
					}
				}
				logger.Debug("Marker placed", attrs...)
			}
		}),
	}
	if recorder != nil {
		engineOpts = append(engineOpts, engine.WithRecorder(recorder))
	}

	gc := config.Gesture()
	eng, err = engine.New(engine.Config{
		Conn: conn.Config{
			URL:            gc.URL,
			ReconnectDelay: gc.ReconnectDelay(),
			MaxRetries:     gc.MaxRetries,
			MaxBackoff:     gc.MaxBackoff(),
		},
		ToolTTL:           gc.ToolTTL(),
		OptimisticMarkers: gc.OptimisticMarkers,
	}, logger, logging.NewDispatcherLogger(zlog), engineOpts...)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	// Session metrics, optional
	if viper.GetBool("influx.enabled") {
		im := influx.NewManager(zlog, filepath.Join(logsDir, fmt.Sprintf("hudlink.%s.metrics.gz", sessionID)))
		if err := im.Connect(); err != nil {
			logger.Error("Metrics disabled", "error", err)
		} else {
			reporter := influx.NewReporter(im, sessionID, func() influx.SessionSample {
				snap := eng.Snapshot()
				stats := eng.Stats()
				return influx.SessionSample{
					Connected:     snap.Connected,
					GaveUp:        stats.GaveUp,
					FramesDropped: stats.FramesDropped,
					Reconnects:    stats.Reconnects,
					Markers:       stats.Markers,
					Alerts:        len(snap.Alerts),
				}
			}, statusInterval)
			defer func() {
				reporter.Stop()
				im.Close()
			}()
		}
	}

	eng.Start()
	logger.Info("Engine started", "url", gc.URL)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snap := eng.Snapshot()
			stats := eng.Stats()
			logger.Info("Session status",
				"connected", snap.Connected,
				"lastEvent", snap.LastEvent,
				"markers", stats.Markers,
				"alerts", len(snap.Alerts),
				"framesDropped", stats.FramesDropped,
				"reconnects", stats.Reconnects,
			)
			if stats.GaveUp {
				logger.Error("Reconnect budget exhausted, shutting down")
				return shutdown(eng, logManager, provider, logger)
			}
		case sig := <-sigCh:
			logger.Info("Received signal, shutting down", "signal", sig.String())
			return shutdown(eng, logManager, provider, logger)
		}
	}
}

func shutdown(eng *engine.Engine, logManager *logging.SlogManager, provider *intOtel.Provider, logger *slog.Logger) error {
	if err := eng.Stop(); err != nil {
		logger.Error("Engine stop failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := logManager.Flush(ctx); err != nil {
		logger.Error("Log flush failed", "error", err)
	}
	if err := provider.Shutdown(ctx); err != nil {
		logger.Error("OTel shutdown failed", "error", err)
	}

	logger.Info("Shutdown complete")
	return nil
}
