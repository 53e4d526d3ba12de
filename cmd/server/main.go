package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Swaraag/JustIdol-sub000/internal/config"
	"github.com/Swaraag/JustIdol-sub000/internal/metrics"
	"github.com/Swaraag/JustIdol-sub000/internal/publish"
	"github.com/Swaraag/JustIdol-sub000/internal/scoring"
	"github.com/Swaraag/JustIdol-sub000/internal/server"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "duet-scoring-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.String("bind_address", cfg.HTTP.Address),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Float64("pitch_threshold", cfg.Pitch.Threshold),
		slog.Int("vocal_window_ms", cfg.Vocal.WindowMs),
		slog.Float64("pose_tolerance_degrees", cfg.Pose.ToleranceDegrees),
		slog.Int("cooldown_ms", cfg.Scoring.CooldownMs),
		slog.Bool("publish_enabled", cfg.Publish.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize result publisher (if enabled)
	var publisher *publish.Publisher
	if cfg.Publish.Enabled {
		publisher, err = publish.NewPublisher(cfg.Publish, logger)
		if err != nil {
			logger.Error("Failed to create result publisher", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Result publisher initialized",
			slog.String("topic", cfg.Publish.Topic),
			slog.Int("brokers", len(cfg.Publish.Brokers)),
		)
	}

	// Initialize session manager
	var resultSink scoring.ResultPublisher
	if publisher != nil {
		resultSink = publisher
	}
	sessionMgr := scoring.NewManager(cfg, logger, appMetrics, resultSink)
	logger.Info("Session manager initialized",
		slog.Duration("session_timeout", cfg.Scoring.GetSessionTimeout()),
	)

	// Initialize HTTP API server
	httpServer := server.NewHTTPServer(cfg.HTTP, logger, cfg, sessionMgr, appMetrics)
	logger.Info("HTTP API server initialized",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Stop session manager (finalize bookkeeping and stop background routines)
	sessionMgr.Stop()

	// Close the publisher last so in-flight results can still drain
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("Error closing result publisher", slog.String("error", err.Error()))
		}
	}

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
