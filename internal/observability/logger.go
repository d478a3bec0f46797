package observability

import (
	"log/slog"
	"os"

	"github.com/iml-gddaiss/buoy-telemetry-etl/internal/config"
)

// NewLogger builds the service logger from LOG_LEVEL and LOG_FORMAT.
// Unrecognized values fall back to info-level JSON.
func NewLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
