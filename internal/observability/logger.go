package observability

import (
	"io"
	"log/slog"

	"github.com/couchcryptid/covid-data-service/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// ServiceName tags every log line.
const ServiceName = "covid-dashboard"

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func NewLogger(cfg *config.Config) *slog.Logger {
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", ServiceName)
	slog.SetDefault(logger)
	return logger
}

// NewCommandLogger builds a text logger writing to w, for commands whose stdout
// carries their output. The shared logger always writes to stdout. It does not
// replace the slog default.
func NewCommandLogger(w io.Writer, name string, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})).With("service", name)
}
