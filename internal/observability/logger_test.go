package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/couchcryptid/covid-data-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Level(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(&config.Config{LogLevel: "warn", LogFormat: "json"})
	require.NotNil(t, logger)

	ctx := context.Background()
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.Same(t, logger, slog.Default())
}

func TestNewLogger_TextDebug(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(&config.Config{LogLevel: "debug", LogFormat: "text"})
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewCommandLogger(t *testing.T) {
	prev := slog.Default()

	var buf bytes.Buffer
	logger := NewCommandLogger(&buf, "covidctl", false)
	logger.Info("dropped")
	logger.Warn("kept", "dataset", "cases")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "msg=kept")
	assert.Contains(t, out, "service=covidctl")
	assert.Contains(t, out, "dataset=cases")
	assert.Same(t, prev, slog.Default(), "command logger leaves the default alone")

	verbose := NewCommandLogger(&buf, "covidctl", true)
	assert.True(t, verbose.Enabled(context.Background(), slog.LevelDebug))
}
