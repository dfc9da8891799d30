package mylogger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingHandler struct {
	slog.Handler
}

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("disk full")
}

func TestMultiHandler_RespectsLevels(t *testing.T) {
	debugBuf := new(bytes.Buffer)
	errorBuf := new(bytes.Buffer)

	logger := slog.New(NewMultiHandler(
		slog.NewTextHandler(debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	))

	logger.Debug("debug message")
	logger.Error("error message")

	assert.Contains(t, debugBuf.String(), "debug message")
	assert.Contains(t, debugBuf.String(), "error message")
	assert.NotContains(t, errorBuf.String(), "debug message")
	assert.Contains(t, errorBuf.String(), "error message")
}

func TestMultiHandler_WithAttrsAndGroup(t *testing.T) {
	first := new(bytes.Buffer)
	second := new(bytes.Buffer)

	logger := slog.New(NewMultiHandler(
		slog.NewTextHandler(first, nil),
		slog.NewTextHandler(second, nil),
	)).With("request_id", "abc").WithGroup("run")

	logger.Info("done", "steps", 20)

	for _, out := range []string{first.String(), second.String()} {
		assert.Contains(t, out, "request_id=abc")
		assert.Contains(t, out, "run.steps=20")
	}
}

func TestMultiHandler_ErrorDoesNotStopOthers(t *testing.T) {
	buf := new(bytes.Buffer)
	text := slog.NewTextHandler(buf, nil)
	handler := NewMultiHandler(failingHandler{text}, text)

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "still written", 0)
	err := handler.Handle(context.Background(), record)

	assert.EqualError(t, err, "disk full")
	assert.Contains(t, buf.String(), "still written")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelError, ParseLevel(""))
}

func TestNewLogger_WritesFile(t *testing.T) {
	console := new(bytes.Buffer)
	fileName := filepath.Join(t.TempDir(), "app.log")

	logger, closer := NewLogger(Options{Level: "INFO", FileName: fileName}, console)
	logger.Info("hello file")
	logger.Debug("hidden")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(fileName)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
	assert.False(t, strings.Contains(string(data), "hidden"))
	assert.Contains(t, console.String(), "hello file")
}

func TestNewLogger_ConsoleOnly(t *testing.T) {
	console := new(bytes.Buffer)

	logger, closer := NewLogger(Options{Level: "DEBUG"}, console)
	logger.Debug("visible")

	assert.NoError(t, closer.Close())
	assert.Contains(t, console.String(), "visible")
}
