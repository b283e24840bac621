package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// NewApp builds the service's leveled application logger: human-readable
// text to stderr, and, when filePath is non-empty, JSON lines fanned out to
// a log file alongside it via slog-multi. Callers reach for Trace instead
// for wire-level protocol detail; App is for lifecycle and operational
// events (template set loaded, stream publisher connected, HTTP request
// handled).
func NewApp(level slog.Level, filePath string) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: level}
	stderrHandler := slog.NewTextHandler(os.Stderr, opts)

	if filePath == "" {
		return slog.New(stderrHandler), noopCloser{}, nil
	}

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening app log file: %w", err)
	}
	fileHandler := slog.NewJSONHandler(f, opts)

	handler := slogmulti.Fanout(stderrHandler, fileHandler)
	return slog.New(handler), f, nil
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }
