// Package logger provides structured logging using Go's standard library slog.
//
// Records fan out to the console, to a Seq collector (when configured) and
// to Sentry (when a DSN is set). Every shipped record carries the request id
// and the calling module, function and line.
//
// Usage:
//
//	log, shutdown := logger.Setup(cfg, logger.RequestIDExtractor())
//	defer shutdown(context.Background())
//	log.InfoContext(ctx, "request received", "path", path)
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"statapi/src/infra/config"
)

// newConsoleHandler builds the console handler: JSON, text or the plain
// pipe-separated format.
func newConsoleHandler(cfg config.LogConfig, w io.Writer) slog.Handler {
	level := ParseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info only in debug mode
	}

	switch strings.ToLower(cfg.Format) {
	case "plain":
		return &plainHandler{level: level, w: w, mu: &sync.Mutex{}}
	case "text":
		return slog.NewTextHandler(w, opts)
	default:
		return slog.NewJSONHandler(w, opts)
	}
}

// ParseLevel converts a string log level to slog.Level.
// Defaults to Info if the level is not recognized.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug", "verbose":
		return slog.LevelDebug
	case "info", "information":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewNope creates a logger that discards all output.
func NewNope() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithComponent returns a new logger with a component name added.
// Useful for identifying which part of the application generated the log.
func WithComponent(log *slog.Logger, component string) *slog.Logger {
	return log.With("component", component)
}

// plainHandler writes one pipe-separated line per record:
// time | LEVEL | request id | message | key=value ...
type plainHandler struct {
	level slog.Level
	w     io.Writer
	mu    *sync.Mutex
	attrs []slog.Attr
}

func (h *plainHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level
}

func (h *plainHandler) Handle(_ context.Context, r slog.Record) error {
	var (
		requestID string
		extra     strings.Builder
	)
	write := func(a slog.Attr) bool {
		if a.Key == requestIDAttr {
			requestID = a.Value.String()
			return true
		}
		if a.Equal(slog.Attr{}) {
			return true
		}
		fmt.Fprintf(&extra, " %s=%v", a.Key, a.Value.Resolve().Any())
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)

	if requestID == "" {
		requestID = "-"
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintf(h.w, "%s | %s | %s | %s |%s\n",
		r.Time.Format(time.RFC3339Nano),
		r.Level.String(),
		requestID,
		r.Message,
		extra.String(),
	)
	return err
}

func (h *plainHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *plainHandler) WithGroup(name string) slog.Handler {
	_ = name
	return h
}
