package logger

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"

	"statapi/src/infra/config"
)

const sentryFlushTimeout = 2 * time.Second

// ShutdownFunc flushes and stops the log sinks.
type ShutdownFunc func(ctx context.Context) error

// Setup builds the application logger from configuration: console output,
// plus Seq and Sentry when configured. Context extractors apply to every
// destination. The returned function must be called on shutdown so buffered
// events are delivered.
func Setup(cfg *config.Config, extractors ...ContextExtractor) (*slog.Logger, ShutdownFunc) {
	console := newConsoleHandler(cfg.Log, os.Stdout)
	handlers := []slog.Handler{console}
	var closers []ShutdownFunc

	if cfg.Seq.Enabled() {
		seq := NewSeqHandler(SeqOptions{
			ServerURL:     cfg.Seq.ServerURL,
			APIKey:        cfg.Seq.APIKey,
			Level:         ParseLevel(cfg.Seq.Level),
			BatchSize:     cfg.Seq.BatchSize,
			FlushInterval: cfg.Seq.AutoFlushTimeout,
			Properties: map[string]any{
				PropAssemblyName: cfg.Log.ServiceName,
			},
		})
		handlers = append(handlers, seq)
		closers = append(closers, seq.Close)
	}

	if cfg.Sentry.DSN != "" {
		if h, ok := newSentryHandler(cfg.Sentry, console); ok {
			handlers = append(handlers, h)
			closers = append(closers, func(context.Context) error {
				sentry.Flush(sentryFlushTimeout)
				return nil
			})
		}
	}

	log := slog.New(NewLogHandlerDecorator(newMultiHandler(handlers...), extractors...))
	if cfg.Seq.OverrideRootLogger {
		slog.SetDefault(log)
	}

	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, c := range closers {
			if err := c(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return log, shutdown
}

// newSentryHandler initializes the Sentry SDK. Errors become Sentry issues;
// warnings and errors are kept as logs for context.
func newSentryHandler(cfg config.SentryConfig, fallback slog.Handler) (slog.Handler, bool) {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		EnableLogs:  true,
	}); err != nil {
		slog.New(fallback).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		return nil, false
	}

	return sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
	}.NewSentryHandler(context.Background()), true
}
