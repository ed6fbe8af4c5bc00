// Package clog re-exports the context-carried structured logger chalet's
// components are written against, matching the contextual logging
// convention of the reference build-orchestrator this project grew out of.
package clog

import (
	"context"
	"log/slog"
	"os"

	extclog "github.com/chainguard-dev/clog"
)

// Logger is chainguard-dev/clog's sugared slog wrapper (Infof/Warnf/
// Errorf/Debugf) used everywhere a *Logger is threaded through.
type Logger = extclog.Logger

// New wraps an slog.Handler into a Logger.
func New(h slog.Handler) *Logger {
	return extclog.New(h)
}

// WithLogger attaches a logger to the context.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return extclog.WithLogger(ctx, l)
}

// FromContext returns the logger attached to ctx, or clog's own default
// if none was attached.
func FromContext(ctx context.Context) *Logger {
	return extclog.FromContext(ctx)
}

// NewCLI builds a logger appropriate for interactive terminal use: text
// output to stderr, level controlled by verbose/quiet flags.
func NewCLI(verbose, quiet bool) *Logger {
	level := slog.LevelInfo
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}
	return extclog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
