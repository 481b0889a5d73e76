// Package logger provides context-first structured logging. Every line has a
// component and an event, and identifiers stored in the context by the
// Telegram layer (rid, update, chat, user, handler) are attached to it.
//
// The package functions are safe to call before InitLogger; they drop the
// line until a logger is installed.
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/cpgamebot/core/buildinfo"
	coreconfig "github.com/m3rciful/cpgamebot/core/config"
)

var (
	base atomic.Pointer[slog.Logger]

	initOnce sync.Once
	stopOnce sync.Once

	out     *asyncWriter
	closers []io.Closer

	levelVar     slog.LevelVar
	debugSampler sampler
	traceAll     atomic.Bool
)

// InitLogger installs the process-wide logger described by cfg. Calls after
// the first one are no-ops.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		s := settingsFrom(cfg)
		levelVar.Set(s.level)
		debugSampler.set(s.sampleKeep, s.sampleWindow)
		traceAll.Store(s.trace)

		var sinks []io.Writer
		sinks, closers, err = s.openSinks()
		if err != nil {
			return
		}
		out = newAsyncWriter(sinks)

		l := slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   out,
			format:   s.format,
			keyOrder: s.keyOrder,
		}))
		base.Store(l)
		slog.SetDefault(l)

		Info(context.Background(), "app", "startup",
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Revision()),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", s.profile),
		)
	})
	return err
}

// Shutdown flushes buffered output and closes log files.
func Shutdown() error {
	var errs []error
	stopOnce.Do(func() {
		if out != nil {
			errs = append(errs, out.Close())
		}
		for _, c := range closers {
			errs = append(errs, c.Close())
		}
	})
	return errors.Join(errs...)
}

// For returns the installed logger scoped to component, or nil before init.
func For(component string) *slog.Logger {
	l := base.Load()
	if l == nil {
		return nil
	}
	if c := strings.TrimSpace(component); c != "" {
		return l.With("component", c)
	}
	return l
}

// Log writes one event line. A logger stored in ctx wins over the global one.
func Log(ctx context.Context, level slog.Level, component, event string, attrs ...slog.Attr) {
	l := FromContext(ctx)
	if l == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, level) {
		return
	}
	head := make([]slog.Attr, 0, len(attrs)+2)
	if c := strings.TrimSpace(component); c != "" {
		head = append(head, slog.String("component", c))
	}
	if event != "" {
		head = append(head, slog.String("event", event))
	}
	l.LogAttrs(ctx, level, "", append(head, attrs...)...)
}

// Debug logs a debug-level event.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelDebug, component, event, attrs...)
}

// Info logs an info-level event.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelInfo, component, event, attrs...)
}

// Warn logs a warn-level event.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelWarn, component, event, attrs...)
}

// Error logs an error-level event.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelError, component, event, attrs...)
}

// Background is the context used by code running outside an update.
func Background() context.Context {
	return context.Background()
}

// SampleDebug reports whether a high-volume debug line should be written.
// TRACE=1 or LOG_TRACE=1 disables sampling.
func SampleDebug() bool {
	return traceAll.Load() || debugSampler.allow()
}
