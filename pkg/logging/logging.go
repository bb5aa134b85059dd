// Package logging holds the structured logger shared by every cncslice
// package. Libraries log through Logger(); nothing is printed until the
// caller installs a logger with SetLogger.
package logging

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. Enabled reports false so callers skip
// attribute formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger installs l as the package-wide logger. Passing nil restores the
// silent default. Safe for concurrent use.
//
// Levels used by cncslice:
//   - [slog.LevelDebug]: per-layer statistics (segments, contours, moves)
//   - [slog.LevelInfo]: job lifecycle (start, finish, totals)
//   - [slog.LevelWarn]: recovered problems (skipped triangles, open
//     contours, collapsed offsets)
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// New builds a text logger writing to w. quiet wins over verbose.
func New(w io.Writer, verbose, quiet bool) *slog.Logger {
	if quiet {
		return newNopLogger()
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
