package gfx

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gfx/gpucore"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for gfx and the device it draws with.
// By default, gfx produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by gfx:
//   - [slog.LevelDebug]: internal diagnostics (flushes, clamped buffer writes, pipeline creation)
//   - [slog.LevelInfo]: important lifecycle events (GPU adapter selected)
//   - [slog.LevelWarn]: non-fatal issues (backend fallback, resource release errors)
//
// Example:
//
//	// Enable debug-level logging for full diagnostics:
//	gfx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	sinkMu.Lock()
	s := sink
	sinkMu.Unlock()
	if s != nil {
		s.SetLogger(l)
	}
}

// Logger returns the current logger used by gfx.
// Sub-packages (gpu/, text/, app/) call this to share the same
// logger configuration without introducing import cycles.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

var (
	sinkMu sync.Mutex
	sink   loggerSetter
)

// propagateLogger hands the current logger to dev if it accepts one, and
// remembers dev so that later SetLogger calls reach it too. Called by every
// resource constructor.
func propagateLogger(dev gpucore.Device) {
	ls, ok := dev.(loggerSetter)
	if !ok {
		return
	}
	sinkMu.Lock()
	changed := sink != ls
	sink = ls
	sinkMu.Unlock()
	if changed {
		ls.SetLogger(Logger())
	}
}
