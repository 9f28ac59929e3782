package gfx

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/gfx/gpucore"
	"github.com/gogpu/gfx/gpucore/devicetest"
)

func TestNopHandler(t *testing.T) {
	h := nopHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if h.Enabled(context.Background(), level) {
			t.Errorf("nopHandler.Enabled(%v) = true, want false", level)
		}
	}
	if err := h.Handle(context.Background(), slog.Record{}); err != nil {
		t.Errorf("nopHandler.Handle() = %v, want nil", err)
	}
	if _, ok := h.WithAttrs(nil).(nopHandler); !ok {
		t.Error("WithAttrs did not return nopHandler")
	}
	if _, ok := h.WithGroup("g").(nopHandler); !ok {
		t.Error("WithGroup did not return nopHandler")
	}
}

// loggingRecorder is a Recorder that accepts a logger.
type loggingRecorder struct {
	*devicetest.Recorder
	logger *slog.Logger
}

func (r *loggingRecorder) SetLogger(l *slog.Logger) { r.logger = l }

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	SetLogger(l)
	if Logger() != l {
		t.Fatal("Logger() did not return the logger passed to SetLogger")
	}

	rec := devicetest.NewRecorder()
	b, err := NewBufferWithCapacity(rec, gpucore.BufferTargetVertex, gpucore.BufferUsageStream, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.CopyDataPart([]byte{1, 2, 3, 4, 5, 6}, 6, 2); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "buffer write clamped") {
		t.Errorf("clamp not logged at debug level; log = %q", buf.String())
	}

	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) did not restore the silent logger")
	}
}

func TestSetLoggerReachesDevice(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	dev := &loggingRecorder{Recorder: devicetest.NewRecorder()}
	if _, err := NewBufferWithCapacity(dev, gpucore.BufferTargetVertex, gpucore.BufferUsageStatic, 4); err != nil {
		t.Fatal(err)
	}
	if dev.logger != Logger() {
		t.Error("device did not receive the current logger on first use")
	}

	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	SetLogger(l)
	if dev.logger != l {
		t.Error("SetLogger did not propagate to the device")
	}
}
