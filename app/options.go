package app

import (
	"time"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/gpucore"
)

// Option configures Run.
type Option func(*options)

type options struct {
	device    gpucore.Device
	window    gpucontext.WindowProvider
	events    gpucontext.EventSource
	maxFrames uint64
	interval  time.Duration
	clear     gfx.Color
}

// defaultOptions runs headless at the configured size until cancelled,
// clearing to opaque black.
func defaultOptions(cfg Config) options {
	return options{
		window: gpucontext.NullWindowProvider{W: cfg.Width, H: cfg.Height},
		events: gpucontext.NullEventSource{},
		clear:  gfx.Black,
	}
}

// WithDevice sets the device frames are drawn with. It is required.
func WithDevice(dev gpucore.Device) Option {
	return func(o *options) {
		o.device = dev
	}
}

// WithWindow sets the host window queried for size and scale.
func WithWindow(w gpucontext.WindowProvider) Option {
	return func(o *options) {
		if w != nil {
			o.window = w
		}
	}
}

// WithEvents sets the event source whose resize events update the viewport.
func WithEvents(es gpucontext.EventSource) Option {
	return func(o *options) {
		if es != nil {
			o.events = es
		}
	}
}

// WithMaxFrames stops Run after n frames. Zero means no limit.
func WithMaxFrames(n uint64) Option {
	return func(o *options) {
		o.maxFrames = n
	}
}

// WithFrameInterval paces frames to at most one per d. Zero renders as
// fast as possible.
func WithFrameInterval(d time.Duration) Option {
	return func(o *options) {
		o.interval = max(d, 0)
	}
}

// WithClearColor sets the color the target is cleared to before each frame.
func WithClearColor(c gfx.Color) Option {
	return func(o *options) {
		o.clear = c
	}
}
