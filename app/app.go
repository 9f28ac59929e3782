// Package app runs a frame loop around a gfx device.
//
// The host window and its events come in through the gpucontext
// interfaces, so the same App runs under a real windowing host or headless:
//
//	type game struct{ batch *gfx.SpriteBatch }
//
//	func (g *game) Init(ctx *app.Context) error {
//		var err error
//		g.batch, err = gfx.NewSpriteBatch(ctx.Device(), 1000)
//		return err
//	}
//
//	func (g *game) Render(ctx *app.Context) {
//		w, h := ctx.Size()
//		g.batch.SetViewport(w, h)
//		g.batch.Begin()
//		// draw ...
//		_ = g.batch.End()
//	}
//
//	err := app.Run(ctx, app.DefaultConfig(), &game{}, app.WithDevice(dev))
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/gpucore"
)

// ErrNoDevice is returned by Run when no device was supplied.
var ErrNoDevice = errors.New("app: no device")

// Config describes the window an App asks for.
type Config struct {
	Title  string
	Width  int
	Height int
}

// DefaultConfig returns an 800x600 window titled "Title".
func DefaultConfig() Config {
	return Config{Title: "Title", Width: 800, Height: 600}
}

// App is implemented by programs driven by Run.
type App interface {
	// Init is called once before the first frame.
	Init(ctx *Context) error

	// Render draws one frame.
	Render(ctx *Context)
}

// Disposer is implemented by apps that release resources when Run returns.
type Disposer interface {
	Dispose()
}

// targetResizer is implemented by devices that own their render target.
type targetResizer interface {
	ResizeTarget(width, height int) error
}

// Run initializes a and renders frames until ctx is done, the frame limit
// is reached, or a frame calls Context.Quit. A cancelled ctx is a normal
// stop and returns nil.
//
// Before each frame the device viewport is set to the latest window size
// in physical pixels and the target is cleared.
func Run(ctx context.Context, cfg Config, a App, opts ...Option) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		def := DefaultConfig()
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	o := defaultOptions(cfg)
	for _, opt := range opts {
		opt(&o)
	}
	if o.device == nil {
		return ErrNoDevice
	}

	log := gfx.Logger().With(slog.String("app", cfg.Title))
	c := &Context{
		device: o.device,
		config: cfg,
		window: o.window,
		start:  time.Now(),
	}
	c.width, c.height = o.window.Size()
	if c.width <= 0 || c.height <= 0 {
		c.width, c.height = cfg.Width, cfg.Height
	}

	// Resize events may arrive on the host's event goroutine.
	var resized atomic.Pointer[[2]int]
	o.events.OnResize(func(w, h int) {
		resized.Store(&[2]int{w, h})
	})

	log.Info("app: starting", slog.Int("width", c.width), slog.Int("height", c.height))
	if err := a.Init(c); err != nil {
		return fmt.Errorf("app: init: %w", err)
	}
	if d, ok := a.(Disposer); ok {
		defer d.Dispose()
	}
	if err := c.applySize(); err != nil {
		return err
	}

	var tick <-chan time.Time
	if o.interval > 0 {
		t := time.NewTicker(o.interval)
		defer t.Stop()
		tick = t.C
	}

	last := time.Now()
	for o.maxFrames == 0 || c.frame < o.maxFrames {
		select {
		case <-ctx.Done():
			log.Info("app: stopped", slog.Uint64("frames", c.frame), slog.String("reason", ctx.Err().Error()))
			return nil
		default:
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				log.Info("app: stopped", slog.Uint64("frames", c.frame), slog.String("reason", ctx.Err().Error()))
				return nil
			case <-tick:
			}
		}

		if sz := resized.Swap(nil); sz != nil && (sz[0] != c.width || sz[1] != c.height) {
			log.Debug("app: resize", slog.Int("width", sz[0]), slog.Int("height", sz[1]))
			c.width, c.height = sz[0], sz[1]
			if err := c.applySize(); err != nil {
				return err
			}
		}

		now := time.Now()
		c.delta = now.Sub(last)
		last = now

		o.device.Clear(o.clear.GPU())
		a.Render(c)
		if err := o.device.Flush(); err != nil {
			return fmt.Errorf("app: frame %d: %w", c.frame, err)
		}
		c.frame++
		if c.quit {
			break
		}
	}
	log.Info("app: finished", slog.Uint64("frames", c.frame))
	return nil
}

// physical converts a logical size to pixels using the window scale.
func physical(v int, scale float64) int {
	if scale <= 0 {
		scale = 1
	}
	return max(int(math.Round(float64(v)*scale)), 1)
}

func (c *Context) applySize() error {
	scale := c.window.ScaleFactor()
	pw, ph := physical(c.width, scale), physical(c.height, scale)
	if r, ok := c.device.(targetResizer); ok {
		if err := r.ResizeTarget(pw, ph); err != nil {
			return fmt.Errorf("app: resize target to %dx%d: %w", pw, ph, err)
		}
	}
	c.device.SetViewport(0, 0, pw, ph)
	c.pixelW, c.pixelH = pw, ph
	return nil
}

// Context is passed to App callbacks.
type Context struct {
	device gpucore.Device
	config Config
	window gpucontext.WindowProvider

	width, height  int
	pixelW, pixelH int
	frame          uint64
	start          time.Time
	delta          time.Duration
	quit           bool
}

// Device returns the device frames are drawn with.
func (c *Context) Device() gpucore.Device { return c.device }

// Config returns the configuration Run was called with.
func (c *Context) Config() Config { return c.config }

// Size returns the framebuffer size in pixels.
func (c *Context) Size() (width, height int) { return c.pixelW, c.pixelH }

// WindowSize returns the window size in logical points.
func (c *Context) WindowSize() (width, height int) { return c.width, c.height }

// Frame returns the number of frames completed before this one.
func (c *Context) Frame() uint64 { return c.frame }

// Delta returns the time since the previous frame started.
func (c *Context) Delta() time.Duration { return c.delta }

// Elapsed returns the time since Run started.
func (c *Context) Elapsed() time.Duration { return time.Since(c.start) }

// Quit stops Run after the current frame.
func (c *Context) Quit() { c.quit = true }

// RequestRedraw forwards to the host window.
func (c *Context) RequestRedraw() { c.window.RequestRedraw() }
