// Command gfxdemo renders rotating sprites and text with the gfx sprite
// batch and optionally saves the last frame as a PNG.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"os/signal"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/app"
	"github.com/gogpu/gfx/gpu"
	"github.com/gogpu/gfx/text"
)

func main() {
	var (
		width   = flag.Int("width", 800, "framebuffer width")
		height  = flag.Int("height", 600, "framebuffer height")
		backend = flag.String("backend", "", "hal backend (empty selects the best available)")
		frames  = flag.Uint64("frames", 60, "number of frames to render")
		sprites = flag.Int("sprites", 200, "number of sprites per frame")
		output  = flag.String("output", "", "write the last frame to this PNG file")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	gfx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	dev, err := gpu.Open(*backend, *width, *height)
	if err != nil {
		log.Fatalf("Failed to open device: %v (available: %v)", err, gpu.Available())
	}
	defer dev.Destroy()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	d := &demo{count: *sprites}
	cfg := app.Config{Title: "gfxdemo", Width: *width, Height: *height}
	err = app.Run(ctx, cfg, d,
		app.WithDevice(dev),
		app.WithMaxFrames(*frames),
		app.WithClearColor(gfx.RGB(0.1, 0.12, 0.18)))
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	if *output != "" {
		bm, err := dev.ReadPixels()
		if err != nil {
			log.Fatalf("Failed to read pixels: %v", err)
		}
		if err := bm.SavePNG(*output); err != nil {
			log.Fatalf("Failed to save: %v", err)
		}
		log.Printf("Frame saved to %s (%dx%d)\n", *output, bm.Width(), bm.Height())
	}
	log.Printf("Rendered on %s (%s): %+v\n", dev.Backend(), dev.AdapterInfo().Name, d.stats)
}

// demo draws a ring of tinted, rotating checkerboard sprites and a
// caption.
type demo struct {
	count int
	batch *gfx.SpriteBatch
	tex   *gfx.Texture
	face  *text.Face
	ring  []gfx.Sprite
	stats gfx.BatchStats
}

func (d *demo) Init(ctx *app.Context) error {
	dev := ctx.Device()
	var err error
	if d.batch, err = gfx.NewSpriteBatch(dev, 1000, gfx.WithLabel("demo")); err != nil {
		return err
	}
	if d.tex, err = gfx.NewTexture(dev, 32, 32, checker(32, 8)); err != nil {
		return err
	}
	if err := d.tex.SetFilters(gfx.FilterNearest, gfx.FilterNearest); err != nil {
		return err
	}
	d.tex.DiscardPixels()
	if d.face, err = text.DefaultFace(dev, 20); err != nil {
		return err
	}

	region := gfx.NewTextureRegion(d.tex)
	d.ring = make([]gfx.Sprite, d.count)
	for i := range d.ring {
		s := gfx.NewSprite(region)
		s.Size = gfx.V2(24, 24)
		s.Origin = gfx.V2(12, 12)
		s.Color = gfx.HSL(float64(i)*360/float64(max(d.count, 1)), 0.7, 0.6)
		d.ring[i] = s
	}
	return nil
}

func (d *demo) Render(ctx *app.Context) {
	w, h := ctx.Size()
	d.batch.SetViewport(w, h)

	t := ctx.Elapsed().Seconds()
	cx, cy := float64(w)/2, float64(h)/2
	radius := math.Min(cx, cy) * 0.7

	d.batch.Begin()
	for i := range d.ring {
		s := &d.ring[i]
		a := 2*math.Pi*float64(i)/float64(len(d.ring)) + t*0.5
		s.Position = gfx.V2(cx+radius*math.Cos(a)-s.Origin.X, cy+radius*math.Sin(a)-s.Origin.Y)
		s.Rotation = math.Mod(float64(ctx.Frame())*4+float64(i)*10, 360)
		d.batch.DrawSprite(s)
	}
	caption := fmt.Sprintf("gfx demo  frame %d  %d sprites", ctx.Frame(), len(d.ring))
	if err := d.face.Draw(d.batch, caption, 12, 12, gfx.White); err != nil {
		gfx.Logger().Warn("gfxdemo: caption", slog.String("error", err.Error()))
	}
	if err := d.batch.End(); err != nil {
		gfx.Logger().Error("gfxdemo: frame",
			slog.Uint64("frame", ctx.Frame()),
			slog.String("error", err.Error()))
	}
	d.stats = d.batch.Stats()
}

func (d *demo) Dispose() {
	if d.face != nil {
		d.face.Release()
	}
	if d.tex != nil {
		d.tex.Release()
	}
	if d.batch != nil {
		d.batch.Release()
	}
}

// checker returns size*size RGBA pixels of a white and grey checkerboard.
func checker(size, cell int) []byte {
	pix := make([]byte, size*size*4)
	for y := range size {
		for x := range size {
			v := byte(0xff)
			if (x/cell+y/cell)%2 == 1 {
				v = 0x80
			}
			i := (y*size + x) * 4
			pix[i], pix[i+1], pix[i+2], pix[i+3] = v, v, v, 0xff
		}
	}
	return pix
}
