package gfx

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gogpu/gfx/gpucore"
	"github.com/gogpu/gfx/internal/image"
)

// Texture filters and wrap modes.
const (
	FilterNearest              = gpucore.FilterNearest
	FilterLinear               = gpucore.FilterLinear
	FilterNearestMipmapNearest = gpucore.FilterNearestMipmapNearest
	FilterLinearMipmapNearest  = gpucore.FilterLinearMipmapNearest
	FilterNearestMipmapLinear  = gpucore.FilterNearestMipmapLinear
	FilterLinearMipmapLinear   = gpucore.FilterLinearMipmapLinear

	WrapClampToEdge    = gpucore.WrapClampToEdge
	WrapRepeat         = gpucore.WrapRepeat
	WrapMirroredRepeat = gpucore.WrapMirroredRepeat
)

// Texture is a 2D RGBA8 device image.
//
// Pixel data is bottom row first: row 0 is sampled at v = 0. LoadTexture
// and DecodeTexture flip decoded files into this order.
//
// Two textures are the same texture iff they share a device handle; see
// Equal. A Texture is reference counted so sprites and regions can share
// it. The device image is destroyed when the last reference is released.
//
// A texture keeps a CPU copy of level 0 for GenerateMipmaps, so it holds
// width*height*4 bytes of host memory on top of the device image until
// DiscardPixels or the last Release.
type Texture struct {
	dev       gpucore.Device
	id        gpucore.TextureID
	label     string
	width     int
	height    int
	mipLevels int
	sampler   gpucore.SamplerState

	// level 0 as uploaded, nil after DiscardPixels
	pixels *image.Bitmap

	refs refCount
}

// NewTexture uploads width*height RGBA8 pixels, bottom row first, with
// linear filtering and clamp-to-edge wrapping. The texture is left unbound.
// pixels is copied and the copy is kept until DiscardPixels.
func NewTexture(dev gpucore.Device, width, height int, pixels []byte) (*Texture, error) {
	bm, err := image.FromRaw(pixels, width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: texture: %w", ErrInvalidSize, err)
	}
	return newTexture(dev, "", bm.Clone())
}

// LoadTexture decodes an image file into a texture.
func LoadTexture(dev gpucore.Device, path string) (*Texture, error) {
	bm, err := image.Load(path)
	if err != nil {
		return nil, fmt.Errorf("gfx: load texture: %w", err)
	}
	bm.FlipRows()
	return newTexture(dev, path, bm)
}

// DecodeTexture decodes an image stream into a texture.
func DecodeTexture(dev gpucore.Device, r io.Reader) (*Texture, error) {
	bm, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("gfx: decode texture: %w", err)
	}
	bm.FlipRows()
	return newTexture(dev, "", bm)
}

func newTexture(dev gpucore.Device, label string, bm *image.Bitmap) (*Texture, error) {
	propagateLogger(dev)

	t := &Texture{
		dev:       dev,
		label:     label,
		width:     bm.Width(),
		height:    bm.Height(),
		mipLevels: 1,
		sampler:   gpucore.DefaultSamplerState(),
		pixels:    bm,
	}
	id, err := t.create([]*image.Bitmap{bm})
	if err != nil {
		return nil, err
	}
	t.id = id
	t.refs.init()
	return t, nil
}

// create makes a device texture holding levels and applies the sampler.
func (t *Texture) create(levels []*image.Bitmap) (gpucore.TextureID, error) {
	what := fmt.Sprintf("texture %dx%d", t.width, t.height)
	id, err := t.dev.CreateTexture(gpucore.TextureDesc{
		Label:     t.label,
		Width:     uint32(t.width),
		Height:    uint32(t.height),
		MipLevels: uint32(len(levels)),
	})
	if err != nil || id == gpucore.InvalidID {
		return gpucore.InvalidID, creationFailed(what, err)
	}
	for level, bm := range levels {
		err := t.dev.WriteTexture(id, uint32(level), 0, 0,
			uint32(bm.Width()), uint32(bm.Height()), bm.Pix())
		if err != nil {
			t.dev.DestroyTexture(id)
			return gpucore.InvalidID, fmt.Errorf("gfx: upload %s level %d: %w", what, level, err)
		}
	}
	if err := t.dev.SetSampler(id, t.sampler); err != nil {
		t.dev.DestroyTexture(id)
		return gpucore.InvalidID, fmt.Errorf("gfx: sampler for %s: %w", what, err)
	}
	return id, nil
}

// ID returns the device handle.
func (t *Texture) ID() gpucore.TextureID { return t.id }

// Width returns the width in pixels.
func (t *Texture) Width() int { return t.width }

// Height returns the height in pixels.
func (t *Texture) Height() int { return t.height }

// Depth returns 1; textures are 2D.
func (t *Texture) Depth() int { return 1 }

// MipLevels returns the number of mip levels, 1 until GenerateMipmaps.
func (t *Texture) MipLevels() int { return t.mipLevels }

// Sampler returns the current filter and wrap state.
func (t *Texture) Sampler() gpucore.SamplerState { return t.sampler }

// Equal reports whether t and other reference the same device image.
func (t *Texture) Equal(other *Texture) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.dev == other.dev && t.id == other.id
}

// GenerateMipmaps builds the full mip chain, floor(log2(max(w, h))) + 1
// levels, and switches minification to trilinear filtering.
//
// The device image is recreated with the new level count, so the texture
// handle changes. Do not call it between Begin and End of a batch that has
// drawn the texture.
func (t *Texture) GenerateMipmaps() error {
	if !t.refs.alive() {
		return ErrReleased
	}
	if t.pixels == nil {
		return ErrNoPixels
	}
	levels := image.GenerateMipmaps(t.pixels)

	prev := t.sampler
	if !t.sampler.MinFilter.UsesMipmaps() {
		t.sampler.MinFilter = gpucore.FilterLinearMipmapLinear
	}
	id, err := t.create(levels)
	if err != nil {
		t.sampler = prev
		return err
	}
	t.dev.DestroyTexture(t.id)
	t.id = id
	t.mipLevels = len(levels)

	Logger().Debug("gfx: mipmaps generated",
		slog.Int("width", t.width),
		slog.Int("height", t.height),
		slog.Int("levels", t.mipLevels))
	return nil
}

// SetFilters sets the minification and magnification filters.
func (t *Texture) SetFilters(minFilter, magFilter gpucore.TextureFilter) error {
	s := t.sampler
	s.MinFilter, s.MagFilter = minFilter, magFilter
	return t.setSampler(s)
}

// SetWrap sets the wrap modes for the u (s) and v (t) axes.
func (t *Texture) SetWrap(wrapS, wrapT gpucore.WrapMode) error {
	s := t.sampler
	s.WrapS, s.WrapT = wrapS, wrapT
	return t.setSampler(s)
}

func (t *Texture) setSampler(s gpucore.SamplerState) error {
	if !t.refs.alive() {
		return ErrReleased
	}
	if err := t.dev.SetSampler(t.id, s); err != nil {
		return fmt.Errorf("gfx: set sampler: %w", err)
	}
	t.sampler = s
	return nil
}

// SetSubPixels replaces a w*h rectangle of level 0 whose lower-left corner
// is at (x, y) in row order. Mip levels are not regenerated.
func (t *Texture) SetSubPixels(x, y, w, h int, pixels []byte) error {
	if !t.refs.alive() {
		return ErrReleased
	}
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > t.width || y+h > t.height {
		return fmt.Errorf("%w: rectangle (%d,%d %dx%d) outside %dx%d texture",
			ErrInvalidSize, x, y, w, h, t.width, t.height)
	}
	if len(pixels) < w*h*image.BytesPerPixel {
		return fmt.Errorf("%w: %d bytes for %dx%d pixels", ErrInvalidSize, len(pixels), w, h)
	}
	if err := t.dev.WriteTexture(t.id, 0, uint32(x), uint32(y), uint32(w), uint32(h), pixels); err != nil {
		return fmt.Errorf("gfx: update texture: %w", err)
	}
	if t.pixels == nil {
		return nil
	}
	stride := w * image.BytesPerPixel
	for row := range h {
		dst := t.pixels.Row(y + row)[x*image.BytesPerPixel:]
		copy(dst[:stride], pixels[row*stride:])
	}
	return nil
}

// DiscardPixels frees the CPU copy of level 0. Later GenerateMipmaps calls
// return ErrNoPixels; everything else keeps working.
func (t *Texture) DiscardPixels() { t.pixels = nil }

// HasPixels reports whether the CPU copy of level 0 is still held.
func (t *Texture) HasPixels() bool { return t.pixels != nil }

// Bind activates the texture on a sampler slot.
func (t *Texture) Bind(slot int) { t.dev.BindTexture(slot, t.id) }

// Unbind clears a sampler slot.
func (t *Texture) Unbind(slot int) { t.dev.BindTexture(slot, gpucore.InvalidID) }

// Retain adds a reference and returns t.
func (t *Texture) Retain() *Texture {
	if !t.refs.retain() {
		return nil
	}
	return t
}

// Release drops a reference, destroying the device image on the last one.
func (t *Texture) Release() {
	if t.refs.release() {
		t.dev.DestroyTexture(t.id)
		t.id = gpucore.InvalidID
		t.pixels = nil
	}
}
