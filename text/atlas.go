package text

import (
	"fmt"
	"image"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/gpucore"
)

// shelfAllocator packs rectangles into horizontal shelves. Each shelf is
// as tall as the tallest item placed on it; items go left to right until
// the shelf is full, then a new shelf starts below.
type shelfAllocator struct {
	width   int
	height  int
	padding int
	shelves []shelf
	used    int
}

type shelf struct {
	y      int
	height int
	x      int
}

func newShelfAllocator(width, height, padding int) *shelfAllocator {
	return &shelfAllocator{
		width:   width,
		height:  height,
		padding: padding,
		shelves: make([]shelf, 0, 16),
	}
}

// allocate returns the position of a w x h rectangle, or false when the
// atlas has no room left.
func (a *shelfAllocator) allocate(w, h int) (x, y int, ok bool) {
	pw := w + a.padding
	ph := h + a.padding

	for i := range a.shelves {
		s := &a.shelves[i]
		if s.x+pw > a.width {
			continue
		}
		if h > s.height {
			// Only the last shelf can grow, and only if there is room below.
			if i != len(a.shelves)-1 || s.y+ph > a.height {
				continue
			}
			s.height = h
		}
		x, y = s.x, s.y
		s.x += pw
		a.used += w * h
		return x, y, true
	}

	next := a.padding
	if n := len(a.shelves); n > 0 {
		last := a.shelves[n-1]
		next = last.y + last.height + a.padding
	}
	if a.padding+pw > a.width || next+ph > a.height {
		return -1, -1, false
	}
	a.shelves = append(a.shelves, shelf{y: next, height: h, x: a.padding + pw})
	a.used += w * h
	return a.padding, next, true
}

// utilization returns the fraction of the atlas area in use.
func (a *shelfAllocator) utilization() float64 {
	if a.width <= 0 || a.height <= 0 {
		return 0
	}
	return float64(a.used) / float64(a.width*a.height)
}

// atlas is a square RGBA texture holding white glyph masks whose alpha
// channel is the glyph coverage.
type atlas struct {
	tex   *gfx.Texture
	alloc *shelfAllocator
	size  int
	rgba  []byte
}

func newAtlas(dev gpucore.Device, size, padding int) (*atlas, error) {
	tex, err := gfx.NewTexture(dev, size, size, make([]byte, size*size*4))
	if err != nil {
		return nil, fmt.Errorf("text: create atlas: %w", err)
	}
	// Glyphs are written with SetSubPixels and never mipmapped.
	tex.DiscardPixels()
	return &atlas{
		tex:   tex,
		alloc: newShelfAllocator(size, size, padding),
		size:  size,
	}, nil
}

// insert uploads mask and returns the region that samples it upright.
func (a *atlas) insert(mask *image.Alpha) (gfx.TextureRegion, error) {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	x, y, ok := a.alloc.allocate(w, h)
	if !ok {
		return gfx.TextureRegion{}, fmt.Errorf("%w: no room for %dx%d glyph in %dx%d atlas",
			ErrAtlasFull, w, h, a.size, a.size)
	}

	// Texture rows are stored bottom-up, so the mask goes in flipped.
	need := w * h * 4
	if cap(a.rgba) < need {
		a.rgba = make([]byte, need)
	}
	px := a.rgba[:need]
	for row := range h {
		src := mask.Pix[row*mask.Stride : row*mask.Stride+w]
		dst := px[(h-1-row)*w*4:]
		for col, cov := range src {
			o := col * 4
			dst[o], dst[o+1], dst[o+2], dst[o+3] = 0xff, 0xff, 0xff, cov
		}
	}
	if err := a.tex.SetSubPixels(x, y, w, h, px); err != nil {
		return gfx.TextureRegion{}, fmt.Errorf("text: upload glyph: %w", err)
	}

	s := float32(a.size)
	return gfx.NewTextureRegionUV(a.tex,
		float32(x)/s, float32(y)/s,
		float32(x+w)/s, float32(y+h)/s), nil
}

func (a *atlas) release() {
	if a.tex != nil {
		a.tex.Release()
		a.tex = nil
	}
}
