// Package image holds the CPU-side RGBA8 pixel buffers that back gfx
// textures, along with decoding and mipmap generation.
package image

import (
	"errors"
	"fmt"
	"image"
	"slices"
)

// Common errors for image operations.
var (
	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("image: invalid dimensions")

	// ErrDataTooSmall is returned when provided data is smaller than required.
	ErrDataTooSmall = errors.New("image: data buffer too small")

	// ErrOutOfBounds is returned when a region falls outside the bitmap.
	ErrOutOfBounds = errors.New("image: region out of bounds")
)

// BytesPerPixel is the size of one RGBA8 pixel.
const BytesPerPixel = 4

// Bitmap is a tightly packed, non-premultiplied RGBA8 pixel buffer.
//
// Row 0 is the first row in memory. Whether that row is the top or the
// bottom of the picture is up to the caller; gfx textures keep the bottom
// row first.
type Bitmap struct {
	pix    []byte
	width  int
	height int
}

// NewBitmap allocates a zeroed bitmap.
func NewBitmap(width, height int) (*Bitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return &Bitmap{
		pix:    make([]byte, width*height*BytesPerPixel),
		width:  width,
		height: height,
	}, nil
}

// FromRaw wraps existing RGBA8 data without copying. Extra trailing bytes
// are ignored.
func FromRaw(pix []byte, width, height int) (*Bitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	need := width * height * BytesPerPixel
	if len(pix) < need {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrDataTooSmall, len(pix), need)
	}
	return &Bitmap{pix: pix[:need], width: width, height: height}, nil
}

// Width returns the bitmap width in pixels.
func (b *Bitmap) Width() int { return b.width }

// Height returns the bitmap height in pixels.
func (b *Bitmap) Height() int { return b.height }

// Stride returns the number of bytes per row.
func (b *Bitmap) Stride() int { return b.width * BytesPerPixel }

// Pix returns the underlying pixel data.
func (b *Bitmap) Pix() []byte { return b.pix }

// Row returns the bytes of row y.
func (b *Bitmap) Row(y int) []byte {
	s := b.Stride()
	return b.pix[y*s : (y+1)*s]
}

// Clone returns a deep copy.
func (b *Bitmap) Clone() *Bitmap {
	return &Bitmap{pix: slices.Clone(b.pix), width: b.width, height: b.height}
}

// RGBA returns the pixel at (x, y).
func (b *Bitmap) RGBA(x, y int) (r, g, bl, a uint8) {
	i := (y*b.width + x) * BytesPerPixel
	return b.pix[i], b.pix[i+1], b.pix[i+2], b.pix[i+3]
}

// SetRGBA sets the pixel at (x, y). Coordinates outside the bitmap are
// ignored.
func (b *Bitmap) SetRGBA(x, y int, r, g, bl, a uint8) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return
	}
	i := (y*b.width + x) * BytesPerPixel
	b.pix[i], b.pix[i+1], b.pix[i+2], b.pix[i+3] = r, g, bl, a
}

// Fill sets every pixel to the given color.
func (b *Bitmap) Fill(r, g, bl, a uint8) {
	for i := 0; i < len(b.pix); i += BytesPerPixel {
		b.pix[i], b.pix[i+1], b.pix[i+2], b.pix[i+3] = r, g, bl, a
	}
}

// FlipRows reverses the row order in place.
func (b *Bitmap) FlipRows() {
	tmp := make([]byte, b.Stride())
	for top, bottom := 0, b.height-1; top < bottom; top, bottom = top+1, bottom-1 {
		copy(tmp, b.Row(top))
		copy(b.Row(top), b.Row(bottom))
		copy(b.Row(bottom), tmp)
	}
}

// Region copies a w x h block starting at (x, y) into a new bitmap.
func (b *Bitmap) Region(x, y, w, h int) (*Bitmap, error) {
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > b.width || y+h > b.height {
		return nil, fmt.Errorf("%w: %dx%d at (%d,%d) in %dx%d", ErrOutOfBounds, w, h, x, y, b.width, b.height)
	}
	dst := &Bitmap{pix: make([]byte, w*h*BytesPerPixel), width: w, height: h}
	for row := range h {
		src := b.Row(y + row)[x*BytesPerPixel : (x+w)*BytesPerPixel]
		copy(dst.Row(row), src)
	}
	return dst, nil
}

// FromStdImage converts any image.Image to a non-premultiplied RGBA8 bitmap
// with the top row first.
func FromStdImage(img image.Image) *Bitmap {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	b := &Bitmap{
		pix:    make([]byte, width*height*BytesPerPixel),
		width:  width,
		height: height,
	}

	// Fast path for NRGBA images
	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := range height {
			start := (y+bounds.Min.Y-nrgba.Rect.Min.Y)*nrgba.Stride + (bounds.Min.X-nrgba.Rect.Min.X)*4
			copy(b.Row(y), nrgba.Pix[start:start+width*4])
		}
		return b
	}

	// Generic path: color.Color.RGBA is premultiplied, so undo it.
	for y := range height {
		for x := range width {
			r, g, bl, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			if a != 0 && a != 0xffff {
				r = r * 0xffff / a
				g = g * 0xffff / a
				bl = bl * 0xffff / a
			}
			b.SetRGBA(x, y, byte(r>>8), byte(g>>8), byte(bl>>8), byte(a>>8))
		}
	}
	return b
}

// ToStdImage returns the bitmap as an *image.NRGBA, rows in memory order.
func (b *Bitmap) ToStdImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.width, b.height))
	copy(img.Pix, b.pix)
	return img
}
