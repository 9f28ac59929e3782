package text

import (
	"image"
	"image/draw"

	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// glyphMask is a rasterized glyph. Left and Top are the offsets from the
// pen position on the baseline to the mask's top-left corner, y down.
type glyphMask struct {
	Mask *image.Alpha
	Left int
	Top  int
}

// rasterizeGlyph renders the outline of gid at ppem into an alpha mask.
// Glyphs without ink (spaces) return a nil mask.
func rasterizeGlyph(f *sfnt.Font, buf *sfnt.Buffer, gid sfnt.GlyphIndex, ppem fixed.Int26_6) (glyphMask, error) {
	segments, err := f.LoadGlyph(buf, gid, ppem, nil)
	if err != nil {
		return glyphMask{}, err
	}
	b := segments.Bounds()
	minX, minY := b.Min.X.Floor(), b.Min.Y.Floor()
	maxX, maxY := b.Max.X.Ceil(), b.Max.Y.Ceil()
	w, h := maxX-minX, maxY-minY
	if len(segments) == 0 || w <= 0 || h <= 0 {
		return glyphMask{Left: minX, Top: minY}, nil
	}

	ox, oy := float32(minX), float32(minY)
	pt := func(p fixed.Point26_6) (float32, float32) {
		return float32(p.X)/64 - ox, float32(p.Y)/64 - oy
	}

	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Src
	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			z.ClosePath()
			z.MoveTo(pt(seg.Args[0]))
		case sfnt.SegmentOpLineTo:
			z.LineTo(pt(seg.Args[0]))
		case sfnt.SegmentOpQuadTo:
			bx, by := pt(seg.Args[0])
			cx, cy := pt(seg.Args[1])
			z.QuadTo(bx, by, cx, cy)
		case sfnt.SegmentOpCubeTo:
			bx, by := pt(seg.Args[0])
			cx, cy := pt(seg.Args[1])
			dx, dy := pt(seg.Args[2])
			z.CubeTo(bx, by, cx, cy, dx, dy)
		}
	}
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return glyphMask{Mask: mask, Left: minX, Top: minY}, nil
}
