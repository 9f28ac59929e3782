package image

import "math/bits"

// MipLevelCount returns the number of levels in a full mip chain for a
// width x height image: floor(log2(max(width, height))) + 1.
func MipLevelCount(width, height int) int {
	maxDim := max(width, height)
	if maxDim <= 0 {
		return 0
	}
	return bits.Len(uint(maxDim))
}

// MipLevelSize returns the dimensions of the given level. Each level halves
// the previous one and never drops below 1.
func MipLevelSize(width, height, level int) (int, int) {
	return max(1, width>>level), max(1, height>>level)
}

// GenerateMipmaps builds a full mip chain from src.
//
// Uses a box filter (2x2 average) to downsample each level. Level 0 is src
// itself and is not copied. Returns nil if src is nil.
func GenerateMipmaps(src *Bitmap) []*Bitmap {
	if src == nil {
		return nil
	}
	n := MipLevelCount(src.width, src.height)
	levels := make([]*Bitmap, n)
	levels[0] = src
	for i := 1; i < n; i++ {
		levels[i] = downsample(levels[i-1])
	}
	return levels
}

// downsample creates a half-size version of src using a box filter.
func downsample(src *Bitmap) *Bitmap {
	srcW, srcH := src.width, src.height
	dstW, dstH := max(1, srcW/2), max(1, srcH/2)
	dst := &Bitmap{pix: make([]byte, dstW*dstH*BytesPerPixel), width: dstW, height: dstH}

	for dy := range dstH {
		for dx := range dstW {
			sx, sy := dx*2, dy*2

			// Sample 2x2 region (handle odd dimensions)
			r0, g0, b0, a0 := src.RGBA(sx, sy)
			r1, g1, b1, a1 := src.RGBA(min(sx+1, srcW-1), sy)
			r2, g2, b2, a2 := src.RGBA(sx, min(sy+1, srcH-1))
			r3, g3, b3, a3 := src.RGBA(min(sx+1, srcW-1), min(sy+1, srcH-1))

			r := (uint16(r0) + uint16(r1) + uint16(r2) + uint16(r3)) / 4
			g := (uint16(g0) + uint16(g1) + uint16(g2) + uint16(g3)) / 4
			b := (uint16(b0) + uint16(b1) + uint16(b2) + uint16(b3)) / 4
			a := (uint16(a0) + uint16(a1) + uint16(a2) + uint16(a3)) / 4

			dst.SetRGBA(dx, dy, byte(r), byte(g), byte(b), byte(a))
		}
	}
	return dst
}
