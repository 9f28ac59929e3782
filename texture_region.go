package gfx

// TextureRegion is a UV rectangle of a texture, used for atlases.
//
// U and U2 are the left and right edges. V and V2 are the bottom and top
// edges in texture space, where v = 0 is the first stored row. The zero
// rectangle of NewTextureRegion, (0, 0, 1, 1), is the whole texture.
// Regions are values; copying one does not retain the texture.
type TextureRegion struct {
	Texture *Texture
	U, V    float32
	U2, V2  float32
}

// NewTextureRegion returns a region covering the whole texture.
func NewTextureRegion(tex *Texture) TextureRegion {
	return TextureRegion{Texture: tex, U: 0, V: 0, U2: 1, V2: 1}
}

// NewTextureRegionUV returns a region with explicit UV edges.
func NewTextureRegionUV(tex *Texture, u, v, u2, v2 float32) TextureRegion {
	return TextureRegion{Texture: tex, U: u, V: v, U2: u2, V2: v2}
}

// NewTextureRegionPixels returns the region of a w*h pixel rectangle whose
// top-left corner is (x, y), measured from the top-left of the picture.
func NewTextureRegionPixels(tex *Texture, x, y, w, h int) TextureRegion {
	tw, th := float32(tex.Width()), float32(tex.Height())
	return TextureRegion{
		Texture: tex,
		U:       float32(x) / tw,
		U2:      float32(x+w) / tw,
		V:       1 - float32(y+h)/th,
		V2:      1 - float32(y)/th,
	}
}

// Flip mirrors the region horizontally and/or vertically by swapping edges.
func (r *TextureRegion) Flip(x, y bool) {
	if x {
		r.U, r.U2 = r.U2, r.U
	}
	if y {
		r.V, r.V2 = r.V2, r.V
	}
}

// RegionWidth returns the region width in texels.
func (r TextureRegion) RegionWidth() int {
	return int(abs32(r.U2-r.U)*float32(r.Texture.Width()) + 0.5)
}

// RegionHeight returns the region height in texels.
func (r TextureRegion) RegionHeight() int {
	return int(abs32(r.V2-r.V)*float32(r.Texture.Height()) + 0.5)
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
