package gfx

// Sprite is one drawable instance of a texture region.
//
// Position is the top-left corner of the unrotated sprite and Size its
// extent, both in screen units. Origin is the rotation pivot measured from
// the top-left corner. Rotation is in degrees, positive values turn the
// sprite counter-clockwise on a y-down screen.
//
// Sprites are plain values. A SpriteBatch reads one only during DrawSprite.
type Sprite struct {
	Region   TextureRegion
	Position Vec2
	Size     Vec2
	Origin   Vec2
	Rotation float64
	Color    Color
}

// NewSprite returns an opaque white sprite at the origin with the region's
// pixel size, pivoting about its center.
func NewSprite(region TextureRegion) Sprite {
	size := V2(float64(region.RegionWidth()), float64(region.RegionHeight()))
	return Sprite{
		Region: region,
		Size:   size,
		Origin: size.Div(2),
		Color:  White,
	}
}

// Corners returns the sprite's transformed corners in the order top-left,
// top-right, bottom-right, bottom-left.
//
// Each corner offset from the pivot is rotated by -Rotation degrees and
// then translated to Position + Origin.
func (s *Sprite) Corners() [4]Vec2 {
	pivot := s.Origin.Add(s.Position)
	offsets := [4]Vec2{
		{X: -s.Origin.X, Y: -s.Origin.Y},
		{X: s.Size.X - s.Origin.X, Y: -s.Origin.Y},
		{X: s.Size.X - s.Origin.X, Y: s.Size.Y - s.Origin.Y},
		{X: -s.Origin.X, Y: s.Size.Y - s.Origin.Y},
	}
	var out [4]Vec2
	if s.Rotation == 0 {
		for i, o := range offsets {
			out[i] = pivot.Add(o)
		}
		return out
	}
	theta := Radians(-s.Rotation)
	for i, o := range offsets {
		out[i] = o.Rotate(theta).Add(pivot)
	}
	return out
}
