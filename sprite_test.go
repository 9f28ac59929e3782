package gfx

import "testing"

func TestNewSprite(t *testing.T) {
	tex := &Texture{width: 40, height: 20}
	s := NewSprite(NewTextureRegionPixels(tex, 0, 0, 10, 20))

	if s.Size != V2(10, 20) {
		t.Errorf("Size = %v, want (10, 20)", s.Size)
	}
	if s.Origin != V2(5, 10) {
		t.Errorf("Origin = %v, want the center (5, 10)", s.Origin)
	}
	if s.Color != White || s.Rotation != 0 || !s.Position.IsZero() {
		t.Errorf("sprite = %+v, want white, unrotated, at the origin", s)
	}
}

func TestSpriteCorners(t *testing.T) {
	tests := []struct {
		name string
		s    Sprite
		want [4]Vec2
	}{
		{
			name: "unrotated, pivot top-left",
			s:    Sprite{Position: V2(1, 2), Size: V2(3, 4)},
			want: [4]Vec2{{1, 2}, {4, 2}, {4, 6}, {1, 6}},
		},
		{
			name: "half turn about center",
			s:    Sprite{Position: V2(0, 0), Size: V2(2, 2), Origin: V2(1, 1), Rotation: 180},
			want: [4]Vec2{{2, 2}, {0, 2}, {0, 0}, {2, 0}},
		},
		{
			name: "quarter turn about top-left",
			s:    Sprite{Position: V2(10, 10), Size: V2(4, 2), Rotation: 90},
			want: [4]Vec2{{10, 10}, {10, 6}, {12, 6}, {12, 10}},
		},
		{
			name: "negative quarter turn about top-left",
			s:    Sprite{Position: V2(10, 10), Size: V2(4, 2), Rotation: -90},
			want: [4]Vec2{{10, 10}, {10, 14}, {8, 14}, {8, 10}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.s.Corners()
			for i := range got {
				if !got[i].Approx(tt.want[i], 1e-9) {
					t.Errorf("corner %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
