package gfx

import (
	"image/color"
	"testing"
)

func TestColorPack(t *testing.T) {
	tests := []struct {
		name string
		c    Color
		want [4]uint8
	}{
		{"white", White, [4]uint8{255, 255, 255, 255}},
		{"transparent", Transparent, [4]uint8{0, 0, 0, 0}},
		{"half red", RGBA(1, 0, 0, 0.5), [4]uint8{255, 0, 0, 128}},
		{"clamped", RGBA(2, -1, 0.5, 1), [4]uint8{255, 0, 128, 255}},
		{"bytes round trip", RGBA8(12, 34, 56, 78), [4]uint8{12, 34, 56, 78}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Pack(); got != tt.want {
				t.Errorf("%+v.Pack() = %v, want %v", tt.c, got, tt.want)
			}
		})
	}
}

func TestHex(t *testing.T) {
	tests := []struct {
		in   string
		want [4]uint8
	}{
		{"#fff", [4]uint8{255, 255, 255, 255}},
		{"f008", [4]uint8{255, 0, 0, 136}},
		{"#336699", [4]uint8{0x33, 0x66, 0x99, 255}},
		{"33669980", [4]uint8{0x33, 0x66, 0x99, 0x80}},
		{"nope", [4]uint8{0, 0, 0, 255}},
	}
	for _, tt := range tests {
		if got := Hex(tt.in).Pack(); got != tt.want {
			t.Errorf("Hex(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromColor(t *testing.T) {
	c := FromColor(color.NRGBA{R: 255, G: 128, B: 0, A: 128})
	if got := c.Pack(); got != [4]uint8{255, 128, 0, 128} {
		t.Errorf("FromColor(NRGBA).Pack() = %v", got)
	}
	n := c.StdColor().(color.NRGBA)
	if n != (color.NRGBA{R: 255, G: 128, B: 0, A: 128}) {
		t.Errorf("StdColor() = %v", n)
	}
}

func TestColorHelpers(t *testing.T) {
	if got := Black.Lerp(White, 0.5); got != RGB(0.5, 0.5, 0.5) {
		t.Errorf("Lerp = %+v", got)
	}
	if got := Red.WithAlpha(0.25); got.A != 0.25 || got.R != 1 {
		t.Errorf("WithAlpha = %+v", got)
	}
	if got := HSL(120, 1, 0.5).Pack(); got != Green.Pack() {
		t.Errorf("HSL(120, 1, 0.5) = %v, want green", got)
	}
	if g := Blue.GPU(); g.B != 1 || g.A != 1 || g.R != 0 {
		t.Errorf("GPU() = %+v", g)
	}
}
