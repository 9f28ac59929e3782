package text

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gfx/gpucore/devicetest"
)

func TestShelfAllocator(t *testing.T) {
	a := newShelfAllocator(16, 16, 1)

	want := []image.Point{{1, 1}, {6, 1}, {11, 1}, {1, 6}}
	for i, w := range want {
		x, y, ok := a.allocate(4, 4)
		if !ok {
			t.Fatalf("allocate #%d failed", i)
		}
		if x != w.X || y != w.Y {
			t.Errorf("allocate #%d = (%d,%d), want (%d,%d)", i, x, y, w.X, w.Y)
		}
	}
	if got := a.utilization(); got != 4*16.0/256 {
		t.Errorf("utilization() = %v, want %v", got, 4*16.0/256)
	}
}

func TestShelfAllocatorGrowsLastShelf(t *testing.T) {
	a := newShelfAllocator(16, 16, 0)
	if x, y, _ := a.allocate(4, 2); x != 0 || y != 0 {
		t.Fatalf("first = (%d,%d)", x, y)
	}
	if x, y, ok := a.allocate(4, 6); !ok || x != 4 || y != 0 {
		t.Fatalf("taller item = (%d,%d,%v), want (4,0,true)", x, y, ok)
	}
	if x, y, ok := a.allocate(4, 4); !ok || x != 8 || y != 0 {
		t.Fatalf("shorter item = (%d,%d,%v), want (8,0,true)", x, y, ok)
	}
	if x, y, ok := a.allocate(8, 4); !ok || x != 0 || y != 6 {
		t.Fatalf("new shelf = (%d,%d,%v), want (0,6,true)", x, y, ok)
	}
}

func TestShelfAllocatorFull(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"too wide", 17, 1},
		{"too tall", 1, 17},
		{"padding pushes over", 16, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newShelfAllocator(16, 16, 1)
			if _, _, ok := a.allocate(tt.w, tt.h); ok {
				t.Errorf("allocate(%d,%d) succeeded", tt.w, tt.h)
			}
		})
	}
}

func TestAtlasInsertFlipsRows(t *testing.T) {
	rec := devicetest.NewRecorder()
	a, err := newAtlas(rec, 16, 0)
	if err != nil {
		t.Fatalf("newAtlas() error = %v", err)
	}
	defer a.release()
	if a.tex.HasPixels() {
		t.Error("atlas texture keeps a CPU copy")
	}

	mask := image.NewAlpha(image.Rect(0, 0, 2, 3))
	mask.Pix[0], mask.Pix[1] = 0xff, 0x80 // top row

	region, err := a.insert(mask)
	if err != nil {
		t.Fatalf("insert() error = %v", err)
	}
	if region.U != 0 || region.V != 0 || region.U2 != 2.0/16 || region.V2 != 3.0/16 {
		t.Errorf("region = (%v,%v,%v,%v), want (0,0,0.125,0.1875)",
			region.U, region.V, region.U2, region.V2)
	}

	tex, ok := rec.Texture(a.tex.ID())
	if !ok {
		t.Fatal("atlas texture not on device")
	}
	if got := tex.Pixel(0, 0, 2); got != [4]byte{0xff, 0xff, 0xff, 0xff} {
		t.Errorf("stored top row = %v, want opaque white", got)
	}
	if got := tex.Pixel(0, 1, 2); got[3] != 0x80 {
		t.Errorf("stored top row alpha = %d, want 128", got[3])
	}
	if got := tex.Pixel(0, 0, 0); got[3] != 0 {
		t.Errorf("stored bottom row alpha = %d, want 0", got[3])
	}
}

func TestAtlasInsertFull(t *testing.T) {
	rec := devicetest.NewRecorder()
	a, err := newAtlas(rec, 16, 0)
	if err != nil {
		t.Fatalf("newAtlas() error = %v", err)
	}
	defer a.release()

	_, err = a.insert(image.NewAlpha(image.Rect(0, 0, 20, 4)))
	if !errors.Is(err, ErrAtlasFull) {
		t.Fatalf("insert() error = %v, want ErrAtlasFull", err)
	}
}
