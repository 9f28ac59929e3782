package gfx

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gfx/gpucore"
	"github.com/gogpu/gfx/gpucore/devicetest"
)

func TestNewTexture(t *testing.T) {
	rec := devicetest.NewRecorder()
	pix := solid(3, 2, 10, 20, 30, 40)
	pix[0] = 99

	tex, err := NewTexture(rec, 3, 2, pix)
	if err != nil {
		t.Fatalf("NewTexture() error = %v", err)
	}
	if tex.Width() != 3 || tex.Height() != 2 || tex.Depth() != 1 || tex.MipLevels() != 1 {
		t.Errorf("texture = %dx%dx%d, %d levels", tex.Width(), tex.Height(), tex.Depth(), tex.MipLevels())
	}

	dt, ok := rec.Texture(tex.ID())
	if !ok {
		t.Fatal("device texture missing")
	}
	if !bytes.Equal(dt.Levels[0], pix) {
		t.Error("device pixels differ from upload")
	}
	if dt.Sampler != gpucore.DefaultSamplerState() {
		t.Errorf("sampler = %+v, want linear clamp-to-edge", dt.Sampler)
	}
	if rec.BoundTexture(0) != gpucore.InvalidID {
		t.Error("NewTexture left the texture bound")
	}

	pix[0] = 0
	if tex.pixels.Pix()[0] != 99 {
		t.Error("texture aliases the caller's pixel slice")
	}
}

func TestNewTextureErrors(t *testing.T) {
	rec := devicetest.NewRecorder()
	if _, err := NewTexture(rec, 0, 4, nil); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("zero width error = %v, want ErrInvalidSize", err)
	}
	if _, err := NewTexture(rec, 4, 4, make([]byte, 10)); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("short data error = %v, want ErrInvalidSize", err)
	}

	rec.FailNext("CreateTexture", errors.New("no memory"))
	if _, err := NewTexture(rec, 1, 1, solid(1, 1, 0, 0, 0, 0)); !errors.Is(err, ErrResourceCreation) {
		t.Errorf("device failure error = %v, want ErrResourceCreation", err)
	}

	rec.FailNext("WriteTexture", errors.New("lost"))
	if _, err := NewTexture(rec, 1, 1, solid(1, 1, 0, 0, 0, 0)); err == nil {
		t.Error("upload failure returned nil error")
	}
	if rec.LiveTextures() != 0 {
		t.Errorf("live textures = %d after failures, want 0", rec.LiveTextures())
	}
}

func TestMipLevelCount(t *testing.T) {
	tests := []struct {
		w, h int
		want int
	}{
		{256, 256, 9},
		{300, 200, 9},
		{1, 1, 1},
		{2, 1, 2},
		{512, 3, 10},
		{5, 1000, 10},
	}
	for _, tt := range tests {
		rec := devicetest.NewRecorder()
		tex, err := NewTexture(rec, tt.w, tt.h, make([]byte, tt.w*tt.h*4))
		if err != nil {
			t.Fatal(err)
		}
		if err := tex.GenerateMipmaps(); err != nil {
			t.Fatalf("GenerateMipmaps(%dx%d) error = %v", tt.w, tt.h, err)
		}
		if tex.MipLevels() != tt.want {
			t.Errorf("%dx%d mip levels = %d, want %d", tt.w, tt.h, tex.MipLevels(), tt.want)
		}
		dt, _ := rec.Texture(tex.ID())
		if len(dt.Levels) != tt.want {
			t.Errorf("%dx%d device levels = %d, want %d", tt.w, tt.h, len(dt.Levels), tt.want)
		}
	}
}

func TestGenerateMipmapsUploadsChain(t *testing.T) {
	rec := devicetest.NewRecorder()
	pix := solid(4, 4, 0, 0, 0, 255)
	for i := 0; i < 8*4; i += 4 {
		pix[i] = 200 // bottom two rows red
	}
	tex, err := NewTexture(rec, 4, 4, pix)
	if err != nil {
		t.Fatal(err)
	}
	old := tex.ID()
	if err := tex.GenerateMipmaps(); err != nil {
		t.Fatal(err)
	}

	if _, ok := rec.Texture(old); ok {
		t.Error("old device texture not destroyed")
	}
	dt, _ := rec.Texture(tex.ID())
	if got := dt.Pixel(1, 0, 0); got[0] != 200 {
		t.Errorf("level 1 (0,0) = %v, want red 200", got)
	}
	if got := dt.Pixel(1, 0, 1); got[0] != 0 {
		t.Errorf("level 1 (0,1) = %v, want black", got)
	}
	if got := dt.Pixel(2, 0, 0); got[0] != 100 {
		t.Errorf("level 2 = %v, want red 100", got)
	}
	if !dt.Sampler.MinFilter.UsesMipmaps() {
		t.Errorf("min filter = %v after GenerateMipmaps, want a mipmap filter", dt.Sampler.MinFilter)
	}
}

func TestTextureSamplerState(t *testing.T) {
	rec := devicetest.NewRecorder()
	tex := newTestTexture(t, rec, 2, 2)

	if err := tex.SetFilters(gpucore.FilterNearest, gpucore.FilterNearest); err != nil {
		t.Fatalf("SetFilters() error = %v", err)
	}
	if err := tex.SetWrap(gpucore.WrapRepeat, gpucore.WrapMirroredRepeat); err != nil {
		t.Fatalf("SetWrap() error = %v", err)
	}
	want := gpucore.SamplerState{
		MinFilter: gpucore.FilterNearest,
		MagFilter: gpucore.FilterNearest,
		WrapS:     gpucore.WrapRepeat,
		WrapT:     gpucore.WrapMirroredRepeat,
	}
	dt, _ := rec.Texture(tex.ID())
	if dt.Sampler != want || tex.Sampler() != want {
		t.Errorf("sampler = %+v (device %+v), want %+v", tex.Sampler(), dt.Sampler, want)
	}
}

func TestTextureSetSubPixels(t *testing.T) {
	rec := devicetest.NewRecorder()
	tex := newTestTexture(t, rec, 4, 4)

	if err := tex.SetSubPixels(1, 2, 2, 1, solid(2, 1, 1, 2, 3, 4)); err != nil {
		t.Fatalf("SetSubPixels() error = %v", err)
	}
	dt, _ := rec.Texture(tex.ID())
	if got := dt.Pixel(0, 1, 2); got != [4]byte{1, 2, 3, 4} {
		t.Errorf("device pixel (1,2) = %v, want [1 2 3 4]", got)
	}
	if r, _, _, _ := tex.pixels.RGBA(2, 2); r != 1 {
		t.Errorf("CPU copy (2,2) red = %d, want 1", r)
	}
	if err := tex.SetSubPixels(3, 3, 2, 2, solid(2, 2, 0, 0, 0, 0)); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("out of bounds error = %v, want ErrInvalidSize", err)
	}
}

func TestTextureDiscardPixels(t *testing.T) {
	rec := devicetest.NewRecorder()
	tex := newTestTexture(t, rec, 4, 4)
	if !tex.HasPixels() {
		t.Fatal("new texture has no CPU copy")
	}

	tex.DiscardPixels()
	if tex.HasPixels() {
		t.Error("HasPixels() = true after DiscardPixels")
	}
	if err := tex.SetSubPixels(0, 0, 1, 1, solid(1, 1, 9, 8, 7, 6)); err != nil {
		t.Fatalf("SetSubPixels() after DiscardPixels error = %v", err)
	}
	dt, _ := rec.Texture(tex.ID())
	if got := dt.Pixel(0, 0, 0); got != [4]byte{9, 8, 7, 6} {
		t.Errorf("device pixel (0,0) = %v, want [9 8 7 6]", got)
	}
	if err := tex.GenerateMipmaps(); !errors.Is(err, ErrNoPixels) {
		t.Errorf("GenerateMipmaps() error = %v, want ErrNoPixels", err)
	}
	if tex.MipLevels() != 1 {
		t.Errorf("MipLevels() = %d, want 1", tex.MipLevels())
	}
}

func TestTextureEqualAndRelease(t *testing.T) {
	rec := devicetest.NewRecorder()
	a := newTestTexture(t, rec, 2, 2)
	b := newTestTexture(t, rec, 2, 2)

	if !a.Equal(a) || a.Equal(b) || a.Equal(nil) {
		t.Error("Equal does not compare device identity")
	}
	shared := a.Retain()
	if !shared.Equal(a) {
		t.Error("retained texture is not equal to itself")
	}

	a.Release()
	if rec.LiveTextures() != 2 {
		t.Errorf("live textures = %d, want 2 while shared", rec.LiveTextures())
	}
	shared.Release()
	b.Release()
	if rec.LiveTextures() != 0 {
		t.Errorf("live textures = %d, want 0", rec.LiveTextures())
	}
	if err := a.GenerateMipmaps(); !errors.Is(err, ErrReleased) {
		t.Errorf("GenerateMipmaps after release error = %v, want ErrReleased", err)
	}
}

func TestTextureBind(t *testing.T) {
	rec := devicetest.NewRecorder()
	tex := newTestTexture(t, rec, 2, 2)
	tex.Bind(3)
	if rec.BoundTexture(3) != tex.ID() {
		t.Error("Bind(3) did not bind slot 3")
	}
	tex.Unbind(3)
	if rec.BoundTexture(3) != gpucore.InvalidID {
		t.Error("Unbind(3) left slot 3 bound")
	}
}

func TestLoadTextureFlipsRows(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255}) // top
	img.SetNRGBA(0, 1, color.NRGBA{B: 255, A: 255}) // bottom

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "two.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	rec := devicetest.NewRecorder()
	for name, load := range map[string]func() (*Texture, error){
		"LoadTexture":   func() (*Texture, error) { return LoadTexture(rec, path) },
		"DecodeTexture": func() (*Texture, error) { return DecodeTexture(rec, bytes.NewReader(buf.Bytes())) },
	} {
		tex, err := load()
		if err != nil {
			t.Fatalf("%s error = %v", name, err)
		}
		dt, _ := rec.Texture(tex.ID())
		if got := dt.Pixel(0, 0, 0); got != [4]byte{0, 0, 255, 255} {
			t.Errorf("%s row 0 = %v, want the bottom (blue) pixel", name, got)
		}
		if got := dt.Pixel(0, 0, 1); got != [4]byte{255, 0, 0, 255} {
			t.Errorf("%s row 1 = %v, want the top (red) pixel", name, got)
		}
	}

	if _, err := LoadTexture(rec, filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("LoadTexture(missing) returned nil error")
	}
}
