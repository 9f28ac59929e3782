package gfx

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gfx/gpucore/devicetest"
)

// testVertex is a decoded batch vertex.
type testVertex struct {
	X, Y  float32
	U, V  float32
	Color [4]uint8
}

func decodeVertex(b []byte) testVertex {
	var v testVertex
	v.X = math.Float32frombits(binary.LittleEndian.Uint32(b[0:]))
	v.Y = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	v.U = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
	v.V = math.Float32frombits(binary.LittleEndian.Uint32(b[12:]))
	copy(v.Color[:], b[16:20])
	return v
}

// drawVertices decodes the vertices referenced by a recorded draw.
func drawVertices(d *devicetest.Draw) []testVertex {
	n := d.Count / indicesPerQuad * verticesPerQuad
	out := make([]testVertex, n)
	for i := range out {
		out[i] = decodeVertex(d.Vertex(i))
	}
	return out
}

// solid returns w*h pixels of one color.
func solid(w, h int, r, g, b, a uint8) []byte {
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, a
	}
	return pix
}

func newTestTexture(t *testing.T, rec *devicetest.Recorder, w, h int) *Texture {
	t.Helper()
	tex, err := NewTexture(rec, w, h, solid(w, h, 255, 255, 255, 255))
	if err != nil {
		t.Fatalf("NewTexture(%dx%d) error = %v", w, h, err)
	}
	return tex
}

func newTestBatch(t *testing.T, rec *devicetest.Recorder, capacity int, opts ...BatchOption) *SpriteBatch {
	t.Helper()
	b, err := NewSpriteBatch(rec, capacity, opts...)
	if err != nil {
		t.Fatalf("NewSpriteBatch(%d) error = %v", capacity, err)
	}
	t.Cleanup(b.Release)
	return b
}

// expectInvalidState runs fn and fails unless it panics with an
// *InvalidStateError.
func expectInvalidState(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("%s did not panic", name)
		}
		err, ok := r.(*InvalidStateError)
		if !ok {
			t.Fatalf("%s panicked with %T (%v), want *InvalidStateError", name, r, r)
		}
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("%s: errors.Is(%v, ErrInvalidState) = false", name, err)
		}
	}()
	fn()
}

func approx32(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-3
}
