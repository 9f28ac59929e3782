package gfx

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gfx/gpucore"
)

// vertexSize is the byte size of one batch vertex: position f32x2,
// texture coordinate f32x2, color RGBA8.
const vertexSize = 20

// verticesPerQuad and indicesPerQuad describe the two triangles of a quad.
const (
	verticesPerQuad = 4
	indicesPerQuad  = 6
)

// vertex is one batch vertex before packing.
type vertex struct {
	x, y  float32
	u, v  float32
	color [4]uint8
}

// vertexLayout matches the attributes of the sprite shader.
var vertexLayout = gpucore.VertexLayout{
	Stride: vertexSize,
	Attributes: []gpucore.VertexAttribute{
		{Location: 0, Format: gpucore.VertexFormatFloat32x2, Offset: 0},
		{Location: 1, Format: gpucore.VertexFormatFloat32x2, Offset: 8},
		{Location: 2, Format: gpucore.VertexFormatUnorm8x4, Offset: 16},
	},
}

// put packs v into dst[:vertexSize] little-endian.
func (v *vertex) put(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(v.x))
	binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(v.y))
	binary.LittleEndian.PutUint32(dst[8:], math.Float32bits(v.u))
	binary.LittleEndian.PutUint32(dst[12:], math.Float32bits(v.v))
	copy(dst[16:20], v.color[:])
}

// quadIndices returns the index data for count quads: quad k uses
// 4k, 4k+1, 4k+2, 4k+2, 4k+3, 4k, i.e. triangles (0,1,2) and (2,3,0).
func quadIndices(count int, format gpucore.IndexFormat) []byte {
	size := format.Size()
	data := make([]byte, count*indicesPerQuad*size)
	pattern := [indicesPerQuad]uint32{0, 1, 2, 2, 3, 0}
	for k := range count {
		base := uint32(k * verticesPerQuad)
		for i, p := range pattern {
			off := (k*indicesPerQuad + i) * size
			if format == gpucore.IndexFormatUint32 {
				binary.LittleEndian.PutUint32(data[off:], base+p)
			} else {
				binary.LittleEndian.PutUint16(data[off:], uint16(base+p))
			}
		}
	}
	return data
}
