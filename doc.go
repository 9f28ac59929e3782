// Package gfx provides a small 2D rendering layer built around a sprite
// batch.
//
// # Overview
//
// gfx wraps graphics-device resources (Buffer, Shader, ShaderProgram,
// Texture) behind reference-counted handles and draws textured quads with
// SpriteBatch, which packs many quads into one indexed draw call per
// texture.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/gfx"
//	    "github.com/gogpu/gfx/gpu"
//	)
//
//	dev, err := gpu.Open("", 800, 600)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Destroy()
//
//	tex, _ := gfx.LoadTexture(dev, "player.png")
//	batch, _ := gfx.NewSpriteBatch(dev, 1000, gfx.WithViewport(800, 600))
//
//	batch.Begin()
//	batch.Draw(tex, 100, 100, 64, 64)
//	if err := batch.End(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Architecture
//
// The library is organized into:
//   - Public API: SpriteBatch, Sprite, TextureRegion, Texture, Buffer, Shader, ShaderProgram
//   - Device boundary: gpucore.Device, implemented on wgpu/hal by the gpu package
//   - Test device: gpucore/devicetest records every submission in memory
//   - Extras: text (glyph atlas fonts), app (frame loop)
//
// # Coordinate System
//
// With the projection from SetViewport or WithViewport:
//   - Origin (0,0) at top-left
//   - X increases right
//   - Y increases down
//   - Sprite rotation in degrees, positive turns counter-clockwise on screen
//
// Texture pixel data is stored bottom row first, so texture coordinate
// v = 0 is the bottom of the picture.
//
// # Errors
//
// Resource constructors return errors wrapping ErrResourceCreation, or a
// *CompileError or *LinkError carrying the device log. Calling SpriteBatch
// methods out of the Begin/Draw/End order panics with *InvalidStateError.
package gfx

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"
)
