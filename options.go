package gfx

import (
	_ "embed"
)

// Default sprite shader sources.
var (
	//go:embed shaders/sprite_vertex.wgsl
	spriteVertexWGSL string

	//go:embed shaders/sprite_fragment.wgsl
	spriteFragmentWGSL string
)

// SpriteVertexShader returns the WGSL source of the default vertex stage.
// Custom fragment stages passed through WithProgram can pair with it.
func SpriteVertexShader() string { return spriteVertexWGSL }

// SpriteFragmentShader returns the WGSL source of the default fragment stage.
func SpriteFragmentShader() string { return spriteFragmentWGSL }

// BatchOption configures a SpriteBatch during creation.
//
// Example:
//
//	// Default program, 1000 sprites per flush
//	batch, err := gfx.NewSpriteBatch(dev, 1000)
//
//	// Custom program
//	batch, err := gfx.NewSpriteBatch(dev, 1000, gfx.WithProgram(outline))
type BatchOption func(*batchOptions)

type batchOptions struct {
	program  *ShaderProgram
	label    string
	viewport [2]float64
}

func defaultBatchOptions() batchOptions {
	return batchOptions{label: "sprite-batch"}
}

// WithProgram draws with a custom program instead of the embedded default.
// The program must accept the batch vertex layout (locations 0, 1 and 2)
// and sample its texture in slot 0. The batch retains the program.
func WithProgram(p *ShaderProgram) BatchOption {
	return func(o *batchOptions) {
		o.program = p
	}
}

// WithLabel names the batch in log output.
func WithLabel(label string) BatchOption {
	return func(o *batchOptions) {
		o.label = label
	}
}

// WithViewport sets the initial projection to Ortho(width, height).
func WithViewport(width, height float64) BatchOption {
	return func(o *batchOptions) {
		o.viewport = [2]float64{width, height}
	}
}
