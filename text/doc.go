// Package text draws strings through a gfx.SpriteBatch.
//
// A Face is a font at one pixel size. Strings are shaped with
// go-text/typesetting (kerning, ligatures, right-to-left scripts), split
// into directional runs with the Unicode bidi algorithm, and drawn one
// quad per visible glyph. Glyph outlines are rasterized on first use into
// a shelf-packed atlas texture, white with coverage alpha, so the sprite
// color tints the text.
//
// # Example usage
//
//	face, err := text.DefaultFace(dev, 24)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer face.Release()
//
//	batch.Begin()
//	if err := face.Draw(batch, "Hello, GoGPU!", 10, 10, gfx.White); err != nil {
//	    log.Print(err)
//	}
//	if err := batch.End(); err != nil {
//	    log.Fatal(err)
//	}
//
// Every glyph of a face lives in the same texture, so a string never
// splits a batch. Mixing faces or sprite textures does.
package text
