package text

// FaceOption configures Face creation.
type FaceOption func(*faceConfig)

// faceConfig holds configuration for Face.
type faceConfig struct {
	atlasSize int
	padding   int
	language  string
	lineCache int
}

// defaultFaceConfig returns the default face configuration.
func defaultFaceConfig() faceConfig {
	return faceConfig{
		atlasSize: 1024,
		padding:   1,
		language:  "en",
		lineCache: 256,
	}
}

// WithAtlasSize sets the width and height of the glyph atlas texture in
// pixels. Values below 16 are raised to 16.
func WithAtlasSize(size int) FaceOption {
	return func(c *faceConfig) {
		c.atlasSize = max(size, 16)
	}
}

// WithPadding sets the number of empty pixels kept between glyphs in the
// atlas. Negative values are treated as zero.
func WithPadding(px int) FaceOption {
	return func(c *faceConfig) {
		c.padding = max(px, 0)
	}
}

// WithLanguage sets the language tag used for shaping (e.g., "en", "ar").
func WithLanguage(lang string) FaceOption {
	return func(c *faceConfig) {
		c.language = lang
	}
}

// WithLineCache sets how many shaped lines the face keeps. Values below
// one are raised to one.
func WithLineCache(lines int) FaceOption {
	return func(c *faceConfig) {
		c.lineCache = max(lines, 1)
	}
}
