package text

import "errors"

// Sentinel errors for text package.
var (
	// ErrEmptyFontData is returned when font data is empty.
	ErrEmptyFontData = errors.New("text: empty font data")

	// ErrInvalidSize is returned for a non-positive font size.
	ErrInvalidSize = errors.New("text: font size must be positive")

	// ErrAtlasFull is returned when a glyph does not fit in the atlas.
	ErrAtlasFull = errors.New("text: glyph atlas full")

	// ErrReleased is returned when using a Face after Release.
	ErrReleased = errors.New("text: face released")
)
