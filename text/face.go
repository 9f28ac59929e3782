package text

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/gpucore"
	"github.com/gogpu/gfx/internal/cache"
)

// Metrics holds the vertical metrics of a face in pixels.
type Metrics struct {
	// Ascent is the distance from the baseline to the top of a line.
	Ascent float64

	// Descent is the distance from the baseline to the bottom of a line.
	Descent float64

	// LineHeight is the distance between consecutive baselines.
	LineHeight float64

	// CapHeight is the height of capital letters.
	CapHeight float64
}

// glyph is an atlas entry. Left and Top offset the quad from the pen.
type glyph struct {
	region gfx.TextureRegion
	left   float64
	top    float64
	w, h   float64
	ink    bool
}

// shapedLine is a cached shaping result. Glyphs must not be modified.
type shapedLine struct {
	glyphs []positioned
	width  float64
}

// Face is a font at one pixel size with its own glyph atlas texture.
// Glyphs are rasterized on first use
// and recently shaped lines are cached.
//
// Face is not safe for concurrent use.
type Face struct {
	name    string
	font    *sfnt.Font
	buf     sfnt.Buffer
	shaper  shaper
	size    float64
	ppem    fixed.Int26_6
	metrics Metrics
	atlas   *atlas
	glyphs  map[font.GID]glyph
	lines   *cache.Cache[string, shapedLine]
}

// DefaultFace returns Go Regular at sizePx pixels.
func DefaultFace(dev gpucore.Device, sizePx float64, opts ...FaceOption) (*Face, error) {
	return NewFace(dev, goregular.TTF, sizePx, opts...)
}

// NewFace parses a TrueType or OpenType font and creates a face at sizePx
// pixels per em. The data slice is copied.
func NewFace(dev gpucore.Device, data []byte, sizePx float64, opts ...FaceOption) (*Face, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFontData
	}
	if sizePx <= 0 || math.IsNaN(sizePx) || math.IsInf(sizePx, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSize, sizePx)
	}
	config := defaultFaceConfig()
	for _, opt := range opts {
		opt(&config)
	}

	data = bytes.Clone(data)
	sf, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("text: failed to parse font: %w", err)
	}
	shapingFace, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("text: failed to parse font for shaping: %w", err)
	}

	f := &Face{
		font:   sf,
		size:   sizePx,
		ppem:   floatToFixed(sizePx),
		glyphs: make(map[font.GID]glyph),
		lines:  cache.New[string, shapedLine](config.lineCache),
	}
	f.name, _ = sf.Name(&f.buf, sfnt.NameIDFamily)
	m, err := sf.Metrics(&f.buf, f.ppem, xfont.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("text: font metrics: %w", err)
	}
	f.metrics = Metrics{
		Ascent:     fixedToFloat(m.Ascent),
		Descent:    fixedToFloat(m.Descent),
		LineHeight: fixedToFloat(m.Height),
		CapHeight:  fixedToFloat(m.CapHeight),
	}
	f.shaper = shaper{
		face: font.NewFace(shapingFace.Font),
		size: f.ppem,
		lang: language.NewLanguage(config.language),
	}

	f.atlas, err = newAtlas(dev, config.atlasSize, config.padding)
	if err != nil {
		return nil, err
	}
	gfx.Logger().Debug("text: face created",
		slog.String("font", f.name),
		slog.Float64("size", sizePx),
		slog.Int("atlas", config.atlasSize))
	return f, nil
}

// Name returns the font family name.
func (f *Face) Name() string { return f.name }

// Size returns the face size in pixels per em.
func (f *Face) Size() float64 { return f.size }

// Metrics returns the vertical metrics of the face.
func (f *Face) Metrics() Metrics { return f.metrics }

// Atlas returns the glyph atlas texture, or nil after Release.
func (f *Face) Atlas() *gfx.Texture {
	if f.atlas == nil {
		return nil
	}
	return f.atlas.tex
}

// CachedGlyphs returns the number of glyphs rasterized so far.
func (f *Face) CachedGlyphs() int { return len(f.glyphs) }

// AtlasUtilization returns the fraction of the atlas area in use.
func (f *Face) AtlasUtilization() float64 {
	if f.atlas == nil {
		return 0
	}
	return f.atlas.alloc.utilization()
}

// Draw queues s on batch with the top-left of its first line at (x, y).
// Lines are separated by '\n'. Glyph positions are snapped to whole
// pixels. The batch must be between Begin and End.
//
// Glyphs already queued stay queued if an error is returned.
func (f *Face) Draw(batch *gfx.SpriteBatch, s string, x, y float64, color gfx.Color) error {
	if f.atlas == nil {
		return ErrReleased
	}
	baseline := y + f.metrics.Ascent
	for line := range strings.SplitSeq(s, "\n") {
		for _, p := range f.shape(line).glyphs {
			g, err := f.glyph(p.gid)
			if err != nil {
				return err
			}
			if !g.ink {
				continue
			}
			qx := math.Round(x+p.x) + g.left
			qy := math.Round(baseline+p.y) + g.top
			batch.DrawRegion(g.region, qx, qy, g.w, g.h, color)
		}
		baseline += f.metrics.LineHeight
	}
	return nil
}

// Measure returns the width of the widest line of s and the height of all
// its lines.
func (f *Face) Measure(s string) (width, height float64) {
	if s == "" {
		return 0, 0
	}
	for line := range strings.SplitSeq(s, "\n") {
		width = max(width, f.shape(line).width)
		height += f.metrics.LineHeight
	}
	return width, height
}

// shape returns the shaped glyphs of one line.
func (f *Face) shape(line string) shapedLine {
	if sl, ok := f.lines.Get(line); ok {
		return sl
	}
	glyphs, width := f.shaper.shapeLine(nil, line)
	sl := shapedLine{glyphs: glyphs, width: width}
	f.lines.Set(line, sl)
	return sl
}

// ShapeCacheStats returns statistics of the shaped line cache.
func (f *Face) ShapeCacheStats() cache.Stats { return f.lines.Stats() }

// glyph returns the atlas entry for gid, rasterizing it on first use.
func (f *Face) glyph(gid font.GID) (glyph, error) {
	if g, ok := f.glyphs[gid]; ok {
		return g, nil
	}
	if gid > math.MaxUint16 {
		f.glyphs[gid] = glyph{}
		return glyph{}, nil
	}
	gm, err := rasterizeGlyph(f.font, &f.buf, sfnt.GlyphIndex(gid), f.ppem)
	if err != nil {
		return glyph{}, fmt.Errorf("text: rasterize glyph %d: %w", gid, err)
	}
	g := glyph{left: float64(gm.Left), top: float64(gm.Top)}
	if gm.Mask != nil {
		region, err := f.atlas.insert(gm.Mask)
		if err != nil {
			return glyph{}, err
		}
		g.region = region
		g.w = float64(gm.Mask.Rect.Dx())
		g.h = float64(gm.Mask.Rect.Dy())
		g.ink = true
	}
	f.glyphs[gid] = g
	return g, nil
}

// Release frees the atlas texture. Release is idempotent.
func (f *Face) Release() {
	if f.atlas == nil {
		return
	}
	f.atlas.release()
	f.atlas = nil
	clear(f.glyphs)
	f.lines.Clear()
}
