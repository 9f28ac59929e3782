package text

import (
	"slices"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"
)

// run is a directional run of a line.
type run struct {
	runes []rune
	rtl   bool
}

// visualRuns splits a line into directional runs in left-to-right display
// order. Runs are found with the Unicode bidi algorithm; text that it
// rejects is treated as a single left-to-right run.
func visualRuns(line string) []run {
	if line == "" {
		return nil
	}
	var p bidi.Paragraph
	if _, err := p.SetString(line); err != nil {
		return []run{{runes: []rune(line)}}
	}
	ordering, err := p.Order()
	if err != nil || ordering.NumRuns() == 0 {
		return []run{{runes: []rune(line)}}
	}

	runs := make([]run, 0, ordering.NumRuns())
	for i := range ordering.NumRuns() {
		r := ordering.Run(i)
		runs = append(runs, run{
			runes: []rune(r.String()),
			rtl:   r.Direction() == bidi.RightToLeft,
		})
	}
	// The first run carries the paragraph level. In a right-to-left
	// paragraph every run is displayed in reverse logical order.
	if runs[0].rtl {
		slices.Reverse(runs)
	}
	return runs
}

// positioned is a shaped glyph with its pen position relative to the line
// origin on the baseline, y down.
type positioned struct {
	gid font.GID
	x   float64
	y   float64
}

// shaper turns lines into positioned glyphs with HarfBuzz.
type shaper struct {
	hb   shaping.HarfbuzzShaper
	face *font.Face
	size fixed.Int26_6
	lang language.Language
}

// shapeLine appends the glyphs of line to dst and returns them with the
// line's advance width.
func (s *shaper) shapeLine(dst []positioned, line string) ([]positioned, float64) {
	pen := fixed.Int26_6(0)
	for _, r := range visualRuns(line) {
		dir := di.DirectionLTR
		if r.rtl {
			dir = di.DirectionRTL
		}
		out := s.hb.Shape(shaping.Input{
			Text:      r.runes,
			RunStart:  0,
			RunEnd:    len(r.runes),
			Direction: dir,
			Face:      s.face,
			Size:      s.size,
			Script:    detectScript(r.runes),
			Language:  s.lang,
		})
		for _, g := range out.Glyphs {
			dst = append(dst, positioned{
				gid: g.GlyphID,
				x:   fixedToFloat(pen + g.XOffset),
				y:   -fixedToFloat(g.YOffset),
			})
			pen += g.Advance
		}
	}
	return dst, fixedToFloat(pen)
}

// detectScript returns the script of the first non-space rune.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

func floatToFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(v * 64) }

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }
