// Package textlayout measures and line-breaks projected text.
// All measurement goes through the domain.TextMeasurer capability so the
// transition sequencer can be tested without a real font engine.
package textlayout

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// DefaultLineHeight is the line spacing as a multiple of the font size
const DefaultLineHeight = 1.25

// Line is a single laid out line with its advance width in pixels
type Line struct {
	Text  string
	Width int
}

// Wrap breaks text greedily on spaces so that no line is wider than maxWidth,
// keeping explicit newlines. A word wider than maxWidth gets a line of its own.
// With maxWidth <= 0 only explicit newlines break.
func Wrap(text string, maxWidth int, width func(string) int) []Line {
	var lines []Line
	for _, para := range strings.Split(strings.TrimRight(text, " \t\r\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, Line{})
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			candidate := cur + " " + w
			if maxWidth <= 0 || width(candidate) <= maxWidth {
				cur = candidate
				continue
			}
			lines = append(lines, Line{Text: cur, Width: width(cur)})
			cur = w
		}
		lines = append(lines, Line{Text: cur, Width: width(cur)})
	}
	return lines
}

// Extent returns the bounding box of wrapped lines
func Extent(lines []Line, lineHeight int) (w, h int) {
	for _, l := range lines {
		if l.Width > w {
			w = l.Width
		}
	}
	return w, len(lines) * lineHeight
}

// Monospace is a deterministic measurer: every rune advances Advance*size
// pixels and lines are LineHeight*size tall. Width is linear in size, which
// keeps greedy wrapping monotonic.
type Monospace struct {
	Advance    float64
	LineHeight float64
}

// NewMonospace returns a measurer with typical sans-serif proportions
func NewMonospace() Monospace {
	return Monospace{Advance: 0.6, LineHeight: DefaultLineHeight}
}

// Measure implements domain.TextMeasurer
func (m Monospace) Measure(text string, size, maxWidth int) (int, int) {
	width := func(s string) int {
		return int(math.Ceil(float64(len([]rune(s))) * m.Advance * float64(size)))
	}
	return Extent(Wrap(text, maxWidth, width), int(math.Ceil(m.LineHeight*float64(size))))
}

// Faces measures with an OpenType font, caching one face per size
type Faces struct {
	font       *opentype.Font
	lineHeight float64

	mu    sync.Mutex
	cache map[int]font.Face
}

// NewFaces loads the font at path, or the bundled Go Bold face when path is empty
func NewFaces(path string) (*Faces, error) {
	data := gobold.TTF
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font %s: %w", path, err)
		}
		data = b
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Faces{font: f, lineHeight: DefaultLineHeight, cache: make(map[int]font.Face)}, nil
}

// NewFace returns an uncached face at size px; the caller owns it.
// Hinting is off so advances scale with size.
func (f *Faces) NewFace(size int) (font.Face, error) {
	return opentype.NewFace(f.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// LineHeight returns the line advance for size in pixels
func (f *Faces) LineHeight(size int) int {
	return int(math.Ceil(f.lineHeight * float64(size)))
}

// Wrap lays out text at size within maxWidth
func (f *Faces) Wrap(text string, size, maxWidth int) ([]Line, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	face, ok := f.cache[size]
	if !ok {
		var err error
		face, err = f.NewFace(size)
		if err != nil {
			return nil, fmt.Errorf("face at %dpx: %w", size, err)
		}
		f.cache[size] = face
	}
	width := func(s string) int { return font.MeasureString(face, s).Ceil() }
	return Wrap(text, maxWidth, width), nil
}

// Measure implements domain.TextMeasurer. A size the font cannot produce
// reports an unbounded extent so it never fits.
func (f *Faces) Measure(text string, size, maxWidth int) (int, int) {
	lines, err := f.Wrap(text, size, maxWidth)
	if err != nil {
		return math.MaxInt32, math.MaxInt32
	}
	return Extent(lines, f.LineHeight(size))
}
