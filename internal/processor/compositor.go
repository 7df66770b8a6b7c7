package processor

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // JPEG format support
	_ "image/png"  // PNG format support
	"strings"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/versecast/internal/domain"
	"github.com/genricoloni/versecast/internal/textlayout"
	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	// TextPadding is the margin kept clear around projected text
	TextPadding = 32
	// Transparent is the style value for "no background colour"
	Transparent = "transparent"
)

// Compositor renders projector frames at the projector display's resolution
type Compositor struct {
	logger *zap.Logger
	res    *domain.ScreenResolution // Injected automatically by Fx
	faces  *textlayout.Faces
}

// NewCompositor creates a compositor drawing text with faces
func NewCompositor(logger *zap.Logger, res *domain.ScreenResolution, faces *textlayout.Faces) *Compositor {
	return &Compositor{logger: logger, res: res, faces: faces}
}

// Size returns the frame dimensions
func (c *Compositor) Size() (int, int) {
	return c.res.Width, c.res.Height
}

// TextArea returns the box projected text is fitted into
func (c *Compositor) TextArea() (int, int) {
	return max(c.res.Width-2*TextPadding, 1), max(c.res.Height-2*TextPadding, 1)
}

// Blank returns an all-black frame
func (c *Compositor) Blank() *image.NRGBA {
	return imaging.New(c.res.Width, c.res.Height, color.Black)
}

// Decode loads an image file, honouring EXIF orientation
func Decode(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", b.Dx(), b.Dy())
	}
	return img, nil
}

// Media scales img into a full frame according to fit.
// Contain letterboxes on black, cover crops to the centre, fill stretches.
func (c *Compositor) Media(img image.Image, fit domain.FitMode) *image.NRGBA {
	w, h := c.Size()
	switch domain.ParseFitMode(string(fit)) {
	case domain.FitCover:
		return imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)
	case domain.FitFill:
		return imaging.Resize(img, w, h, imaging.Lanczos)
	default:
		fitted := imaging.Fit(img, w, h, imaging.Lanczos)
		// imaging.Fit never upscales
		if b := fitted.Bounds(); b.Dx() < w && b.Dy() < h {
			if b.Dx()*h >= b.Dy()*w {
				fitted = imaging.Resize(img, w, 0, imaging.Lanczos)
			} else {
				fitted = imaging.Resize(img, 0, h, imaging.Lanczos)
			}
		}
		return imaging.PasteCenter(c.Blank(), fitted)
	}
}

// Text renders text at size px centred over the style's background.
// background, when non-nil, covers the frame beneath the text.
func (c *Compositor) Text(text string, size int, style domain.StyleSet, background image.Image) (*image.NRGBA, error) {
	w, h := c.Size()
	frame := imaging.New(w, h, ParseColor(style.BackgroundColor, color.Black))
	if background != nil {
		frame = imaging.Fill(background, w, h, imaging.Center, imaging.Lanczos)
	}
	if strings.TrimSpace(text) == "" {
		return frame, nil
	}

	areaW, _ := c.TextArea()
	lines, err := c.faces.Wrap(text, size, areaW)
	if err != nil {
		return nil, err
	}
	face, err := c.faces.NewFace(size)
	if err != nil {
		return nil, fmt.Errorf("face at %dpx: %w", size, err)
	}
	defer face.Close()

	m := face.Metrics()
	ascent, descent := m.Ascent.Ceil(), m.Descent.Ceil()
	lh := c.faces.LineHeight(size)
	top := (h-len(lines)*lh)/2 + (lh-ascent-descent)/2 + ascent

	d := &font.Drawer{
		Dst:  frame,
		Src:  image.NewUniform(ParseColor(style.TextColor, color.White)),
		Face: face,
	}
	for i, l := range lines {
		d.Dot = fixed.P((w-l.Width)/2, top+i*lh)
		d.DrawString(l.Text)
	}

	c.logger.Debug("Text frame rendered", zap.Int("size", size), zap.Int("lines", len(lines)))
	return frame, nil
}

// Dim blends frame towards black; opacity 1 returns frame unchanged
func (c *Compositor) Dim(frame image.Image, opacity float64) *image.NRGBA {
	switch {
	case opacity <= 0:
		return c.Blank()
	case opacity >= 1:
		return imaging.Clone(frame)
	}
	return imaging.Overlay(c.Blank(), frame, image.Pt(0, 0), opacity)
}

// ParseColor reads a CSS hex colour; "transparent", empty and malformed
// values give fallback
func ParseColor(s string, fallback color.Color) color.Color {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, Transparent) {
		return fallback
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	col, err := colorful.Hex(s)
	if err != nil {
		return fallback
	}
	return col
}
