package processor

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/versecast/internal/config"
	"github.com/genricoloni/versecast/internal/domain"
	"github.com/genricoloni/versecast/internal/textlayout"
	"go.uber.org/zap"
)

var red = color.NRGBA{R: 255, A: 255}

func newTestCompositor(t *testing.T, w, h int) *Compositor {
	t.Helper()
	faces, err := textlayout.NewFaces("")
	if err != nil {
		t.Fatalf("load faces: %v", err)
	}
	return NewCompositor(zap.NewNop(), &domain.ScreenResolution{Width: w, Height: h}, faces)
}

func solid(w, h int, c color.Color) image.Image {
	return imaging.New(w, h, c)
}

func TestCompositor_Media(t *testing.T) {
	tests := []struct {
		name        string
		src         image.Image
		fit         domain.FitMode
		blackCorner bool
		redCenter   bool
	}{
		{name: "contain wide image letterboxes", src: solid(400, 100, red), fit: domain.FitContain, blackCorner: true, redCenter: true},
		{name: "contain small image upscales", src: solid(16, 9, red), fit: domain.FitContain, blackCorner: false, redCenter: true},
		{name: "cover crops to frame", src: solid(400, 100, red), fit: domain.FitCover, blackCorner: false, redCenter: true},
		{name: "fill stretches", src: solid(10, 300, red), fit: domain.FitFill, blackCorner: false, redCenter: true},
		{name: "unknown fit behaves as contain", src: solid(400, 100, red), fit: domain.FitMode("zoom"), blackCorner: true, redCenter: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCompositor(t, 160, 90)
			frame := c.Media(tt.src, tt.fit)

			if b := frame.Bounds(); b.Dx() != 160 || b.Dy() != 90 {
				t.Fatalf("expected 160x90, got %dx%d", b.Dx(), b.Dy())
			}
			corner := frame.NRGBAAt(0, 0)
			if isBlack := corner.R == 0 && corner.G == 0 && corner.B == 0; isBlack != tt.blackCorner {
				t.Errorf("corner %v, expected black=%v", corner, tt.blackCorner)
			}
			if center := frame.NRGBAAt(80, 45); (center.R > 200) != tt.redCenter {
				t.Errorf("center %v, expected red=%v", center, tt.redCenter)
			}
		})
	}
}

func TestCompositor_Text(t *testing.T) {
	c := newTestCompositor(t, 320, 180)
	style := domain.StyleSet{BackgroundColor: "#0000ff", TextColor: "#ffffff"}

	frame, err := c.Text("Dios es amor", 40, style, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := frame.NRGBAAt(0, 0); got.B != 255 || got.R != 0 {
		t.Errorf("expected blue background, got %v", got)
	}

	var lit int
	b := frame.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if p := frame.NRGBAAt(x, y); p.R > 128 && p.G > 128 {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("expected text pixels to be drawn")
	}
}

func TestCompositor_TextBackgrounds(t *testing.T) {
	c := newTestCompositor(t, 160, 90)

	tests := []struct {
		name       string
		style      domain.StyleSet
		background image.Image
		want       color.NRGBA
	}{
		{name: "transparent falls back to black", style: domain.StyleSet{BackgroundColor: Transparent}, want: color.NRGBA{A: 255}},
		{name: "short hex", style: domain.StyleSet{BackgroundColor: "#f00"}, want: red},
		{name: "hex without hash", style: domain.StyleSet{BackgroundColor: "00ff00"}, want: color.NRGBA{G: 255, A: 255}},
		{name: "malformed colour", style: domain.StyleSet{BackgroundColor: "blue-ish"}, want: color.NRGBA{A: 255}},
		{name: "image covers colour", style: domain.StyleSet{BackgroundColor: "#00ff00"}, background: solid(10, 10, red), want: red},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := c.Text("", 40, tt.style, tt.background)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := frame.NRGBAAt(5, 5); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCompositor_Dim(t *testing.T) {
	c := newTestCompositor(t, 20, 20)
	src := solid(20, 20, red)

	if got := c.Dim(src, 0).NRGBAAt(1, 1); got.R != 0 {
		t.Errorf("opacity 0: expected black, got %v", got)
	}
	if got := c.Dim(src, 1).NRGBAAt(1, 1); got != red {
		t.Errorf("opacity 1: expected red, got %v", got)
	}
	if got := c.Dim(src, 0.5).NRGBAAt(1, 1); got.R < 100 || got.R > 160 {
		t.Errorf("opacity 0.5: expected half red, got %v", got)
	}
}

func TestDecode(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "ok.png")
	if err := imaging.Save(solid(4, 3, red), good); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not-an-image"), 0o644); err != nil {
		t.Fatal(err)
	}

	img, err := Decode(good)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("expected 4x3, got %dx%d", b.Dx(), b.Dy())
	}
	if _, err := Decode(bad); err == nil {
		t.Error("expected decode error")
	}
}

func TestFileSink_Write(t *testing.T) {
	cfg := config.Defaults()
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	sink := NewFileSink(zap.NewNop(), cfg)

	for _, c := range []color.NRGBA{red, {B: 255, A: 255}} {
		if err := sink.Write(solid(8, 8, c)); err != nil {
			t.Fatalf("write: %v", err)
		}
		img, err := imaging.Open(sink.Path())
		if err != nil {
			t.Fatalf("open frame: %v", err)
		}
		r, g, b, _ := img.At(0, 0).RGBA()
		wr, wg, wb, _ := c.RGBA()
		if r != wr || g != wg || b != wb {
			t.Errorf("expected %v on disk, got %v", c, img.At(0, 0))
		}
	}

	entries, err := os.ReadDir(cfg.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != FrameFilename {
		t.Errorf("expected only %s in output dir, got %v", FrameFilename, entries)
	}
}
