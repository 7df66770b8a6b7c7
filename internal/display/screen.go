package display

import (
	"image"

	"github.com/genricoloni/versecast/internal/domain"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

var fallbackBounds = image.Rect(0, 0, 1920, 1080)

// Projector is the display the projector surface goes fullscreen on
type Projector struct {
	Index  int
	Bounds image.Rectangle
}

// selectIndex picks the projector display among n active displays.
// A valid configured index wins; otherwise the second display is used when
// more than one is attached, so the operator keeps the first.
func selectIndex(n, configured int) int {
	if configured >= 0 && configured < n {
		return configured
	}
	if n > 1 {
		return 1
	}
	return 0
}

// DetectProjector chooses the projector display at startup
func DetectProjector(logger *zap.Logger, cfg domain.Config) Projector {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		logger.Warn("No active displays detected, falling back to 1920x1080")
		return Projector{Index: 0, Bounds: fallbackBounds}
	}

	configured := cfg.GetProjectorDisplay()
	idx := selectIndex(n, configured)
	if configured >= n {
		logger.Warn("Configured projector display is not attached",
			zap.Int("configured", configured),
			zap.Int("displays", n))
	}

	p := Projector{Index: idx, Bounds: screenshot.GetDisplayBounds(idx)}
	if p.Bounds.Empty() {
		p.Bounds = fallbackBounds
	}

	logger.Info("Projector display selected",
		zap.Int("index", p.Index),
		zap.Int("displays", n),
		zap.Int("width", p.Bounds.Dx()),
		zap.Int("height", p.Bounds.Dy()))

	return p
}

// NewScreenResolution returns the frame size of the projector display
func NewScreenResolution(p Projector) *domain.ScreenResolution {
	return &domain.ScreenResolution{
		Width:  p.Bounds.Dx(),
		Height: p.Bounds.Dy(),
	}
}
