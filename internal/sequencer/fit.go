package sequencer

import "github.com/genricoloni/versecast/internal/domain"

const (
	// MinFontSize and MaxFontSize bound the autofit search, in pixels
	MinFontSize = 20
	MaxFontSize = 300
	// SafetyMargin is subtracted from the largest fitting size against sub-pixel overflow
	SafetyMargin = 2
)

// Box is the area available to projected text, in pixels
type Box struct {
	W int
	H int
}

// Fits reports whether text wrapped at size stays inside box
func Fits(m domain.TextMeasurer, text string, size int, box Box) bool {
	w, h := m.Measure(text, size, box.W)
	return w <= box.W && h <= box.H
}

// Fit returns the font size for text in box: the largest size in
// [MinFontSize, MaxFontSize] that fits, less SafetyMargin. When nothing fits
// the result is MinFontSize-SafetyMargin. The measurer must be monotonic.
func Fit(m domain.TextMeasurer, text string, box Box) int {
	lo, hi, best := MinFontSize, MaxFontSize, MinFontSize
	for lo <= hi {
		mid := (lo + hi) / 2
		if Fits(m, text, mid, box) {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best - SafetyMargin
}
