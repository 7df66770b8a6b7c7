package control

import (
	"context"

	"github.com/genricoloni/versecast/internal/domain"
)

// Key is a navigation key from the operator
type Key string

const (
	KeyDown Key = "ArrowDown"
	KeyUp   Key = "ArrowUp"
)

// Focus describes where keyboard focus is in the control surface
type Focus string

const (
	FocusNone     Focus = ""
	FocusInput    Focus = "input"
	FocusTextArea Focus = "textarea"
)

// IsText reports whether keys are being typed into a text field
func (f Focus) IsText() bool {
	return f == FocusInput || f == FocusTextArea
}

// HandleKey moves to the next or previous item of the loaded list and
// projects it. Keys are ignored while a text field has focus, when nothing
// is previewed, when the preview is media, or at the list bounds.
// It reports whether something was projected.
func (t *Tracker) HandleKey(ctx context.Context, key Key, focus Focus) (bool, error) {
	if focus.IsText() {
		return false, nil
	}

	t.mu.Lock()
	list := t.list
	preview := t.preview
	t.mu.Unlock()

	if len(list) == 0 || preview == nil || preview.Category.IsMedia() {
		return false, nil
	}
	idx := domain.IndexOf(list, *preview)
	if idx < 0 {
		return false, nil
	}

	next := idx
	switch key {
	case KeyDown:
		next++
	case KeyUp:
		next--
	default:
		return false, nil
	}
	if next < 0 || next >= len(list) {
		return false, nil
	}
	if err := t.Project(ctx, list[next]); err != nil {
		return false, err
	}
	return true, nil
}
