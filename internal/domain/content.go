package domain

import "errors"

var (
	// ErrNotFound is returned when a verse, chapter or song does not exist
	ErrNotFound = errors.New("not found")
	// ErrBadQuery is returned for search input that does not parse as "book chapter[:verse]"
	ErrBadQuery = errors.New("malformed reference")
	// ErrVideoTooLong is returned when a background video exceeds the duration cap
	ErrVideoTooLong = errors.New("background video too long")
)

// Classify returns the category of an item
func Classify(item ContentItem) Category {
	return item.Category
}

// textKey is the identity of a text item: (book or song title, chapter, verse or slide index).
// Songs always use chapter 0.
type textKey struct {
	book    string
	chapter int
	index   int
}

func keyOf(item ContentItem) (textKey, bool) {
	switch item.Category {
	case CategoryScripture:
		if item.Verse == nil {
			return textKey{}, false
		}
		return textKey{book: item.Verse.Book, chapter: item.Verse.Chapter, index: item.Verse.Verse}, true
	case CategorySong:
		if item.Slide == nil {
			return textKey{}, false
		}
		return textKey{book: item.Slide.SongTitle, chapter: 0, index: item.Slide.Index}, true
	}
	return textKey{}, false
}

func isPlainMedia(c Category) bool {
	return c == CategoryImage || c == CategoryVideo
}

// Equal reports whether two items are "the same slide" for live, favorite and
// highlight matching. Images and videos match on path alone; PDF pages on
// path and page; text items on (book-or-title, chapter, verse-or-index).
func Equal(a, b ContentItem) bool {
	if isPlainMedia(a.Category) || isPlainMedia(b.Category) {
		if !isPlainMedia(a.Category) || !isPlainMedia(b.Category) {
			return false
		}
		return a.Path() == b.Path()
	}
	if a.Category == CategoryPdf || b.Category == CategoryPdf {
		if a.Category != b.Category || a.Pdf == nil || b.Pdf == nil {
			return false
		}
		return a.Pdf.Path == b.Pdf.Path && a.Pdf.Page == b.Pdf.Page
	}
	ka, okA := keyOf(a)
	kb, okB := keyOf(b)
	return okA && okB && ka == kb
}

// IndexOf returns the position of item in list by Equal, or -1
func IndexOf(list []ContentItem, item ContentItem) int {
	for i := range list {
		if Equal(list[i], item) {
			return i
		}
	}
	return -1
}
