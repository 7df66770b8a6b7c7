package domain

import "strconv"

// Category tags every ContentItem with the kind of material it carries
type Category string

const (
	// CategoryScripture is a single Bible verse
	CategoryScripture Category = "scripture"
	// CategorySong is one slide of a song's lyrics
	CategorySong Category = "song"
	// CategoryImage is a full-frame still image
	CategoryImage Category = "image"
	// CategoryVideo is a full-frame video clip
	CategoryVideo Category = "video"
	// CategoryPdf is a single page of a PDF document
	CategoryPdf Category = "pdf"
)

// IsText reports whether the category is rendered as auto-fitted text over a style background
func (c Category) IsText() bool {
	return c == CategoryScripture || c == CategorySong
}

// IsMedia reports whether the category fills the whole frame and bypasses styles
func (c Category) IsMedia() bool {
	return c == CategoryImage || c == CategoryVideo || c == CategoryPdf
}

// FitMode controls how a projected image is scaled into the frame
type FitMode string

const (
	// FitContain scales the image to fit entirely inside the frame (letterboxed)
	FitContain FitMode = "contain"
	// FitCover scales and crops the image to cover the whole frame
	FitCover FitMode = "cover"
	// FitFill stretches the image to the frame, ignoring its aspect ratio
	FitFill FitMode = "fill"
)

// ParseFitMode converts a stored fit mode string, defaulting to FitContain
func ParseFitMode(s string) FitMode {
	switch FitMode(s) {
	case FitCover:
		return FitCover
	case FitFill:
		return FitFill
	default:
		return FitContain
	}
}

// VerseContent is the payload of a scripture item
type VerseContent struct {
	Version string `json:"version"`
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	Verse   int    `json:"verse"`
	Text    string `json:"text"`
}

// SlideContent is the payload of a song slide item
type SlideContent struct {
	SongID    int64  `json:"songId"`
	SongTitle string `json:"songTitle"`
	Index     int    `json:"slideIndex"`
	Text      string `json:"text"`
}

// ImageContent is the payload of an image item
type ImageContent struct {
	Path string  `json:"path"`
	Fit  FitMode `json:"fitMode"`
}

// VideoContent is the payload of a video item
type VideoContent struct {
	Path string `json:"path"`
	Loop bool   `json:"loop"`
}

// PdfContent is the payload of a PDF page item
type PdfContent struct {
	Path string `json:"path"`
	Page int    `json:"pageNumber"`
}

// ContentItem is one unit of projectable material.
// Exactly one payload pointer is set, matching Category.
type ContentItem struct {
	Category Category      `json:"category"`
	Verse    *VerseContent `json:"verse,omitempty"`
	Slide    *SlideContent `json:"slide,omitempty"`
	Image    *ImageContent `json:"image,omitempty"`
	Video    *VideoContent `json:"video,omitempty"`
	Pdf      *PdfContent   `json:"pdf,omitempty"`
}

// NewVerse builds a scripture item
func NewVerse(version, book string, chapter, verse int, text string) ContentItem {
	return ContentItem{
		Category: CategoryScripture,
		Verse:    &VerseContent{Version: version, Book: book, Chapter: chapter, Verse: verse, Text: text},
	}
}

// NewSlide builds a song slide item
func NewSlide(songID int64, title string, index int, text string) ContentItem {
	return ContentItem{
		Category: CategorySong,
		Slide:    &SlideContent{SongID: songID, SongTitle: title, Index: index, Text: text},
	}
}

// NewImage builds an image item
func NewImage(path string, fit FitMode) ContentItem {
	return ContentItem{Category: CategoryImage, Image: &ImageContent{Path: path, Fit: ParseFitMode(string(fit))}}
}

// NewVideo builds a video item
func NewVideo(path string, loop bool) ContentItem {
	return ContentItem{Category: CategoryVideo, Video: &VideoContent{Path: path, Loop: loop}}
}

// NewPdfPage builds a PDF page item
func NewPdfPage(path string, page int) ContentItem {
	if page < 1 {
		page = 1
	}
	return ContentItem{Category: CategoryPdf, Pdf: &PdfContent{Path: path, Page: page}}
}

// Text returns the text to render for text categories, empty otherwise
func (c ContentItem) Text() string {
	switch c.Category {
	case CategoryScripture:
		if c.Verse != nil {
			return c.Verse.Text
		}
	case CategorySong:
		if c.Slide != nil {
			return c.Slide.Text
		}
	}
	return ""
}

// Path returns the media file path for media categories, empty otherwise
func (c ContentItem) Path() string {
	switch c.Category {
	case CategoryImage:
		if c.Image != nil {
			return c.Image.Path
		}
	case CategoryVideo:
		if c.Video != nil {
			return c.Video.Path
		}
	case CategoryPdf:
		if c.Pdf != nil {
			return c.Pdf.Path
		}
	}
	return ""
}

// Reference is the caption shown under projected text: "Juan 3:16" for
// verses and the bare title for songs (no chapter:verse suffix).
func (c ContentItem) Reference() string {
	switch c.Category {
	case CategoryScripture:
		if c.Verse != nil {
			return c.Verse.Book + " " + strconv.Itoa(c.Verse.Chapter) + ":" + strconv.Itoa(c.Verse.Verse)
		}
	case CategorySong:
		if c.Slide != nil {
			return c.Slide.SongTitle
		}
	}
	return ""
}

// StyleSet is the background and text configuration of one text category.
// At most one of BackgroundImage and BackgroundVideo is non-empty.
type StyleSet struct {
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
	BackgroundImage string `json:"backgroundImagePath"`
	BackgroundVideo string `json:"backgroundVideoPath"`
}

// DefaultStyleSet is white text on black
func DefaultStyleSet() StyleSet {
	return StyleSet{BackgroundColor: "#000000", TextColor: "#ffffff"}
}

// StylePair holds both style sets; it always travels whole over the channel
type StylePair struct {
	Scripture StyleSet `json:"scripture"`
	Song      StyleSet `json:"song"`
	Version   uint64   `json:"version"`
}

// DefaultStylePair returns default styles for both categories
func DefaultStylePair() StylePair {
	return StylePair{Scripture: DefaultStyleSet(), Song: DefaultStyleSet()}
}

// VideoAction is a transport command for the video currently on the projector
type VideoAction string

const (
	// VideoPlay resumes playback
	VideoPlay VideoAction = "play"
	// VideoPause pauses playback
	VideoPause VideoAction = "pause"
	// VideoRestart seeks to the start and plays
	VideoRestart VideoAction = "restart"
)

// Valid reports whether the action is one of the known transport commands
func (a VideoAction) Valid() bool {
	return a == VideoPlay || a == VideoPause || a == VideoRestart
}

// Book is a Bible book with its chapter count
type Book struct {
	Name     string `json:"name"`
	Chapters int    `json:"chapters"`
}

// Verse is a stored Bible verse
type Verse struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	Number  int    `json:"verse"`
	Text    string `json:"text"`
}

// Song is a stored song header
type Song struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Key      string `json:"key"`
	Category string `json:"category"`
}

// Slide is one ordered stanza of a stored song
type Slide struct {
	ID    int64  `json:"id"`
	Order int    `json:"order"`
	Text  string `json:"text"`
}

// ImageAsset is a stored image with its preferred fit
type ImageAsset struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Path string  `json:"path"`
	Fit  FitMode `json:"fitMode"`
}

// VideoAsset is a stored video with its loop flag
type VideoAsset struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
	Loop bool   `json:"loop"`
}

// PdfDoc is a stored PDF document
type PdfDoc struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// ChangeKind identifies what part of the library changed
type ChangeKind string

const (
	ChangeSongs       ChangeKind = "songs"
	ChangeSongUpdated ChangeKind = "song-updated"
	ChangeSongDeleted ChangeKind = "song-deleted"
	ChangeImages      ChangeKind = "images"
	ChangeVideos      ChangeKind = "videos"
	ChangePdfs        ChangeKind = "pdfs"
	// ChangeExternal is raised when the database file was modified outside this process
	ChangeExternal ChangeKind = "external"
)

// LibraryChange is the payload of the library-changed signal
type LibraryChange struct {
	Kind ChangeKind `json:"kind"`
	ID   int64      `json:"id,omitempty"`
}

// ScreenResolution holds the display dimensions
type ScreenResolution struct {
	Width  int
	Height int
}
