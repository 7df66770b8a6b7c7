package domain

import (
	"context"
	"time"
)

// Bible defines read access to the scripture library
//
//go:generate mockgen -destination=mocks/bible_mock.go -package=mocks github.com/genricoloni/versecast/internal/domain Bible
type Bible interface {
	// Versions lists the installed Bible versions
	Versions(ctx context.Context) ([]string, error)

	// Books lists the books of a version in canonical order
	Books(ctx context.Context, version string) ([]Book, error)

	// ChapterVerses returns the verses of a chapter ordered by verse number
	ChapterVerses(ctx context.Context, version, book string, chapter int) ([]Verse, error)

	// Verse fetches a single verse, returning ErrNotFound if absent
	Verse(ctx context.Context, version, book string, chapter, verse int) (Verse, error)
}

// Songbook defines access to stored songs
type Songbook interface {
	Songs(ctx context.Context) ([]Song, error)
	SongSlides(ctx context.Context, songID int64) ([]Slide, error)
	AddSong(ctx context.Context, title, lyrics string) (int64, error)
	UpdateSong(ctx context.Context, id int64, title, lyrics string) error
	DeleteSong(ctx context.Context, id int64) error
}

// MediaStore defines access to stored images, videos and PDF documents
type MediaStore interface {
	Images(ctx context.Context) ([]ImageAsset, error)
	AddImage(ctx context.Context, name, path string) (int64, error)
	UpdateImageFit(ctx context.Context, id int64, fit FitMode) error
	DeleteImage(ctx context.Context, id int64) error

	Videos(ctx context.Context) ([]VideoAsset, error)
	AddVideo(ctx context.Context, name, path string) (int64, error)
	UpdateVideoLoop(ctx context.Context, id int64, loop bool) error
	DeleteVideo(ctx context.Context, id int64) error

	Pdfs(ctx context.Context) ([]PdfDoc, error)
	AddPdf(ctx context.Context, name, path string) (int64, error)
	DeletePdf(ctx context.Context, id int64) error
}

// Library is the full storage collaborator
type Library interface {
	Bible
	Songbook
	MediaStore
}

// MediaResolver converts a stored path into something the renderer can open
type MediaResolver interface {
	Resolve(ctx context.Context, path string) (string, error)
}

// WindowController opens and closes the projector surface
type WindowController interface {
	OpenProjector(ctx context.Context) error
	CloseProjector(ctx context.Context) error
}

// TextMeasurer reports the wrapped extent of text at a font size.
// Implementations must be monotonic: if text fits a box at size S it fits at every smaller size.
type TextMeasurer interface {
	Measure(text string, size, maxWidth int) (width, height int)
}

// VideoPlayer plays a single full-frame video on the projector display
type VideoPlayer interface {
	// Load starts playing path, replacing any current video
	Load(ctx context.Context, path string, loop bool) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	// Restart seeks to the beginning and plays; the loop flag is preserved
	Restart(ctx context.Context) error
	// Stop terminates playback; it is a no-op when nothing plays
	Stop(ctx context.Context) error
}

// DurationProbe reports the running time of a media file
type DurationProbe interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Config defines the interface for application configuration
type Config interface {
	// GetOutputDir returns the directory projector frames are written to
	GetOutputDir() string

	// GetDataDir returns the directory holding the library database
	GetDataDir() string

	// GetFadeDelay returns the fade-out delay of the transition sequencer
	GetFadeDelay() time.Duration

	// GetProjectorDisplay returns the display index for the projector, -1 for automatic
	GetProjectorDisplay() int

	// GetFontPath returns an optional TTF/OTF font file for projected text
	GetFontPath() string

	// GetMaxBackgroundVideo returns the longest accepted background video
	GetMaxBackgroundVideo() time.Duration

	// GetDefaultVersion returns the Bible version selected at startup
	GetDefaultVersion() string
}
