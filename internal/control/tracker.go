// Package control holds the operator-side live state: what is projected,
// which chapter or song is loaded, favorites and search.
package control

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/genricoloni/versecast/internal/channel"
	"github.com/genricoloni/versecast/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ChapterContext identifies the list loaded in the control surface.
// SongID is non-zero when a song is loaded instead of a Bible chapter.
type ChapterContext struct {
	Version string
	Book    string
	Chapter int
	SongID  int64
}

// IsSong reports whether the loaded list is a song
func (c ChapterContext) IsSong() bool {
	return c.SongID != 0
}

// Tracker is the control surface's live state.
// Library I/O never runs under the state lock.
type Tracker struct {
	logger *zap.Logger
	lib    domain.Library
	pub    channel.Publisher
	group  singleflight.Group

	mu        sync.Mutex
	version   string
	active    *domain.ContentItem
	preview   *domain.ContentItem
	loaded    ChapterContext
	list      []domain.ContentItem
	favorites []Favorite
	chapters  map[string][]domain.ContentItem
	songs     map[int64][]domain.ContentItem
	books     map[string][]domain.Book
	onScroll  func(index int)
}

// NewTracker creates a tracker using the configured default version
func NewTracker(logger *zap.Logger, lib domain.Library, pub channel.Publisher, cfg domain.Config) *Tracker {
	return &Tracker{
		logger:   logger,
		lib:      lib,
		pub:      pub,
		version:  cfg.GetDefaultVersion(),
		chapters: make(map[string][]domain.ContentItem),
		songs:    make(map[int64][]domain.ContentItem),
		books:    make(map[string][]domain.Book),
	}
}

// Init selects the first installed version when none is configured
func (t *Tracker) Init(ctx context.Context) error {
	if t.Version() != "" {
		return nil
	}
	versions, err := t.lib.Versions(ctx)
	if err != nil {
		return fmt.Errorf("list versions: %w", err)
	}
	if len(versions) == 0 {
		t.logger.Warn("No Bible versions installed")
		return nil
	}
	sorted := slices.Clone(versions)
	sort.Strings(sorted)

	t.mu.Lock()
	t.version = sorted[0]
	t.mu.Unlock()
	t.logger.Info("Bible version selected", zap.String("version", sorted[0]))
	return nil
}

// OnScroll registers the callback told which list row became live
func (t *Tracker) OnScroll(fn func(index int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onScroll = fn
}

// Version returns the active Bible version
func (t *Tracker) Version() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.version
}

// Active returns the item last sent to the projector
func (t *Tracker) Active() (domain.ContentItem, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return domain.ContentItem{}, false
	}
	return *t.active, true
}

// Preview returns the highlighted item navigation starts from
func (t *Tracker) Preview() (domain.ContentItem, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.preview == nil {
		return domain.ContentItem{}, false
	}
	return *t.preview, true
}

// Loaded returns the context of the loaded list
func (t *Tracker) Loaded() ChapterContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded
}

// List returns the loaded chapter verses or song slides
func (t *Tracker) List() []domain.ContentItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.list)
}

// Project sends item live. A verse from a chapter other than the loaded one
// loads that chapter first; if the verse does not exist nothing is sent.
func (t *Tracker) Project(ctx context.Context, item domain.ContentItem) error {
	if item.Category == domain.CategoryScripture {
		resolved, err := t.resolveVerse(ctx, item)
		if err != nil {
			return err
		}
		item = resolved
	}

	t.pub.Publish(ctx, channel.TopicLive, item)

	t.mu.Lock()
	t.active = &item
	t.preview = &item
	idx := domain.IndexOf(t.list, item)
	scroll := t.onScroll
	t.mu.Unlock()

	t.logger.Info("Projecting",
		zap.String("category", string(item.Category)),
		zap.String("reference", item.Reference()),
		zap.String("path", item.Path()))

	if scroll != nil && idx >= 0 && item.Category.IsText() {
		scroll(idx)
	}
	return nil
}

// resolveVerse makes sure the verse's chapter is loaded and returns the
// stored verse with its version filled in
func (t *Tracker) resolveVerse(ctx context.Context, item domain.ContentItem) (domain.ContentItem, error) {
	if item.Verse == nil {
		return item, fmt.Errorf("scripture item without verse: %w", domain.ErrNotFound)
	}
	v := *item.Verse
	if v.Version == "" {
		v.Version = t.Version()
	}

	t.mu.Lock()
	loaded := t.loaded
	t.mu.Unlock()
	if loaded.IsSong() || loaded.Version != v.Version || loaded.Book != v.Book || loaded.Chapter != v.Chapter {
		if err := t.LoadChapter(ctx, v.Version, v.Book, v.Chapter); err != nil {
			return item, err
		}
	}

	want := domain.NewVerse(v.Version, v.Book, v.Chapter, v.Verse, v.Text)
	t.mu.Lock()
	idx := domain.IndexOf(t.list, want)
	var stored domain.ContentItem
	if idx >= 0 {
		stored = t.list[idx]
	}
	t.mu.Unlock()

	if idx < 0 {
		t.logger.Warn("Verse not found",
			zap.String("book", v.Book),
			zap.Int("chapter", v.Chapter),
			zap.Int("verse", v.Verse))
		return item, fmt.Errorf("%s %d:%d: %w", v.Book, v.Chapter, v.Verse, domain.ErrNotFound)
	}
	return stored, nil
}

// LoadChapter makes a Bible chapter the loaded list
func (t *Tracker) LoadChapter(ctx context.Context, version, book string, chapter int) error {
	items, err := t.chapterItems(ctx, version, book, chapter)
	if err != nil {
		t.logger.Error("Failed to load chapter",
			zap.String("version", version),
			zap.String("book", book),
			zap.Int("chapter", chapter),
			zap.Error(err))
		return err
	}

	t.mu.Lock()
	t.list = items
	t.loaded = ChapterContext{Version: version, Book: book, Chapter: chapter}
	t.mu.Unlock()

	t.logger.Debug("Chapter loaded",
		zap.String("book", book),
		zap.Int("chapter", chapter),
		zap.Int("verses", len(items)))
	return nil
}

// LoadSong makes a song's slides the loaded list
func (t *Tracker) LoadSong(ctx context.Context, song domain.Song) error {
	items, err := t.songItems(ctx, song)
	if err != nil {
		t.logger.Error("Failed to load song",
			zap.Int64("songId", song.ID),
			zap.String("title", song.Title),
			zap.Error(err))
		return err
	}

	t.mu.Lock()
	t.list = items
	t.loaded = ChapterContext{Book: song.Title, SongID: song.ID}
	t.mu.Unlock()
	return nil
}

// SetVersion switches the Bible version and reloads the loaded chapter in it
func (t *Tracker) SetVersion(ctx context.Context, version string) error {
	t.mu.Lock()
	t.version = version
	loaded := t.loaded
	t.mu.Unlock()

	t.logger.Info("Bible version changed", zap.String("version", version))
	if loaded.IsSong() || loaded.Book == "" || loaded.Chapter <= 0 {
		return nil
	}
	return t.LoadChapter(ctx, version, loaded.Book, loaded.Chapter)
}

func chapterKey(version, book string, chapter int) string {
	return fmt.Sprintf("%s-%s-%d", version, book, chapter)
}

func (t *Tracker) chapterItems(ctx context.Context, version, book string, chapter int) ([]domain.ContentItem, error) {
	key := chapterKey(version, book, chapter)
	t.mu.Lock()
	cached, ok := t.chapters[key]
	t.mu.Unlock()
	if ok {
		return cached, nil
	}

	v, err, _ := t.group.Do("chapter:"+key, func() (any, error) {
		verses, err := t.lib.ChapterVerses(ctx, version, book, chapter)
		if err != nil {
			return nil, fmt.Errorf("load %s %d: %w", book, chapter, err)
		}
		if len(verses) == 0 {
			return nil, fmt.Errorf("%s %d: %w", book, chapter, domain.ErrNotFound)
		}
		items := make([]domain.ContentItem, 0, len(verses))
		for _, v := range verses {
			items = append(items, domain.NewVerse(version, book, chapter, v.Number, v.Text))
		}

		t.mu.Lock()
		t.chapters[key] = items
		t.mu.Unlock()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.ContentItem), nil
}

func (t *Tracker) songItems(ctx context.Context, song domain.Song) ([]domain.ContentItem, error) {
	t.mu.Lock()
	cached, ok := t.songs[song.ID]
	t.mu.Unlock()
	if ok {
		return cached, nil
	}

	v, err, _ := t.group.Do(fmt.Sprintf("song:%d", song.ID), func() (any, error) {
		slides, err := t.lib.SongSlides(ctx, song.ID)
		if err != nil {
			return nil, fmt.Errorf("load song %d: %w", song.ID, err)
		}
		if len(slides) == 0 {
			return nil, fmt.Errorf("song %d: %w", song.ID, domain.ErrNotFound)
		}
		items := make([]domain.ContentItem, 0, len(slides))
		for _, s := range slides {
			items = append(items, domain.NewSlide(song.ID, song.Title, s.Order, s.Text))
		}

		t.mu.Lock()
		t.songs[song.ID] = items
		t.mu.Unlock()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.ContentItem), nil
}

// Resend publishes the active item again, used when the projector (re)opens
func (t *Tracker) Resend(ctx context.Context) bool {
	item, ok := t.Active()
	if !ok {
		return false
	}
	t.pub.Publish(ctx, channel.TopicLive, item)
	return true
}

// VideoControl sends a transport command to the projected video
func (t *Tracker) VideoControl(ctx context.Context, action domain.VideoAction) error {
	if !action.Valid() {
		return fmt.Errorf("unknown video action %q", action)
	}
	t.pub.Publish(ctx, channel.TopicVideo, action)
	return nil
}

// SetImageFit stores a new fit mode and re-projects the image if it is live
func (t *Tracker) SetImageFit(ctx context.Context, img domain.ImageAsset, fit domain.FitMode) error {
	if err := t.lib.UpdateImageFit(ctx, img.ID, fit); err != nil {
		t.logger.Error("Failed to update image fit", zap.Int64("imageId", img.ID), zap.Error(err))
		return err
	}
	if t.isLive(domain.CategoryImage, img.Path) {
		return t.Project(ctx, domain.NewImage(img.Path, fit))
	}
	return nil
}

// SetVideoLoop stores a new loop flag and re-projects the video if it is live
func (t *Tracker) SetVideoLoop(ctx context.Context, vid domain.VideoAsset, loop bool) error {
	if err := t.lib.UpdateVideoLoop(ctx, vid.ID, loop); err != nil {
		t.logger.Error("Failed to update video loop", zap.Int64("videoId", vid.ID), zap.Error(err))
		return err
	}
	if t.isLive(domain.CategoryVideo, vid.Path) {
		return t.Project(ctx, domain.NewVideo(vid.Path, loop))
	}
	return nil
}

func (t *Tracker) isLive(c domain.Category, path string) bool {
	item, ok := t.Active()
	return ok && item.Category == c && item.Path() == path
}
