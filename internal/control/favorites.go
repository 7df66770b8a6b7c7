package control

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/genricoloni/versecast/internal/domain"
	"go.uber.org/zap"
)

// SongLabel marks favorites that are songs rather than verses
const SongLabel = "SONG"

// Favorite is a bookmarked item. Whole-song favorites carry Song and
// re-load the song instead of projecting a single slide.
type Favorite struct {
	Item  domain.ContentItem
	Label string
	Song  *domain.Song
}

var parenthesised = regexp.MustCompile(`\((.*?)\)`)

// shortVersion turns "Reina Valera 1960 (RVR1960)" into "RVR1960"
func shortVersion(name string) string {
	if m := parenthesised.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	r := []rune(name)
	if len(r) > 3 {
		r = r[:3]
	}
	return strings.ToUpper(string(r))
}

func labelFor(item domain.ContentItem) string {
	switch item.Category {
	case domain.CategoryScripture:
		if item.Verse != nil {
			return shortVersion(item.Verse.Version)
		}
	case domain.CategorySong:
		return SongLabel
	}
	return strings.ToUpper(string(item.Category))
}

// ToggleFavorite removes the favorite equal to item, or appends item if
// there is none. It reports whether item is now a favorite.
func (t *Tracker) ToggleFavorite(item domain.ContentItem) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, f := range t.favorites {
		if f.Song == nil && domain.Equal(f.Item, item) {
			t.favorites = slices.Delete(t.favorites, i, i+1)
			return false
		}
	}
	t.favorites = append(t.favorites, Favorite{Item: item, Label: labelFor(item)})
	return true
}

// ToggleSongFavorite bookmarks or un-bookmarks a whole song by ID
func (t *Tracker) ToggleSongFavorite(song domain.Song) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, f := range t.favorites {
		if f.Song != nil && f.Song.ID == song.ID {
			t.favorites = slices.Delete(t.favorites, i, i+1)
			return false
		}
	}
	s := song
	t.favorites = append(t.favorites, Favorite{
		Item:  domain.NewSlide(song.ID, song.Title, 1, ""),
		Label: SongLabel,
		Song:  &s,
	})
	return true
}

// Favorites returns the favorites in insertion order
func (t *Tracker) Favorites() []Favorite {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.favorites)
}

// IsFavorite reports whether an equal item is bookmarked
func (t *Tracker) IsFavorite(item domain.ContentItem) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.ContainsFunc(t.favorites, func(f Favorite) bool {
		return f.Song == nil && domain.Equal(f.Item, item)
	})
}

// RemoveFavoriteAt deletes the i-th favorite
func (t *Tracker) RemoveFavoriteAt(i int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.favorites) {
		return fmt.Errorf("favorite %d out of range (have %d)", i, len(t.favorites))
	}
	t.favorites = slices.Delete(t.favorites, i, i+1)
	return nil
}

// ClearFavorites empties the list
func (t *Tracker) ClearFavorites() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.favorites = nil
}

// ProjectFavorite loads a song favorite or projects an item favorite
func (t *Tracker) ProjectFavorite(ctx context.Context, fav Favorite) error {
	if fav.Song != nil {
		return t.LoadSong(ctx, *fav.Song)
	}
	return t.Project(ctx, fav.Item)
}

func (t *Tracker) dropSongFavorites(songID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	before := len(t.favorites)
	t.favorites = slices.DeleteFunc(t.favorites, func(f Favorite) bool {
		if f.Song != nil {
			return f.Song.ID == songID
		}
		return f.Item.Slide != nil && f.Item.Slide.SongID == songID
	})
	if removed := before - len(t.favorites); removed > 0 {
		t.logger.Debug("Favorites of deleted song dropped",
			zap.Int64("songId", songID),
			zap.Int("removed", removed))
	}
}
