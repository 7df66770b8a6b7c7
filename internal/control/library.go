package control

import (
	"context"

	"github.com/genricoloni/versecast/internal/channel"
	"github.com/genricoloni/versecast/internal/domain"
	"go.uber.org/zap"
)

// OnLibraryChanged refreshes state after a storage write.
// An edited song that is loaded is reloaded and its preview cleared; a
// deleted song that is loaded is unloaded and its favorites dropped. An
// external change drops every cache and reloads the loaded list.
func (t *Tracker) OnLibraryChanged(ctx context.Context, change domain.LibraryChange) {
	t.logger.Debug("Library changed", zap.String("kind", string(change.Kind)), zap.Int64("id", change.ID))

	switch change.Kind {
	case domain.ChangeSongUpdated:
		t.mu.Lock()
		delete(t.songs, change.ID)
		loaded := t.loaded
		t.mu.Unlock()
		if loaded.SongID == change.ID {
			t.reloadSong(ctx, change.ID)
		}

	case domain.ChangeSongDeleted:
		t.unloadSong(change.ID)

	case domain.ChangeSongs:
		t.mu.Lock()
		t.songs = make(map[int64][]domain.ContentItem)
		t.mu.Unlock()

	case domain.ChangeExternal:
		t.mu.Lock()
		t.chapters = make(map[string][]domain.ContentItem)
		t.songs = make(map[int64][]domain.ContentItem)
		t.books = make(map[string][]domain.Book)
		loaded := t.loaded
		t.mu.Unlock()
		t.reloadLoaded(ctx, loaded)
	}
}

func (t *Tracker) unloadSong(id int64) {
	t.mu.Lock()
	delete(t.songs, id)
	if t.loaded.SongID == id {
		t.list = nil
		t.loaded = ChapterContext{}
		t.preview = nil
	}
	t.mu.Unlock()
	t.dropSongFavorites(id)
}

// reloadLoaded re-reads the loaded chapter or song from the library. A song
// that no longer exists is unloaded.
func (t *Tracker) reloadLoaded(ctx context.Context, loaded ChapterContext) {
	switch {
	case loaded.IsSong():
		songs, err := t.lib.Songs(ctx)
		if err != nil {
			t.logger.Error("Failed to list songs", zap.Error(err))
			return
		}
		for _, s := range songs {
			if s.ID == loaded.SongID {
				_ = t.LoadSong(ctx, s)
				return
			}
		}
		t.unloadSong(loaded.SongID)

	case loaded.Book != "" && loaded.Chapter > 0:
		_ = t.LoadChapter(ctx, loaded.Version, loaded.Book, loaded.Chapter)
	}
}

func (t *Tracker) reloadSong(ctx context.Context, id int64) {
	songs, err := t.lib.Songs(ctx)
	if err != nil {
		t.logger.Error("Failed to list songs", zap.Error(err))
		return
	}
	for _, s := range songs {
		if s.ID != id {
			continue
		}
		if err := t.LoadSong(ctx, s); err != nil {
			return
		}
		t.mu.Lock()
		t.preview = nil
		t.mu.Unlock()
		return
	}
}

// Watch applies library-changed signals from sub until ctx is cancelled or
// the subscription closes
func (t *Tracker) Watch(ctx context.Context, sub *channel.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.C():
			if !ok {
				return
			}
			change, err := channel.Decode[domain.LibraryChange](env)
			if err != nil {
				t.logger.Warn("Malformed library change", zap.Error(err))
				continue
			}
			t.OnLibraryChanged(ctx, change)
		}
	}
}
