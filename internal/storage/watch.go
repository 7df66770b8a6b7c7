package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/genricoloni/versecast/internal/channel"
	"github.com/genricoloni/versecast/internal/domain"
	"go.uber.org/zap"
)

// DefaultWatchDebounce groups the burst of events one sqlite commit produces
const DefaultWatchDebounce = 500 * time.Millisecond

// Watcher reports library changes made by other processes, such as a
// second operator station sharing the data directory
type Watcher struct {
	logger   *zap.Logger
	store    *Store
	pub      channel.Publisher
	debounce time.Duration
}

// NewWatcher creates a watcher for store's database file
func NewWatcher(logger *zap.Logger, store *Store, pub channel.Publisher, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	return &Watcher{logger: logger, store: store, pub: pub, debounce: debounce}
}

// Run watches until ctx is cancelled. Events within the debounce window of a
// write made through the store are attributed to this process and ignored.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	// Watch the directory: sqlite writes the -wal and -shm siblings, not just the main file
	dir := filepath.Dir(w.store.Path())
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	base := filepath.Base(w.store.Path())
	w.logger.Info("Watching library for external changes", zap.String("dir", dir))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if time.Since(w.store.LastWrite()) < w.debounce {
				continue
			}
			pending = true
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Library watcher error", zap.Error(err))

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			w.logger.Info("Library changed on disk")
			w.pub.Publish(ctx, channel.TopicLibrary, domain.LibraryChange{Kind: domain.ChangeExternal})
		}
	}
}
