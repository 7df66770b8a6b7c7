package engine

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/genricoloni/versecast/internal/channel"
	"github.com/genricoloni/versecast/internal/config"
	"github.com/genricoloni/versecast/internal/control"
	"github.com/genricoloni/versecast/internal/domain"
	"github.com/genricoloni/versecast/internal/storage"
	"github.com/genricoloni/versecast/internal/style"
	"go.uber.org/zap"
)

type fakeProbe struct{}

func (fakeProbe) Duration(context.Context, string) (time.Duration, error) { return time.Second, nil }

type fakeWindow struct {
	mu       sync.Mutex
	calls    []string
	openErr  error
	closeErr error
}

func (w *fakeWindow) OpenProjector(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, "open")
	return w.openErr
}

func (w *fakeWindow) CloseProjector(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, "close")
	return w.closeErr
}

type fakeCloser struct {
	name  string
	err   error
	order *[]string
}

func (c fakeCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

// idleWatcher blocks until cancelled, like the fsnotify watcher with no external writes
type idleWatcher struct{}

func (idleWatcher) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

type fixture struct {
	engine  *Engine
	store   *storage.Store
	bus     *channel.Bus
	tracker *control.Tracker
	styles  *style.Resolver
	window  *fakeWindow
}

func newFixture(t *testing.T, watcher LibraryWatcher, closers ...fakeCloser) *fixture {
	t.Helper()
	logger := zap.NewNop()
	bus := channel.NewBus(logger)

	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.OutputDir = t.TempDir()
	store, err := storage.Open(logger, bus, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if watcher == nil {
		watcher = storage.NewWatcher(logger, store, bus, 50*time.Millisecond)
	}
	tracker := control.NewTracker(logger, store, bus, cfg)
	styles := style.NewResolver(logger, bus, fakeProbe{}, cfg)
	window := &fakeWindow{}

	f := &fixture{store: store, bus: bus, tracker: tracker, styles: styles, window: window}
	f.engine = NewEngine(logger, tracker, styles, window, watcher, bus, asClosers(closers)...)
	return f
}

func asClosers(fs []fakeCloser) []io.Closer {
	out := make([]io.Closer, 0, len(fs))
	for _, c := range fs {
		out = append(out, c)
	}
	return out
}

func TestEngine_StartSelectsVersion(t *testing.T) {
	f := newFixture(t, idleWatcher{})
	ctx := context.Background()

	if err := f.store.ImportVersion(ctx, "NVI", []domain.Verse{{Book: "Rut", Chapter: 1, Number: 1, Text: "En los días"}}); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer f.engine.Stop(ctx)

	if got := f.tracker.Version(); got != "NVI" {
		t.Errorf("Version() = %q, want NVI", got)
	}
}

func TestEngine_LibraryChangesReachTracker(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if err := f.engine.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer f.engine.Stop(ctx)

	id, err := f.store.AddSong(ctx, "Cuán grande es Él", "first\n\nsecond")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.tracker.LoadSong(ctx, domain.Song{ID: id, Title: "Cuán grande es Él"}); err != nil {
		t.Fatal(err)
	}
	if got := len(f.tracker.List()); got != 2 {
		t.Fatalf("loaded %d slides, want 2", got)
	}

	if err := f.store.UpdateSong(ctx, id, "Cuán grande es Él", "one\n\ntwo\n\nthree"); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for len(f.tracker.List()) != 3 {
		if time.Now().After(deadline) {
			t.Fatalf("edited song was not reloaded, list has %d slides", len(f.tracker.List()))
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := f.store.DeleteSong(ctx, id); err != nil {
		t.Fatal(err)
	}
	deadline = time.Now().Add(3 * time.Second)
	for len(f.tracker.List()) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("deleted song is still loaded")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEngine_OpenProjectorResends(t *testing.T) {
	f := newFixture(t, idleWatcher{})
	ctx := context.Background()

	live := f.bus.Subscribe(channel.TopicLive)
	styles := f.bus.Subscribe(channel.TopicStyles)

	if err := f.tracker.Project(ctx, domain.NewImage("/media/cross.png", domain.FitCover)); err != nil {
		t.Fatal(err)
	}
	<-live.C()

	if err := f.engine.OpenProjector(ctx); err != nil {
		t.Fatalf("OpenProjector failed: %v", err)
	}

	select {
	case env := <-styles.C():
		if _, err := channel.Decode[domain.StylePair](env); err != nil {
			t.Errorf("styles payload: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("styles were not broadcast")
	}
	select {
	case env := <-live.C():
		item, err := channel.Decode[domain.ContentItem](env)
		if err != nil || item.Path() != "/media/cross.png" {
			t.Errorf("resent %+v, %v", item, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("live item was not resent")
	}

	if err := f.engine.CloseProjector(ctx); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(f.window.calls, ","); got != "open,close" {
		t.Errorf("window calls = %s", got)
	}
}

func TestEngine_OpenProjectorFailure(t *testing.T) {
	f := newFixture(t, idleWatcher{})
	f.window.openErr = errors.New("no display")
	live := f.bus.Subscribe(channel.TopicLive)

	if err := f.engine.OpenProjector(context.Background()); err == nil {
		t.Fatal("Expected error, got nil")
	}
	select {
	case <-live.C():
		t.Error("nothing should be resent when the projector did not open")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEngine_Stop(t *testing.T) {
	var order []string

	tests := []struct {
		name          string
		closeErr      error
		closers       []fakeCloser
		expectedOrder string
		expectedError string
	}{
		{
			name: "ClosesInOrder",
			closers: []fakeCloser{
				{name: "player", order: &order},
				{name: "store", order: &order},
			},
			expectedOrder: "player,store",
		},
		{
			name:     "CombinesErrors",
			closeErr: errors.New("projector stuck"),
			closers: []fakeCloser{
				{name: "player", err: errors.New("mpv gone"), order: &order},
				{name: "store", order: &order},
			},
			expectedOrder: "player,store",
			expectedError: "projector stuck; mpv gone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order = nil
			f := newFixture(t, idleWatcher{}, tt.closers...)
			f.window.closeErr = tt.closeErr
			ctx := context.Background()

			if err := f.engine.Start(ctx); err != nil {
				t.Fatal(err)
			}
			err := f.engine.Stop(ctx)

			if tt.expectedError != "" {
				if err == nil || !strings.Contains(err.Error(), tt.expectedError) {
					t.Errorf("Expected error containing %q, got %v", tt.expectedError, err)
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if got := strings.Join(order, ","); got != tt.expectedOrder {
				t.Errorf("close order = %s, want %s", got, tt.expectedOrder)
			}
			if got := f.window.calls; len(got) != 1 || got[0] != "close" {
				t.Errorf("window calls = %v, want [close]", got)
			}
		})
	}
}
