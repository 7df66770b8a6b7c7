package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/genricoloni/versecast/internal/channel"
	"github.com/genricoloni/versecast/internal/config"
	"github.com/genricoloni/versecast/internal/domain"
	"go.uber.org/zap"
)

var _ domain.Library = (*Store)(nil)

func openTestStore(t *testing.T) (*Store, *channel.Subscription) {
	t.Helper()
	bus := channel.NewBus(zap.NewNop())
	t.Cleanup(bus.Close)
	sub := bus.Subscribe(channel.TopicLibrary)

	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	s, err := Open(zap.NewNop(), bus, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, sub
}

func nextChange(t *testing.T, sub *channel.Subscription) domain.LibraryChange {
	t.Helper()
	select {
	case env := <-sub.C():
		c, err := channel.Decode[domain.LibraryChange](env)
		if err != nil {
			t.Fatal(err)
		}
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("Timeout: no library change published")
	}
	return domain.LibraryChange{}
}

func seedBible(t *testing.T, s *Store) {
	t.Helper()
	var verses []domain.Verse
	for _, book := range []struct {
		name     string
		chapters int
	}{{"Génesis", 2}, {"Rut", 4}, {"Juan", 3}} {
		for c := 1; c <= book.chapters; c++ {
			for v := 1; v <= 3; v++ {
				verses = append(verses, domain.Verse{Book: book.name, Chapter: c, Number: v, Text: fmt.Sprintf("%s %d:%d", book.name, c, v)})
			}
		}
	}
	if err := s.ImportVersion(context.Background(), "RVR1960", verses); err != nil {
		t.Fatalf("ImportVersion failed: %v", err)
	}
}

func TestOpen_CreatesWALDatabase(t *testing.T) {
	s, _ := openTestStore(t)

	if _, err := os.Stat(s.Path()); err != nil {
		t.Fatalf("database missing at %s: %v", s.Path(), err)
	}
	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" && mode != "WAL" {
		t.Errorf("journal mode = %s", mode)
	}
}

func TestOpen_RequiresDataDir(t *testing.T) {
	cfg := config.Defaults()
	cfg.DataDir = " "
	if _, err := Open(zap.NewNop(), channel.NewBus(zap.NewNop()), cfg); err == nil {
		t.Error("expected error for empty data dir")
	}
}

func TestStore_Bible(t *testing.T) {
	s, sub := openTestStore(t)
	ctx := context.Background()
	seedBible(t, s)
	if c := nextChange(t, sub); c.Kind != domain.ChangeExternal {
		t.Errorf("import published %q", c.Kind)
	}

	versions, err := s.Versions(ctx)
	if err != nil || len(versions) != 1 || versions[0] != "RVR1960" {
		t.Fatalf("Versions = %v, %v", versions, err)
	}

	books, err := s.Books(ctx, "RVR1960")
	if err != nil {
		t.Fatal(err)
	}
	want := []domain.Book{{Name: "Génesis", Chapters: 2}, {Name: "Rut", Chapters: 4}, {Name: "Juan", Chapters: 3}}
	if len(books) != len(want) {
		t.Fatalf("Books = %+v", books)
	}
	for i := range want {
		if books[i] != want[i] {
			t.Errorf("book %d = %+v, want %+v", i, books[i], want[i])
		}
	}

	verses, err := s.ChapterVerses(ctx, "RVR1960", "Rut", 1)
	if err != nil || len(verses) != 3 || verses[2].Number != 3 || verses[0].Text != "Rut 1:1" {
		t.Errorf("ChapterVerses = %+v, %v", verses, err)
	}
	none, err := s.ChapterVerses(ctx, "RVR1960", "Rut", 9)
	if err != nil || len(none) != 0 {
		t.Errorf("unknown chapter = %+v, %v", none, err)
	}

	v, err := s.Verse(ctx, "RVR1960", "Juan", 3, 2)
	if err != nil || v.Text != "Juan 3:2" {
		t.Errorf("Verse = %+v, %v", v, err)
	}
	if _, err := s.Verse(ctx, "RVR1960", "Juan", 3, 16); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing verse err = %v", err)
	}
}

func TestImportVersionFile(t *testing.T) {
	s, _ := openTestStore(t)
	path := filepath.Join(t.TempDir(), "nvi.json")
	content := `[{"book":"Salmos","chapter":23,"verse":1,"text":"El Señor es mi pastor"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := s.ImportVersionFile(context.Background(), "NVI", path); err != nil {
		t.Fatalf("ImportVersionFile failed: %v", err)
	}
	v, err := s.Verse(context.Background(), "NVI", "Salmos", 23, 1)
	if err != nil || v.Text != "El Señor es mi pastor" {
		t.Errorf("Verse = %+v, %v", v, err)
	}
}

func TestSplitStanzas(t *testing.T) {
	got := SplitStanzas("Santo, santo, santo\r\nSeñor omnipotente\r\n\r\n\n\n  \n\nSanto, santo, santo\n")
	if len(got) != 2 || got[0] != "Santo, santo, santo\nSeñor omnipotente" || got[1] != "Santo, santo, santo" {
		t.Errorf("SplitStanzas = %q", got)
	}
}

func TestStore_SongLifecycle(t *testing.T) {
	s, sub := openTestStore(t)
	ctx := context.Background()

	id, err := s.AddSong(ctx, "Sublime gracia", "Sublime gracia del Señor\n\nQue a un infeliz salvó")
	if err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}
	if c := nextChange(t, sub); c.Kind != domain.ChangeSongs || c.ID != id {
		t.Errorf("add published %+v", c)
	}

	slides, err := s.SongSlides(ctx, id)
	if err != nil || len(slides) != 2 || slides[0].Order != 1 || slides[1].Text != "Que a un infeliz salvó" {
		t.Fatalf("SongSlides = %+v, %v", slides, err)
	}

	if err := s.UpdateSong(ctx, id, "Sublime gracia (Amazing Grace)", "Uno\n\nDos\n\nTres"); err != nil {
		t.Fatalf("UpdateSong failed: %v", err)
	}
	if c := nextChange(t, sub); c.Kind != domain.ChangeSongUpdated || c.ID != id {
		t.Errorf("update published %+v", c)
	}
	songs, _ := s.Songs(ctx)
	if len(songs) != 1 || songs[0].Title != "Sublime gracia (Amazing Grace)" || songs[0].Category != CustomCategory {
		t.Errorf("Songs = %+v", songs)
	}
	if slides, _ := s.SongSlides(ctx, id); len(slides) != 3 {
		t.Errorf("slides after update = %d", len(slides))
	}

	if err := s.DeleteSong(ctx, id); err != nil {
		t.Fatalf("DeleteSong failed: %v", err)
	}
	if c := nextChange(t, sub); c.Kind != domain.ChangeSongDeleted {
		t.Errorf("delete published %+v", c)
	}
	if err := s.DeleteSong(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	if err := s.UpdateSong(ctx, 999, "x", "y"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("update of missing song err = %v", err)
	}
}

func TestStore_Media(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	img1, _ := s.AddImage(ctx, "cruz", "/fondos/cruz.jpg")
	img2, _ := s.AddImage(ctx, "monte", "/fondos/monte.png")
	if err := s.UpdateImageFit(ctx, img1, domain.FitCover); err != nil {
		t.Fatal(err)
	}
	images, err := s.Images(ctx)
	if err != nil || len(images) != 2 {
		t.Fatalf("Images = %+v, %v", images, err)
	}
	if images[0].ID != img2 || images[0].Fit != domain.FitContain || images[1].Fit != domain.FitCover {
		t.Errorf("images = %+v", images)
	}

	vid, _ := s.AddVideo(ctx, "olas", "/videos/olas.mp4")
	if err := s.UpdateVideoLoop(ctx, vid, true); err != nil {
		t.Fatal(err)
	}
	videos, _ := s.Videos(ctx)
	if len(videos) != 1 || !videos[0].Loop {
		t.Errorf("videos = %+v", videos)
	}

	pdf, _ := s.AddPdf(ctx, "orden", "/docs/orden.pdf")
	if err := s.DeletePdf(ctx, pdf); err != nil {
		t.Fatal(err)
	}
	if pdfs, _ := s.Pdfs(ctx); len(pdfs) != 0 {
		t.Errorf("pdfs = %+v", pdfs)
	}
	if err := s.DeleteVideo(ctx, 42); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("delete missing video err = %v", err)
	}
	if err := s.DeleteImage(ctx, img1); err != nil {
		t.Fatal(err)
	}
}

func TestStore_ExportImportSongs(t *testing.T) {
	src, _ := openTestStore(t)
	ctx := context.Background()
	_, _ = src.AddSong(ctx, "Santo", "Santo, santo, santo\n\nSeñor omnipotente")
	_, _ = src.AddSong(ctx, "Cuán grande es Él", "Señor mi Dios")

	var buf bytes.Buffer
	n, err := src.ExportSongs(ctx, &buf)
	if err != nil || n != 2 {
		t.Fatalf("ExportSongs = %d, %v", n, err)
	}

	dst, sub := openTestStore(t)
	existing, _ := dst.AddSong(ctx, "Santo", "letra vieja")
	nextChange(t, sub)

	n, err = dst.ImportSongs(ctx, &buf)
	if err != nil || n != 2 {
		t.Fatalf("ImportSongs = %d, %v", n, err)
	}
	if c := nextChange(t, sub); c.Kind != domain.ChangeSongs {
		t.Errorf("import published %+v", c)
	}

	songs, _ := dst.Songs(ctx)
	if len(songs) != 2 {
		t.Fatalf("songs after import = %+v", songs)
	}
	slides, _ := dst.SongSlides(ctx, existing)
	if len(slides) != 2 || slides[1].Text != "Señor omnipotente" {
		t.Errorf("existing song slides = %+v", slides)
	}

	if _, err := dst.ImportSongs(ctx, bytes.NewBufferString("{not json")); err == nil {
		t.Error("expected error for invalid file")
	}
}

func TestStore_SongFileRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	_, _ = s.AddSong(ctx, "Santo", "Santo")

	path := filepath.Join(t.TempDir(), "songs.json")
	if n, err := s.ExportSongsFile(ctx, path); err != nil || n != 1 {
		t.Fatalf("ExportSongsFile = %d, %v", n, err)
	}
	if n, err := s.ImportSongsFile(ctx, path); err != nil || n != 1 {
		t.Fatalf("ImportSongsFile = %d, %v", n, err)
	}
	if songs, _ := s.Songs(ctx); len(songs) != 1 {
		t.Errorf("re-import duplicated songs: %+v", songs)
	}
}

func TestWatcher_ReportsExternalWrites(t *testing.T) {
	s, sub := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(zap.NewNop(), s, s.pub, 50*time.Millisecond)
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	time.Sleep(150 * time.Millisecond)

	other, err := sql.Open("sqlite", s.Path())
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	if _, err := other.Exec(`INSERT INTO songs(title) VALUES('Desde otra estación')`); err != nil {
		t.Fatalf("external write failed: %v", err)
	}

	if c := nextChange(t, sub); c.Kind != domain.ChangeExternal {
		t.Errorf("watcher published %+v", c)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout: watcher did not stop")
	}
}
