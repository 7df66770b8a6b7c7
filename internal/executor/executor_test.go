package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/genricoloni/versecast/internal/config"
	"github.com/genricoloni/versecast/internal/domain"
	"go.uber.org/zap"
)

func TestArgs(t *testing.T) {
	tests := []struct {
		name string
		got  []string
		want []string
	}{
		{
			name: "ffprobe duration",
			got:  probeArgs("/media/intro.mp4"),
			want: []string{"-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", "/media/intro.mp4"},
		},
		{
			name: "ffmpeg poster",
			got:  posterArgs("/media/intro.mp4", "/out/p.png"),
			want: []string{"-y", "-v", "error", "-ss", "0", "-i", "/media/intro.mp4", "-frames:v", "1", "/out/p.png"},
		},
		{
			name: "pdftoppm single page",
			got:  rasterArgs("/docs/liturgia.pdf", 3, 150, "/out/abc-3"),
			want: []string{"-f", "3", "-l", "3", "-r", "150", "-png", "-singlefile", "/docs/liturgia.pdf", "/out/abc-3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, tt.got)
			}
		})
	}
}

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    time.Duration
		wantErr bool
	}{
		{name: "fractional", out: "12.500000\n", want: 12500 * time.Millisecond},
		{name: "integer", out: "60", want: time.Minute},
		{name: "extra lines", out: "3.0\n[FORMAT]\n", want: 3 * time.Second},
		{name: "not available", out: "N/A\n", wantErr: true},
		{name: "empty", out: "", wantErr: true},
		{name: "negative", out: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSeconds([]byte(tt.out))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCachePath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(src, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	first, err := cachePath(dir, src, ".png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again, _ := cachePath(dir, src, ".png")
	if first != again {
		t.Errorf("expected stable name, got %s and %s", first, again)
	}
	if filepath.Ext(first) != ".png" || filepath.Dir(first) != dir {
		t.Errorf("unexpected cache path %s", first)
	}

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(src, later, later); err != nil {
		t.Fatal(err)
	}
	changed, _ := cachePath(dir, src, ".png")
	if changed == first {
		t.Error("expected a new name after the source changed")
	}

	if _, err := cachePath(dir, filepath.Join(dir, "missing.mp4"), ".png"); err == nil {
		t.Error("expected error for a missing source")
	}
}

func TestMissingTools(t *testing.T) {
	cfg := config.Defaults()
	cfg.OutputDir = t.TempDir()
	ctx := context.Background()

	src := filepath.Join(cfg.OutputDir, "doc.pdf")
	if err := os.WriteFile(src, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFFmpeg(zap.NewNop(), cfg)
	f.probe = "versecast-no-such-ffprobe"
	f.encoder = "versecast-no-such-ffmpeg"
	if _, err := f.Duration(ctx, src); !errors.Is(err, ErrToolMissing) {
		t.Errorf("Duration: expected ErrToolMissing, got %v", err)
	}
	if _, err := f.Poster(ctx, src); !errors.Is(err, ErrToolMissing) {
		t.Errorf("Poster: expected ErrToolMissing, got %v", err)
	}

	r := NewRasterizer(zap.NewNop(), cfg)
	r.binary = "versecast-no-such-pdftoppm"
	if _, err := r.Page(ctx, src, 1); !errors.Is(err, ErrToolMissing) {
		t.Errorf("Page: expected ErrToolMissing, got %v", err)
	}
	if _, err := r.Page(ctx, src, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Page 0: expected ErrNotFound, got %v", err)
	}
}
