package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/genricoloni/versecast/internal/domain"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// SongExport is one song in an exported song library
type SongExport struct {
	Title    string   `json:"title"`
	Key      string   `json:"key"`
	Category string   `json:"category"`
	Lyrics   []string `json:"lyrics"`
}

// ExportSongs writes every song with its slides as an indented JSON array
func (s *Store) ExportSongs(ctx context.Context, w io.Writer) (int, error) {
	songs, err := s.Songs(ctx)
	if err != nil {
		return 0, err
	}
	out := make([]SongExport, 0, len(songs))
	for _, song := range songs {
		slides, err := s.SongSlides(ctx, song.ID)
		if err != nil {
			return 0, err
		}
		e := SongExport{Title: song.Title, Key: song.Key, Category: song.Category, Lyrics: make([]string, 0, len(slides))}
		for _, sl := range slides {
			e.Lyrics = append(e.Lyrics, sl.Text)
		}
		out = append(out, e)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return 0, fmt.Errorf("encode songs: %w", err)
	}
	return len(out), nil
}

// ImportSongs reads an exported song library. A song whose title already
// exists gets its slides replaced; other songs are added.
func (s *Store) ImportSongs(ctx context.Context, r io.Reader) (int, error) {
	var in []SongExport
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return 0, fmt.Errorf("invalid song file: %w", err)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, song := range in {
			var id int64
			err := tx.QueryRowContext(ctx, `SELECT id FROM songs WHERE title = ?`, song.Title).Scan(&id)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				res, err := tx.ExecContext(ctx,
					`INSERT INTO songs(title, song_key, category) VALUES(?, ?, ?)`, song.Title, song.Key, song.Category)
				if err != nil {
					return fmt.Errorf("insert %q: %w", song.Title, err)
				}
				if id, err = res.LastInsertId(); err != nil {
					return err
				}
			case err != nil:
				return fmt.Errorf("look up %q: %w", song.Title, err)
			default:
				if _, err := tx.ExecContext(ctx, `DELETE FROM slides WHERE song_id = ?`, id); err != nil {
					return fmt.Errorf("clear %q: %w", song.Title, err)
				}
			}
			if err := insertSlides(ctx, tx, id, song.Lyrics); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Song import failed", zap.Error(err))
		return 0, err
	}

	s.logger.Info("Songs imported", zap.Int("count", len(in)))
	s.changed(ctx, domain.ChangeSongs, 0)
	return len(in), nil
}

// ExportSongsFile exports the song library to path
func (s *Store) ExportSongsFile(ctx context.Context, path string) (n int, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return s.ExportSongs(ctx, f)
}

// ImportSongsFile imports a song library exported to path
func (s *Store) ImportSongsFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return s.ImportSongs(ctx, f)
}
