package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/genricoloni/versecast/internal/domain"
	"go.uber.org/zap"
)

// CustomCategory is the category of songs entered by the operator
const CustomCategory = "Custom"

// SplitStanzas cuts lyrics into slides at blank lines, dropping empty stanzas
func SplitStanzas(lyrics string) []string {
	lyrics = strings.ReplaceAll(lyrics, "\r\n", "\n")
	var out []string
	for _, s := range strings.Split(lyrics, "\n\n") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Songs lists stored songs by title
func (s *Store) Songs(ctx context.Context) ([]domain.Song, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, song_key, category FROM songs ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("query songs: %w", err)
	}
	defer rows.Close()

	var out []domain.Song
	for rows.Next() {
		var song domain.Song
		if err := rows.Scan(&song.ID, &song.Title, &song.Key, &song.Category); err != nil {
			return nil, err
		}
		out = append(out, song)
	}
	return out, rows.Err()
}

// SongSlides returns a song's slides in order
func (s *Store) SongSlides(ctx context.Context, songID int64) ([]domain.Slide, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, ord, text FROM slides WHERE song_id = ? ORDER BY ord`, songID)
	if err != nil {
		return nil, fmt.Errorf("query slides: %w", err)
	}
	defer rows.Close()

	var out []domain.Slide
	for rows.Next() {
		var sl domain.Slide
		if err := rows.Scan(&sl.ID, &sl.Order, &sl.Text); err != nil {
			return nil, err
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}

func insertSlides(ctx context.Context, tx *sql.Tx, songID int64, stanzas []string) error {
	for i, text := range stanzas {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO slides(song_id, ord, text) VALUES(?, ?, ?)`, songID, i+1, text); err != nil {
			return fmt.Errorf("insert slide %d: %w", i+1, err)
		}
	}
	return nil
}

// AddSong stores a new song, one slide per stanza
func (s *Store) AddSong(ctx context.Context, title, lyrics string) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO songs(title, song_key, category) VALUES(?, '', ?)`, title, CustomCategory)
		if err != nil {
			return fmt.Errorf("insert song: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return insertSlides(ctx, tx, id, SplitStanzas(lyrics))
	})
	if err != nil {
		s.logger.Error("Failed to add song", zap.String("title", title), zap.Error(err))
		return 0, err
	}
	s.changed(ctx, domain.ChangeSongs, id)
	return id, nil
}

// UpdateSong renames a song and replaces its slides
func (s *Store) UpdateSong(ctx context.Context, id int64, title, lyrics string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE songs SET title = ? WHERE id = ?`, title, id)
		if err != nil {
			return fmt.Errorf("update song: %w", err)
		}
		if err := affectOne(res, "song", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM slides WHERE song_id = ?`, id); err != nil {
			return fmt.Errorf("clear slides: %w", err)
		}
		return insertSlides(ctx, tx, id, SplitStanzas(lyrics))
	})
	if err != nil {
		s.logger.Error("Failed to update song", zap.Int64("songId", id), zap.Error(err))
		return err
	}
	s.changed(ctx, domain.ChangeSongUpdated, id)
	return nil
}

// DeleteSong removes a song and its slides
func (s *Store) DeleteSong(ctx context.Context, id int64) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM slides WHERE song_id = ?`, id); err != nil {
			return fmt.Errorf("delete slides: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete song: %w", err)
		}
		return affectOne(res, "song", id)
	})
	if err != nil {
		s.logger.Error("Failed to delete song", zap.Int64("songId", id), zap.Error(err))
		return err
	}
	s.changed(ctx, domain.ChangeSongDeleted, id)
	return nil
}
