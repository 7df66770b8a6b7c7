package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/genricoloni/versecast/internal/domain"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Versions lists installed Bible versions alphabetically
func (s *Store) Versions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT version FROM verses ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Books lists the books of version in canonical order with their chapter counts
func (s *Store) Books(ctx context.Context, version string) ([]domain.Book, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT book, MAX(chapter) FROM verses
		WHERE version = ?
		GROUP BY book
		ORDER BY MIN(book_number)`, version)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var out []domain.Book
	for rows.Next() {
		var b domain.Book
		if err := rows.Scan(&b.Name, &b.Chapters); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ChapterVerses returns the verses of a chapter in order; an unknown chapter yields none
func (s *Store) ChapterVerses(ctx context.Context, version, book string, chapter int) ([]domain.Verse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT verse, text FROM verses
		WHERE version = ? AND book = ? AND chapter = ?
		ORDER BY verse`, version, book, chapter)
	if err != nil {
		return nil, fmt.Errorf("query chapter: %w", err)
	}
	defer rows.Close()

	var out []domain.Verse
	for rows.Next() {
		v := domain.Verse{Book: book, Chapter: chapter}
		if err := rows.Scan(&v.Number, &v.Text); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Verse fetches one verse or returns ErrNotFound
func (s *Store) Verse(ctx context.Context, version, book string, chapter, verse int) (domain.Verse, error) {
	v := domain.Verse{Book: book, Chapter: chapter, Number: verse}
	err := s.db.QueryRowContext(ctx, `
		SELECT text FROM verses
		WHERE version = ? AND book = ? AND chapter = ? AND verse = ?`,
		version, book, chapter, verse).Scan(&v.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return v, fmt.Errorf("%s %s %d:%d: %w", version, book, chapter, verse, domain.ErrNotFound)
	}
	if err != nil {
		return v, fmt.Errorf("query verse: %w", err)
	}
	return v, nil
}

// ImportVersion replaces the verses of version. Book order follows the order
// in which books first appear in verses.
func (s *Store) ImportVersion(ctx context.Context, version string, verses []domain.Verse) error {
	if version == "" {
		return errors.New("version name is required")
	}
	order := make(map[string]int)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM verses WHERE version = ?`, version); err != nil {
			return fmt.Errorf("clear version: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO verses(version, book_number, book, chapter, verse, text)
			VALUES(?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, v := range verses {
			n, ok := order[v.Book]
			if !ok {
				n = len(order) + 1
				order[v.Book] = n
			}
			if _, err := stmt.ExecContext(ctx, version, n, v.Book, v.Chapter, v.Number, v.Text); err != nil {
				return fmt.Errorf("insert %s %d:%d: %w", v.Book, v.Chapter, v.Number, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Bible version imported",
		zap.String("version", version),
		zap.Int("books", len(order)),
		zap.Int("verses", len(verses)))
	s.changed(ctx, domain.ChangeExternal, 0)
	return nil
}

// ImportVersionFile imports a JSON array of verses ({book, chapter, verse, text})
func (s *Store) ImportVersionFile(ctx context.Context, version, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var verses []domain.Verse
	if err := json.Unmarshal(data, &verses); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return s.ImportVersion(ctx, version, verses)
}
