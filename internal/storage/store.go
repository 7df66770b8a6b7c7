// Package storage is the sqlite-backed library of Bible versions, songs and
// media. Writes announce themselves on the library-changed topic.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/genricoloni/versecast/internal/channel"
	"github.com/genricoloni/versecast/internal/domain"
	"go.uber.org/zap"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// FileName is the library database inside the data directory
	FileName = "library.db"

	schemaVersion = 1
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS verses (
		version     TEXT NOT NULL,
		book_number INTEGER NOT NULL,
		book        TEXT NOT NULL,
		chapter     INTEGER NOT NULL,
		verse       INTEGER NOT NULL,
		text        TEXT NOT NULL,
		PRIMARY KEY (version, book, chapter, verse)
	);`,
	`CREATE TABLE IF NOT EXISTS songs (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		title    TEXT NOT NULL,
		song_key TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS slides (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		song_id INTEGER NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
		ord     INTEGER NOT NULL,
		text    TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_slides_song ON slides(song_id, ord);`,
	`CREATE TABLE IF NOT EXISTS images (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		fit  TEXT NOT NULL DEFAULT 'contain'
	);`,
	`CREATE TABLE IF NOT EXISTS videos (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		loop INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS pdfs (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		path TEXT NOT NULL
	);`,
}

// Store implements domain.Library on a single sqlite file
type Store struct {
	logger *zap.Logger
	db     *sql.DB
	path   string
	pub    channel.Publisher

	lastWrite atomic.Int64 // unix nanos of the last write made through this store
}

// Path returns the database location for a data directory
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Open creates or opens the library in the configured data directory,
// enables WAL mode and ensures the schema exists
func Open(logger *zap.Logger, pub channel.Publisher, cfg domain.Config) (*Store, error) {
	dir := cfg.GetDataDir()
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := Path(dir)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	for _, q := range schema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO meta(key, value) VALUES('schema', ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		fmt.Sprint(schemaVersion)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("write schema version: %w", err)
	}

	s := &Store{logger: logger, db: db, path: path, pub: pub}
	s.touch()
	logger.Info("Library ready", zap.String("path", path))
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// LastWrite returns when this process last wrote to the library
func (s *Store) LastWrite() time.Time {
	return time.Unix(0, s.lastWrite.Load())
}

func (s *Store) touch() {
	s.lastWrite.Store(time.Now().UnixNano())
}

func (s *Store) changed(ctx context.Context, kind domain.ChangeKind, id int64) {
	s.touch()
	s.pub.Publish(ctx, channel.TopicLibrary, domain.LibraryChange{Kind: kind, ID: id})
}

// withTx runs fn in a transaction, rolling back on error
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// affectOne turns "no rows affected" into ErrNotFound
func affectOne(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
	}
	return nil
}
