package storage

import (
	"context"
	"fmt"

	"github.com/genricoloni/versecast/internal/domain"
)

// Images lists stored images, newest first
func (s *Store) Images(ctx context.Context) ([]domain.ImageAsset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, path, fit FROM images ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	var out []domain.ImageAsset
	for rows.Next() {
		var a domain.ImageAsset
		var fit string
		if err := rows.Scan(&a.ID, &a.Name, &a.Path, &fit); err != nil {
			return nil, err
		}
		a.Fit = domain.ParseFitMode(fit)
		out = append(out, a)
	}
	return out, rows.Err()
}

// AddImage stores an image with the contain fit
func (s *Store) AddImage(ctx context.Context, name, path string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO images(name, path, fit) VALUES(?, ?, ?)`, name, path, string(domain.FitContain))
	if err != nil {
		return 0, fmt.Errorf("insert image: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.changed(ctx, domain.ChangeImages, id)
	return id, nil
}

// UpdateImageFit stores the preferred fit of an image
func (s *Store) UpdateImageFit(ctx context.Context, id int64, fit domain.FitMode) error {
	res, err := s.db.ExecContext(ctx, `UPDATE images SET fit = ? WHERE id = ?`, string(domain.ParseFitMode(string(fit))), id)
	if err != nil {
		return fmt.Errorf("update image fit: %w", err)
	}
	if err := affectOne(res, "image", id); err != nil {
		return err
	}
	s.changed(ctx, domain.ChangeImages, id)
	return nil
}

// DeleteImage removes an image record; the file is left alone
func (s *Store) DeleteImage(ctx context.Context, id int64) error {
	return s.deleteMedia(ctx, "images", domain.ChangeImages, id)
}

// Videos lists stored videos, newest first
func (s *Store) Videos(ctx context.Context) ([]domain.VideoAsset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, path, loop FROM videos ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var out []domain.VideoAsset
	for rows.Next() {
		var v domain.VideoAsset
		if err := rows.Scan(&v.ID, &v.Name, &v.Path, &v.Loop); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// AddVideo stores a video that plays once
func (s *Store) AddVideo(ctx context.Context, name, path string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO videos(name, path, loop) VALUES(?, ?, 0)`, name, path)
	if err != nil {
		return 0, fmt.Errorf("insert video: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.changed(ctx, domain.ChangeVideos, id)
	return id, nil
}

// UpdateVideoLoop stores whether a video repeats
func (s *Store) UpdateVideoLoop(ctx context.Context, id int64, loop bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE videos SET loop = ? WHERE id = ?`, loop, id)
	if err != nil {
		return fmt.Errorf("update video loop: %w", err)
	}
	if err := affectOne(res, "video", id); err != nil {
		return err
	}
	s.changed(ctx, domain.ChangeVideos, id)
	return nil
}

// DeleteVideo removes a video record
func (s *Store) DeleteVideo(ctx context.Context, id int64) error {
	return s.deleteMedia(ctx, "videos", domain.ChangeVideos, id)
}

// Pdfs lists stored PDF documents, newest first
func (s *Store) Pdfs(ctx context.Context) ([]domain.PdfDoc, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, path FROM pdfs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query pdfs: %w", err)
	}
	defer rows.Close()

	var out []domain.PdfDoc
	for rows.Next() {
		var d domain.PdfDoc
		if err := rows.Scan(&d.ID, &d.Name, &d.Path); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// AddPdf stores a PDF document
func (s *Store) AddPdf(ctx context.Context, name, path string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO pdfs(name, path) VALUES(?, ?)`, name, path)
	if err != nil {
		return 0, fmt.Errorf("insert pdf: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.changed(ctx, domain.ChangePdfs, id)
	return id, nil
}

// DeletePdf removes a PDF record
func (s *Store) DeletePdf(ctx context.Context, id int64) error {
	return s.deleteMedia(ctx, "pdfs", domain.ChangePdfs, id)
}

// table is one of the fixed media table names, never user input
func (s *Store) deleteMedia(ctx context.Context, table string, kind domain.ChangeKind, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if err := affectOne(res, table, id); err != nil {
		return err
	}
	s.changed(ctx, kind, id)
	return nil
}
