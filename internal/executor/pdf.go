package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/genricoloni/versecast/internal/domain"
	"go.uber.org/zap"
)

const defaultPdfDPI = 150

// Pdftoppm rasterizes PDF pages with poppler's pdftoppm
type Pdftoppm struct {
	logger   *zap.Logger
	binary   string
	cacheDir string
	dpi      int
}

// NewRasterizer creates a page rasterizer caching pages under the output dir
func NewRasterizer(logger *zap.Logger, cfg domain.Config) *Pdftoppm {
	r := &Pdftoppm{
		logger:   logger,
		binary:   "pdftoppm",
		cacheDir: filepath.Join(cfg.GetOutputDir(), "pages"),
		dpi:      defaultPdfDPI,
	}
	if !commandExists(r.binary) {
		logger.Warn("pdftoppm not found, PDF pages cannot be projected")
	}
	return r
}

// rasterArgs renders a single page; pdftoppm appends .png to prefix
func rasterArgs(path string, page, dpi int, prefix string) []string {
	p := strconv.Itoa(page)
	return []string{"-f", p, "-l", p, "-r", strconv.Itoa(dpi), "-png", "-singlefile", path, prefix}
}

// Page returns a PNG of the 1-based page of the PDF at path
func (r *Pdftoppm) Page(ctx context.Context, path string, page int) (string, error) {
	if page < 1 {
		return "", fmt.Errorf("page %d: %w", page, domain.ErrNotFound)
	}
	dst, err := cachePath(r.cacheDir, path, "-"+strconv.Itoa(page)+".png")
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}
	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create page dir: %w", err)
	}
	prefix := strings.TrimSuffix(dst, ".png")
	if _, err := run(ctx, r.binary, rasterArgs(path, page, r.dpi, prefix)...); err != nil {
		return "", err
	}
	r.logger.Debug("PDF page rasterized", zap.String("pdf", path), zap.Int("page", page))
	return dst, nil
}
