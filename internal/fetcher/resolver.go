package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/genricoloni/versecast/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const _maxMediaSize = 512 * 1024 * 1024 // 512 MB

// CacheDirName is the directory under the output dir holding downloaded media
const CacheDirName = "cache"

// Resolver turns stored media paths into local files the renderer can open.
// Remote URLs are downloaded once into a cache directory.
type Resolver struct {
	logger   *zap.Logger
	client   *http.Client
	cacheDir string
	maxSize  int64
	group    singleflight.Group
}

// NewResolver creates a resolver caching downloads under the configured output dir
func NewResolver(logger *zap.Logger, cfg domain.Config) *Resolver {
	return &Resolver{
		logger:   logger,
		cacheDir: filepath.Join(cfg.GetOutputDir(), CacheDirName),
		maxSize:  _maxMediaSize,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Resolve returns an absolute local path for p.
// http and https URLs are fetched into the cache; anything else must name an existing file.
func (r *Resolver) Resolve(ctx context.Context, p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("empty media path: %w", domain.ErrNotFound)
	}
	if isRemote(p) {
		v, err, _ := r.group.Do(p, func() (any, error) {
			return r.download(ctx, p)
		})
		if err != nil {
			return "", err
		}
		return v.(string), nil
	}

	local, err := expandHome(strings.TrimPrefix(p, "file://"))
	if err != nil {
		return "", err
	}
	local, err = filepath.Abs(local)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	if _, err := os.Stat(local); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("media %s: %w", local, domain.ErrNotFound)
		}
		return "", fmt.Errorf("stat %s: %w", local, err)
	}
	return local, nil
}

func (r *Resolver) download(ctx context.Context, url string) (string, error) {
	sum := sha256.Sum256([]byte(url))
	name := hex.EncodeToString(sum[:16])
	if ext := path.Ext(strings.SplitN(url, "?", 2)[0]); len(ext) <= 5 {
		name += ext
	}
	dst := filepath.Join(r.cacheDir, name)
	if _, err := os.Stat(dst); err == nil {
		r.logger.Debug("Media cache hit", zap.String("url", url), zap.String("path", dst))
		return dst, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "versecast/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !isMediaType(ct) {
		return "", fmt.Errorf("url is not media: %s", ct)
	}

	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(r.cacheDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	// one extra byte tells a body at the limit apart from a larger one
	n, err := io.Copy(tmp, io.LimitReader(resp.Body, r.maxSize+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	if n > r.maxSize {
		return "", fmt.Errorf("media exceeds %d bytes", r.maxSize)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("store download: %w", err)
	}

	r.logger.Debug("Media fetched successfully", zap.Int64("bytes", n), zap.String("url", url))
	return dst, nil
}

func isRemote(p string) bool {
	lower := strings.ToLower(p)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func isMediaType(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "image/") || strings.HasPrefix(mt, "video/") || mt == "application/pdf"
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
