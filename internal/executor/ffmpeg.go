package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/genricoloni/versecast/internal/domain"
	"go.uber.org/zap"
)

// FFmpeg probes and samples video files with ffprobe and ffmpeg
type FFmpeg struct {
	logger   *zap.Logger
	probe    string
	encoder  string
	cacheDir string
}

// NewFFmpeg creates the video helper; posters are cached under the output dir
func NewFFmpeg(logger *zap.Logger, cfg domain.Config) *FFmpeg {
	f := &FFmpeg{
		logger:   logger,
		probe:    "ffprobe",
		encoder:  "ffmpeg",
		cacheDir: filepath.Join(cfg.GetOutputDir(), "posters"),
	}
	if !commandExists(f.probe) {
		logger.Warn("ffprobe not found, background video durations cannot be checked")
	}
	return f
}

// probeArgs asks ffprobe for the container duration in seconds only
func probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

// posterArgs grabs the first frame of video into dst
func posterArgs(video, dst string) []string {
	return []string{"-y", "-v", "error", "-ss", "0", "-i", video, "-frames:v", "1", dst}
}

// parseSeconds reads ffprobe's duration output
func parseSeconds(out []byte) (time.Duration, error) {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("unexpected duration %q", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Duration implements domain.DurationProbe
func (f *FFmpeg) Duration(ctx context.Context, path string) (time.Duration, error) {
	out, err := run(ctx, f.probe, probeArgs(path)...)
	if err != nil {
		return 0, err
	}
	d, err := parseSeconds(out)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	f.logger.Debug("Video probed", zap.String("path", path), zap.Duration("duration", d))
	return d, nil
}

// Poster returns a PNG of the first frame of video, extracting it once
func (f *FFmpeg) Poster(ctx context.Context, video string) (string, error) {
	dst, err := cachePath(f.cacheDir, video, ".png")
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}
	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create poster dir: %w", err)
	}
	if _, err := run(ctx, f.encoder, posterArgs(video, dst)...); err != nil {
		return "", err
	}
	f.logger.Debug("Poster extracted", zap.String("video", video), zap.String("path", dst))
	return dst, nil
}
