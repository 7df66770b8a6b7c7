package processor

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/versecast/internal/domain"
	"go.uber.org/zap"
)

// FrameFilename is the file the current projector frame is written to
const FrameFilename = "live.png"

// FileSink publishes projector frames as a PNG in the output directory.
// The file is replaced atomically so a viewer never reads a partial frame.
type FileSink struct {
	logger *zap.Logger
	dir    string
}

// NewFileSink creates a sink writing into the configured output dir
func NewFileSink(logger *zap.Logger, cfg domain.Config) *FileSink {
	return &FileSink{logger: logger, dir: cfg.GetOutputDir()}
}

// Path returns the absolute path of the frame file
func (s *FileSink) Path() string {
	p := filepath.Join(s.dir, FrameFilename)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Write encodes frame and swaps it into place
func (s *FileSink) Write(frame image.Image) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".frame-*.png")
	if err != nil {
		return fmt.Errorf("create frame file: %w", err)
	}
	defer os.Remove(tmp.Name())

	err = imaging.Encode(tmp, frame, imaging.PNG)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return fmt.Errorf("failed to write frame file: %w", err)
	}

	s.logger.Debug("Frame written", zap.String("path", s.Path()))
	return nil
}
