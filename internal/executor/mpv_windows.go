//go:build windows
// +build windows

package executor

import (
	"context"
	"fmt"

	"github.com/genricoloni/versecast/internal/domain"
	"go.uber.org/zap"
)

// MPV is a placeholder on Windows, where mpv's IPC server is a named pipe
type MPV struct {
	logger *zap.Logger
}

// NewPlayer creates a stub player for Windows
func NewPlayer(logger *zap.Logger, cfg domain.Config) *MPV {
	logger.Warn("Video playback is not yet implemented for this platform")
	return &MPV{logger: logger}
}

// SetScreen is a no-op on Windows
func (p *MPV) SetScreen(int) {}

// Load returns an error indicating the platform is not supported
func (p *MPV) Load(ctx context.Context, path string, loop bool) error {
	return fmt.Errorf("video playback not implemented for this platform")
}

// Play returns an error indicating the platform is not supported
func (p *MPV) Play(ctx context.Context) error {
	return fmt.Errorf("video playback not implemented for this platform")
}

// Pause returns an error indicating the platform is not supported
func (p *MPV) Pause(ctx context.Context) error {
	return fmt.Errorf("video playback not implemented for this platform")
}

// Restart returns an error indicating the platform is not supported
func (p *MPV) Restart(ctx context.Context) error {
	return fmt.Errorf("video playback not implemented for this platform")
}

// Stop is a no-op: nothing can be playing
func (p *MPV) Stop(ctx context.Context) error {
	return nil
}

// Close is a no-op on Windows
func (p *MPV) Close() error {
	return nil
}
