//go:build !linux
// +build !linux

package display

import (
	"context"

	"go.uber.org/zap"
)

// Inhibitor stub for non-Linux platforms
type Inhibitor struct {
	logger *zap.Logger
}

// NewInhibitor creates a stub inhibitor; the screensaver is left alone
func NewInhibitor(logger *zap.Logger) *Inhibitor {
	return &Inhibitor{logger: logger}
}

// Inhibit is a no-op on non-Linux platforms
func (i *Inhibitor) Inhibit(ctx context.Context) error {
	i.logger.Debug("Screensaver inhibit is only supported on Linux systems")
	return nil
}

// Release is a no-op on non-Linux platforms
func (i *Inhibitor) Release(ctx context.Context) error {
	return nil
}

// Close is a no-op on non-Linux platforms
func (i *Inhibitor) Close() error {
	return nil
}
