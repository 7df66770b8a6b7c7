//go:build linux
// +build linux

package display

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	inhibitApp    = "versecast"
	inhibitReason = "Projecting"
)

// Inhibitor keeps the screensaver off while the projector is open
type Inhibitor struct {
	logger *zap.Logger
	mu     sync.Mutex
	conn   DBusClient // Interface for testability
	dial   func() (DBusClient, error)
	cookie uint32
	active bool
}

// NewInhibitor creates an inhibitor that connects to the session bus on first use
func NewInhibitor(logger *zap.Logger) *Inhibitor {
	return &Inhibitor{
		logger: logger,
		dial: func() (DBusClient, error) {
			return NewStdDBusClient()
		},
	}
}

// Inhibit takes the inhibition; calling it while held is a no-op
func (i *Inhibitor) Inhibit(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.active {
		return nil
	}
	if i.conn == nil {
		conn, err := i.dial()
		if err != nil {
			return fmt.Errorf("session bus connection failed: %w", err)
		}
		i.conn = conn
	}

	cookie, err := i.conn.Inhibit(inhibitApp, inhibitReason)
	if err != nil {
		return fmt.Errorf("screensaver inhibit failed: %w", err)
	}
	i.cookie = cookie
	i.active = true
	i.logger.Info("Screensaver inhibited", zap.Uint32("cookie", cookie))
	return nil
}

// Release drops the inhibition; calling it while not held is a no-op
func (i *Inhibitor) Release(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.active {
		return nil
	}
	i.active = false
	if err := i.conn.UnInhibit(i.cookie); err != nil {
		return fmt.Errorf("screensaver uninhibit failed: %w", err)
	}
	i.logger.Info("Screensaver released", zap.Uint32("cookie", i.cookie))
	return nil
}

// Close releases any inhibition and closes the bus connection
func (i *Inhibitor) Close() error {
	err := i.Release(context.Background())

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.conn != nil {
		err = multierr.Append(err, i.conn.Close())
		i.conn = nil
	}
	return err
}
