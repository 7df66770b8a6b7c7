package engine

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/genricoloni/versecast/internal/channel"
	"github.com/genricoloni/versecast/internal/control"
	"github.com/genricoloni/versecast/internal/domain"
	"github.com/genricoloni/versecast/internal/style"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// LibraryWatcher reports library changes made outside this process
type LibraryWatcher interface {
	Run(ctx context.Context) error
}

// Engine owns the background loops of the control surface and tears the
// application down in order: projector, player, channel, storage.
type Engine struct {
	logger  *zap.Logger
	tracker *control.Tracker
	styles  *style.Resolver
	window  domain.WindowController
	watcher LibraryWatcher
	bus     *channel.Bus
	closers []io.Closer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates an engine. closers are closed on Stop after the
// projector, in order.
func NewEngine(
	logger *zap.Logger,
	tracker *control.Tracker,
	styles *style.Resolver,
	window domain.WindowController,
	watcher LibraryWatcher,
	bus *channel.Bus,
	closers ...io.Closer,
) *Engine {
	return &Engine{
		logger:  logger,
		tracker: tracker,
		styles:  styles,
		window:  window,
		watcher: watcher,
		bus:     bus,
		closers: closers,
	}
}

// Start launches the library loops in goroutines.
// It returns immediately (non-blocking).
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("Engine starting...")

	if err := e.tracker.Init(ctx); err != nil {
		e.logger.Warn("Could not select a Bible version", zap.Error(err))
	}

	// the start context ends with OnStart; the loops live until Stop
	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	sub := e.bus.Subscribe(channel.TopicLibrary)
	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.tracker.Watch(runCtx, sub)
	}()
	go func() {
		defer e.wg.Done()
		if err := e.watcher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Error("Library watcher stopped", zap.Error(err))
		}
	}()
	return nil
}

// OpenProjector opens the projector and re-sends what the operator last had live
func (e *Engine) OpenProjector(ctx context.Context) error {
	if err := e.window.OpenProjector(ctx); err != nil {
		return err
	}
	e.styles.Broadcast(ctx)
	e.tracker.Resend(ctx)
	return nil
}

// CloseProjector closes the projector; the control surface keeps its state
func (e *Engine) CloseProjector(ctx context.Context) error {
	return e.window.CloseProjector(ctx)
}

// Stop gracefully stops the loops and releases every resource
func (e *Engine) Stop(ctx context.Context) error {
	e.logger.Info("Engine stopping...")

	err := e.window.CloseProjector(ctx)

	if e.cancel != nil {
		e.cancel()
	}
	e.bus.Close()
	e.wg.Wait()

	for _, c := range e.closers {
		err = multierr.Append(err, c.Close())
	}
	if err != nil {
		e.logger.Error("Shutdown finished with errors", zap.Error(err))
		return err
	}
	e.logger.Info("Engine stopped")
	return nil
}
