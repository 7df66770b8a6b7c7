package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/genricoloni/versecast/internal/channel"
	"github.com/genricoloni/versecast/internal/config"
	"github.com/genricoloni/versecast/internal/console"
	"github.com/genricoloni/versecast/internal/control"
	"github.com/genricoloni/versecast/internal/display"
	"github.com/genricoloni/versecast/internal/domain"
	"github.com/genricoloni/versecast/internal/engine"
	"github.com/genricoloni/versecast/internal/executor"
	"github.com/genricoloni/versecast/internal/fetcher"
	"github.com/genricoloni/versecast/internal/processor"
	"github.com/genricoloni/versecast/internal/projector"
	"github.com/genricoloni/versecast/internal/storage"
	"github.com/genricoloni/versecast/internal/style"
	"github.com/genricoloni/versecast/internal/textlayout"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// AppOptions is the full dependency graph of the application
var AppOptions = fx.Options(
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),

	fx.Provide(
		// Configuration and logging
		config.Load,
		func(cfg *config.AppConfig) domain.Config { return cfg },
		newLogger,

		// Projection channel
		channel.NewBus,
		func(bus *channel.Bus) channel.Publisher { return bus },

		// Library
		storage.Open,
		func(s *storage.Store) domain.Library { return s },
		func(s *storage.Store) console.Library { return s },
		newWatcher,

		// External tools
		executor.NewFFmpeg,
		func(f *executor.FFmpeg) domain.DurationProbe { return f },
		executor.NewRasterizer,
		newPlayer,
		fetcher.NewResolver,

		// Control surface
		control.NewTracker,
		style.NewResolver,

		// Projector surface
		display.DetectProjector,
		display.NewScreenResolution,
		display.NewInhibitor,
		newFaces,
		processor.NewCompositor,
		processor.NewFileSink,
		newSurface,

		newEngine,
		newConsole,
	),

	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(AppOptions)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "versecast: %v\n", err)
		os.Exit(1)
	}

	// Wait for a signal or for the operator to quit the console
	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	if err := app.Stop(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "versecast: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the zap logger from the logging section of the config.
// Logs go to stderr, and to a rotated file when one is configured.
func newLogger(cfg *config.AppConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	switch cfg.Logging.Format {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "", "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Logging.Format)
	}

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		rotated := &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotated), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

func newWatcher(logger *zap.Logger, store *storage.Store, pub channel.Publisher) *storage.Watcher {
	return storage.NewWatcher(logger, store, pub, storage.DefaultWatchDebounce)
}

func newPlayer(logger *zap.Logger, cfg domain.Config, p display.Projector) *executor.MPV {
	player := executor.NewPlayer(logger, cfg)
	player.SetScreen(p.Index)
	return player
}

func newFaces(cfg domain.Config) (*textlayout.Faces, error) {
	return textlayout.NewFaces(cfg.GetFontPath())
}

type surfaceParams struct {
	fx.In

	Logger    *zap.Logger
	Bus       *channel.Bus
	Comp      *processor.Compositor
	Sink      *processor.FileSink
	Media     *fetcher.Resolver
	Pages     *executor.Pdftoppm
	Posters   *executor.FFmpeg
	Player    *executor.MPV
	Inhibitor *display.Inhibitor
	Faces     *textlayout.Faces
	Config    domain.Config
}

func newSurface(p surfaceParams) *projector.Surface {
	return projector.NewSurface(p.Logger.Named("projector"), projector.Deps{
		Bus:      p.Bus,
		Comp:     p.Comp,
		Sink:     p.Sink,
		Media:    p.Media,
		Pages:    p.Pages,
		Posters:  p.Posters,
		Player:   p.Player,
		Guard:    p.Inhibitor,
		Measurer: p.Faces,
		Config:   p.Config,
	})
}

type engineParams struct {
	fx.In

	Logger    *zap.Logger
	Tracker   *control.Tracker
	Styles    *style.Resolver
	Surface   *projector.Surface
	Watcher   *storage.Watcher
	Bus       *channel.Bus
	Player    *executor.MPV
	Inhibitor *display.Inhibitor
	Store     *storage.Store
}

func newEngine(p engineParams) *engine.Engine {
	return engine.NewEngine(p.Logger, p.Tracker, p.Styles, p.Surface, p.Watcher, p.Bus,
		p.Player, p.Inhibitor, p.Store)
}

func newConsole(logger *zap.Logger, tracker *control.Tracker, styles *style.Resolver, lib console.Library, e *engine.Engine) *console.Console {
	return console.New(logger.Named("console"), os.Stdout, tracker, styles, lib, e)
}

// registerHooks sets up application lifecycle hooks
func registerHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	logger *zap.Logger,
	cfg *config.AppConfig,
	e *engine.Engine,
	c *console.Console,
) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Versecast starting")
			cfg.LogFields(logger)

			if err := e.Start(ctx); err != nil {
				return err
			}
			go func() {
				defer close(done)
				if err := c.Run(runCtx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Console stopped", zap.Error(err))
				}
				if runCtx.Err() == nil {
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			}
			err := e.Stop(ctx)
			_ = logger.Sync()
			return err
		},
	})
}
