// Package projector is the audience-facing side of the projection channel.
// It mirrors the control surface's styles, runs the transition sequencer for
// live content and renders every presented frame into a frame sink.
package projector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/genricoloni/versecast/internal/channel"
	"github.com/genricoloni/versecast/internal/domain"
	"github.com/genricoloni/versecast/internal/processor"
	"github.com/genricoloni/versecast/internal/sequencer"
	"github.com/genricoloni/versecast/internal/style"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Subscriber attaches readers to the projection channel
type Subscriber interface {
	Subscribe(topic channel.Topic) *channel.Subscription
}

// FrameSink receives every rendered frame
type FrameSink interface {
	Write(frame image.Image) error
}

// PageRasterizer renders one PDF page to an image file
type PageRasterizer interface {
	Page(ctx context.Context, path string, page int) (string, error)
}

// PosterSource extracts a still frame from a video file
type PosterSource interface {
	Poster(ctx context.Context, video string) (string, error)
}

// ScreenGuard keeps the display awake while projecting
type ScreenGuard interface {
	Inhibit(ctx context.Context) error
	Release(ctx context.Context) error
}

// Deps groups the collaborators of a Surface
type Deps struct {
	Bus      Subscriber
	Comp     *processor.Compositor
	Sink     FrameSink
	Media    domain.MediaResolver
	Pages    PageRasterizer
	Posters  PosterSource
	Player   domain.VideoPlayer
	Guard    ScreenGuard
	Measurer domain.TextMeasurer
	Config   domain.Config
	// Clock paces the sequencer; nil means 60 frames per second
	Clock sequencer.FrameClock
}

// Surface is the projector window. It is a pure consumer of the channel: it
// never mutates styles or live state, it only mirrors them.
type Surface struct {
	logger *zap.Logger
	deps   Deps

	mu     sync.Mutex
	open   bool
	cancel context.CancelFunc
	group  *errgroup.Group
	subs   []*channel.Subscription

	// renderMu serialises rendering between the sequencer and style updates
	renderMu  sync.Mutex
	runCtx    context.Context
	styles    domain.StylePair
	current   *sequencer.Frame
	last      image.Image
	opacity   float64
	videoLive bool
}

// NewSurface creates a closed projector surface
func NewSurface(logger *zap.Logger, deps Deps) *Surface {
	return &Surface{
		logger: logger,
		deps:   deps,
		styles: domain.DefaultStylePair(),
	}
}

// IsOpen reports whether the projector is subscribed to the channel
func (s *Surface) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// OpenProjector implements domain.WindowController. Opening an open
// projector only brings it forward. A freshly opened projector is blank.
func (s *Surface) OpenProjector(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		s.logger.Debug("Projector already open")
		return nil
	}

	live := s.deps.Bus.Subscribe(channel.TopicLive)
	styles := s.deps.Bus.Subscribe(channel.TopicStyles)
	video := s.deps.Bus.Subscribe(channel.TopicVideo)
	s.subs = []*channel.Subscription{live, styles, video}

	if err := s.deps.Guard.Inhibit(ctx); err != nil {
		s.logger.Warn("Failed to inhibit screensaver", zap.Error(err))
	}

	seq := sequencer.New(s.logger, s.deps.Measurer, s, s.deps.Config, s.deps.Clock)
	w, h := s.deps.Comp.TextArea()
	seq.Resize(sequencer.Box{W: w, H: h})
	seq.OnStateChange(func(st sequencer.State) {
		s.logger.Debug("Transition state", zap.Stringer("state", st))
	})

	runCtx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(runCtx)
	s.cancel = cancel
	s.group = g

	s.renderMu.Lock()
	s.runCtx = gctx
	s.styles = domain.DefaultStylePair()
	s.current = nil
	s.last = s.deps.Comp.Blank()
	s.opacity = 1
	s.videoLive = false
	s.write(s.last)
	s.renderMu.Unlock()

	g.Go(func() error {
		seq.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return s.dispatch(gctx, seq, live, styles, video)
	})

	s.open = true
	s.logger.Info("Projector opened")
	return nil
}

// CloseProjector implements domain.WindowController. Messages published
// while closed are dropped by the channel.
func (s *Surface) CloseProjector(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil
	}
	s.open = false

	for _, sub := range s.subs {
		sub.Close()
	}
	s.subs = nil
	s.cancel()

	var err error
	if werr := s.group.Wait(); werr != nil && !errors.Is(werr, context.Canceled) {
		err = multierr.Append(err, werr)
	}

	s.renderMu.Lock()
	if s.videoLive {
		err = multierr.Append(err, s.deps.Player.Stop(ctx))
		s.videoLive = false
	}
	s.current = nil
	s.last = s.deps.Comp.Blank()
	err = multierr.Append(err, s.deps.Sink.Write(s.last))
	s.renderMu.Unlock()

	err = multierr.Append(err, s.deps.Guard.Release(ctx))

	s.logger.Info("Projector closed")
	return err
}

func (s *Surface) dispatch(ctx context.Context, seq *sequencer.Sequencer, live, styles, video *channel.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case env, ok := <-live.C():
			if !ok {
				return nil
			}
			item, err := channel.Decode[domain.ContentItem](env)
			if err != nil {
				s.logger.Warn("Malformed live content", zap.Error(err))
				continue
			}
			if err := seq.Submit(ctx, item); err != nil {
				return nil
			}

		case env, ok := <-styles.C():
			if !ok {
				return nil
			}
			pair, err := channel.Decode[domain.StylePair](env)
			if err != nil {
				s.logger.Warn("Malformed styles", zap.Error(err))
				continue
			}
			s.applyStyles(pair)

		case env, ok := <-video.C():
			if !ok {
				return nil
			}
			action, err := channel.Decode[domain.VideoAction](env)
			if err != nil {
				s.logger.Warn("Malformed video action", zap.Error(err))
				continue
			}
			s.videoControl(ctx, action)
		}
	}
}

// applyStyles replaces the mirrored pair and redraws live text in its new
// style. Pairs older than the mirrored one are ignored. While a transition has
// faded the frame out only the pair is stored; the next Present uses it.
func (s *Surface) applyStyles(pair domain.StylePair) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	if pair.Version < s.styles.Version {
		s.logger.Debug("Stale styles ignored",
			zap.Uint64("version", pair.Version),
			zap.Uint64("mirrored", s.styles.Version))
		return
	}
	s.styles = pair
	s.logger.Debug("Styles mirrored", zap.Uint64("version", pair.Version))

	if s.current == nil || !s.current.Item.Category.IsText() || s.opacity < 1 {
		return
	}
	s.present(*s.current)
}

func (s *Surface) videoControl(ctx context.Context, action domain.VideoAction) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	if !s.videoLive {
		s.logger.Debug("No video displayed, transport ignored", zap.String("action", string(action)))
		return
	}

	var err error
	switch action {
	case domain.VideoPlay:
		err = s.deps.Player.Play(ctx)
	case domain.VideoPause:
		err = s.deps.Player.Pause(ctx)
	case domain.VideoRestart:
		err = s.deps.Player.Restart(ctx)
	default:
		s.logger.Warn("Unknown video action", zap.String("action", string(action)))
		return
	}
	if err != nil {
		s.logger.Error("Video transport failed", zap.String("action", string(action)), zap.Error(err))
	}
}

// SetOpacity implements sequencer.Presenter
func (s *Surface) SetOpacity(opacity float64) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	if opacity <= 0 && s.videoLive {
		if err := s.deps.Player.Stop(s.runCtx); err != nil {
			s.logger.Warn("Failed to stop video", zap.Error(err))
		}
		s.videoLive = false
	}
	s.opacity = opacity
	if s.last == nil {
		return
	}
	s.write(s.deps.Comp.Dim(s.last, opacity))
}

// Present implements sequencer.Presenter
func (s *Surface) Present(frame sequencer.Frame) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	s.present(frame)
}

// present renders frame; caller holds renderMu
func (s *Surface) present(frame sequencer.Frame) {
	img, err := s.render(s.runCtx, frame)
	if err != nil {
		s.logger.Error("Failed to render live content",
			zap.String("category", string(frame.Item.Category)),
			zap.Error(err))
		img = s.deps.Comp.Blank()
	}
	s.current = &frame
	s.last = img
	s.opacity = frame.Opacity
	s.write(s.deps.Comp.Dim(img, frame.Opacity))

	s.logger.Debug("Frame presented",
		zap.Uint64("seq", frame.Seq),
		zap.String("category", string(frame.Item.Category)),
		zap.Int("fontSize", frame.FontSize))
}

func (s *Surface) render(ctx context.Context, frame sequencer.Frame) (image.Image, error) {
	item := frame.Item
	switch item.Category {
	case domain.CategoryScripture, domain.CategorySong:
		set, _ := style.ResolveActive(s.styles, item.Category)
		bg, err := s.background(ctx, set)
		if err != nil {
			s.logger.Warn("Background unavailable, using colour", zap.Error(err))
		}
		return s.deps.Comp.Text(item.Text(), frame.FontSize, set, bg)

	case domain.CategoryImage:
		img, err := s.decode(ctx, item.Path())
		if err != nil {
			return nil, err
		}
		return s.deps.Comp.Media(img, item.Image.Fit), nil

	case domain.CategoryPdf:
		path, err := s.deps.Media.Resolve(ctx, item.Path())
		if err != nil {
			return nil, err
		}
		page, err := s.deps.Pages.Page(ctx, path, item.Pdf.Page)
		if err != nil {
			return nil, err
		}
		img, err := processor.Decode(page)
		if err != nil {
			return nil, err
		}
		return s.deps.Comp.Media(img, domain.FitContain), nil

	case domain.CategoryVideo:
		path, err := s.deps.Media.Resolve(ctx, item.Path())
		if err != nil {
			return nil, err
		}
		if err := s.deps.Player.Load(ctx, path, item.Video.Loop); err != nil {
			return nil, err
		}
		s.videoLive = true
		return s.deps.Comp.Blank(), nil
	}
	return nil, fmt.Errorf("unknown category %q", item.Category)
}

// background loads the image behind styled text; a background video
// contributes its first frame
func (s *Surface) background(ctx context.Context, set domain.StyleSet) (image.Image, error) {
	switch {
	case set.BackgroundImage != "":
		return s.decode(ctx, set.BackgroundImage)
	case set.BackgroundVideo != "":
		path, err := s.deps.Media.Resolve(ctx, set.BackgroundVideo)
		if err != nil {
			return nil, err
		}
		poster, err := s.deps.Posters.Poster(ctx, path)
		if err != nil {
			return nil, err
		}
		return processor.Decode(poster)
	}
	return nil, nil
}

func (s *Surface) decode(ctx context.Context, p string) (image.Image, error) {
	path, err := s.deps.Media.Resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	return processor.Decode(path)
}

func (s *Surface) write(frame image.Image) {
	if err := s.deps.Sink.Write(frame); err != nil {
		s.logger.Error("Failed to write frame", zap.Error(err))
	}
}
