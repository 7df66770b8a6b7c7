// Package sequencer runs the projector's hide, measure and show cycle so a
// content change is never visible at the wrong size.
package sequencer

import (
	"context"
	"sync"
	"time"

	"github.com/genricoloni/versecast/internal/domain"
	"go.uber.org/zap"
)

// DefaultFadeDelay is how long the surface stays hidden before the swap
const DefaultFadeDelay = 250 * time.Millisecond

// State is the phase of the transition cycle
type State int

const (
	Idle State = iota
	FadingOut
	Measuring
	FadingIn
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FadingOut:
		return "fading-out"
	case Measuring:
		return "measuring"
	case FadingIn:
		return "fading-in"
	}
	return "unknown"
}

// Frame is what the presenter shows once a cycle completes
type Frame struct {
	Item     domain.ContentItem
	FontSize int // zero for media categories
	Box      Box
	Opacity  float64
	Seq      uint64
}

// Presenter is the surface the sequencer drives
type Presenter interface {
	// SetOpacity hides (0) or shows (1) the current content
	SetOpacity(opacity float64)
	// Present swaps in a measured frame at full opacity
	Present(frame Frame)
}

// FrameClock signals the next frame boundary
type FrameClock interface {
	Next() <-chan time.Time
}

type intervalClock struct {
	interval time.Duration
}

func (c intervalClock) Next() <-chan time.Time {
	return time.After(c.interval)
}

// NewFrameClock returns a clock ticking at fps frames per second
func NewFrameClock(fps int) FrameClock {
	if fps <= 0 {
		fps = 60
	}
	return intervalClock{interval: time.Second / time.Duration(fps)}
}

// Sequencer orchestrates transitions between live items.
// Only the newest submitted item is ever shown: a submit during an unfinished
// cycle restarts it with the new item.
type Sequencer struct {
	logger    *zap.Logger
	measurer  domain.TextMeasurer
	presenter Presenter
	clock     FrameClock
	fadeDelay time.Duration
	incoming  chan domain.ContentItem

	mu      sync.Mutex
	state   State
	box     Box
	onState func(State)
	seq     uint64
}

// New creates a sequencer; call Run to start it
func New(logger *zap.Logger, measurer domain.TextMeasurer, presenter Presenter, cfg domain.Config, clock FrameClock) *Sequencer {
	delay := cfg.GetFadeDelay()
	if delay <= 0 {
		delay = DefaultFadeDelay
	}
	if clock == nil {
		clock = NewFrameClock(60)
	}
	return &Sequencer{
		logger:    logger,
		measurer:  measurer,
		presenter: presenter,
		clock:     clock,
		fadeDelay: delay,
		incoming:  make(chan domain.ContentItem, 16),
	}
}

// OnStateChange registers a hook called on every state transition
func (s *Sequencer) OnStateChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onState = fn
}

// State returns the current phase
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Resize sets the text box used by the next measurement
func (s *Sequencer) Resize(box Box) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.box = box
}

// Submit queues a new live item. The same item submitted twice runs two full cycles.
func (s *Sequencer) Submit(ctx context.Context, item domain.ContentItem) error {
	select {
	case s.incoming <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes submissions until ctx is cancelled
func (s *Sequencer) Run(ctx context.Context) {
	timer := time.NewTimer(s.fadeDelay)
	timer.Stop()

	var pending *domain.ContentItem
	begin := func(item domain.ContentItem) {
		if pending != nil {
			s.logger.Debug("Transition superseded", zap.String("category", string(item.Category)))
		}
		pending = &item
		s.presenter.SetOpacity(0)
		s.setState(FadingOut)
		timer.Reset(s.fadeDelay)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sequencer loop stopped")
			return

		case item := <-s.incoming:
			begin(item)

		case <-timer.C:
			if pending == nil {
				continue
			}
			frame := s.measure(*pending)

			// The new size is applied on the frame boundary; a submit before it wins.
			s.setState(FadingIn)
			select {
			case <-ctx.Done():
				return
			case item := <-s.incoming:
				begin(item)
			case <-s.clock.Next():
				frame.Seq = s.nextSeq()
				s.presenter.Present(frame)
				pending = nil
				s.setState(Idle)
			}
		}
	}
}

func (s *Sequencer) measure(item domain.ContentItem) Frame {
	s.setState(Measuring)

	s.mu.Lock()
	box := s.box
	s.mu.Unlock()

	frame := Frame{Item: item, Box: box, Opacity: 1}
	if !item.Category.IsText() {
		return frame
	}
	frame.FontSize = Fit(s.measurer, item.Text(), box)
	s.logger.Debug("Text fitted",
		zap.Int("fontSize", frame.FontSize),
		zap.Int("boxWidth", box.W),
		zap.Int("boxHeight", box.H))
	return frame
}

func (s *Sequencer) nextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

func (s *Sequencer) setState(st State) {
	s.mu.Lock()
	s.state = st
	hook := s.onState
	s.mu.Unlock()

	if hook != nil {
		hook(st)
	}
}
