package style

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/genricoloni/versecast/internal/channel"
	"github.com/genricoloni/versecast/internal/domain"
	"go.uber.org/zap"
)

// DefaultMaxBackgroundVideo caps the length of looping background videos
const DefaultMaxBackgroundVideo = 60 * time.Second

// Target selects which half of the style pair a mutation applies to
type Target string

const (
	TargetScripture Target = "scripture"
	TargetSong      Target = "song"
)

// ParseTarget accepts "scripture"/"song" and their short forms
func ParseTarget(s string) (Target, error) {
	switch s {
	case "scripture", "bible":
		return TargetScripture, nil
	case "song", "songs":
		return TargetSong, nil
	}
	return "", fmt.Errorf("unknown style target %q", s)
}

// Patch is a partial StyleSet; nil fields are left unchanged
type Patch struct {
	BackgroundColor *string
	TextColor       *string
	BackgroundImage *string
	BackgroundVideo *string
}

// Apply merges p into set. Setting an image clears the video and vice versa;
// a patch carrying only a background color clears both media backgrounds.
func Apply(set domain.StyleSet, p Patch) domain.StyleSet {
	if p.BackgroundColor != nil {
		set.BackgroundColor = *p.BackgroundColor
	}
	if p.TextColor != nil {
		set.TextColor = *p.TextColor
	}
	if p.BackgroundImage != nil {
		set.BackgroundImage = *p.BackgroundImage
		if set.BackgroundImage != "" {
			set.BackgroundVideo = ""
		}
	}
	if p.BackgroundVideo != nil {
		set.BackgroundVideo = *p.BackgroundVideo
		if set.BackgroundVideo != "" {
			set.BackgroundImage = ""
		}
	}
	if p.BackgroundColor != nil && p.BackgroundImage == nil && p.BackgroundVideo == nil {
		set.BackgroundImage = ""
		set.BackgroundVideo = ""
	}
	return set
}

// ResolveActive returns the style set for a category. Full-frame media
// categories bypass styles and report false.
func ResolveActive(pair domain.StylePair, c domain.Category) (domain.StyleSet, bool) {
	switch c {
	case domain.CategoryScripture:
		return pair.Scripture, true
	case domain.CategorySong:
		return pair.Song, true
	default:
		return domain.StyleSet{}, false
	}
}

// Resolver owns the scripture and song style sets on the control side and
// mirrors the whole pair to the projector after every change
type Resolver struct {
	logger   *zap.Logger
	pub      channel.Publisher
	probe    domain.DurationProbe
	maxVideo time.Duration

	mu     sync.Mutex
	pair   domain.StylePair
	recent []string
}

// NewResolver creates a resolver with default styles
func NewResolver(logger *zap.Logger, pub channel.Publisher, probe domain.DurationProbe, cfg domain.Config) *Resolver {
	maxVideo := cfg.GetMaxBackgroundVideo()
	if maxVideo <= 0 {
		maxVideo = DefaultMaxBackgroundVideo
	}
	return &Resolver{
		logger:   logger,
		pub:      pub,
		probe:    probe,
		maxVideo: maxVideo,
		pair:     domain.DefaultStylePair(),
	}
}

// Pair returns a copy of the current style pair
func (r *Resolver) Pair() domain.StylePair {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pair
}

// Active returns the style that applies to the given category right now
func (r *Resolver) Active(c domain.Category) (domain.StyleSet, bool) {
	return ResolveActive(r.Pair(), c)
}

// Mutate applies patch to the target set, bumps the version and broadcasts the full pair
func (r *Resolver) Mutate(ctx context.Context, target Target, patch Patch) domain.StylePair {
	r.mu.Lock()
	switch target {
	case TargetSong:
		r.pair.Song = Apply(r.pair.Song, patch)
	default:
		r.pair.Scripture = Apply(r.pair.Scripture, patch)
	}
	r.pair.Version++
	pair := r.pair

	// published under the lock so pairs leave in version order
	r.pub.Publish(ctx, channel.TopicStyles, pair)
	r.mu.Unlock()

	r.logger.Debug("Styles updated",
		zap.String("target", string(target)),
		zap.Uint64("version", pair.Version))
	return pair
}

// Broadcast re-sends the current pair, used after the projector (re)opens
func (r *Resolver) Broadcast(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pub.Publish(ctx, channel.TopicStyles, r.pair)
}

// SetBackgroundColor sets a plain background, clearing image and video
func (r *Resolver) SetBackgroundColor(ctx context.Context, target Target, color string) domain.StylePair {
	return r.Mutate(ctx, target, Patch{BackgroundColor: &color})
}

// SetTextColor changes only the text color
func (r *Resolver) SetTextColor(ctx context.Context, target Target, color string) domain.StylePair {
	return r.Mutate(ctx, target, Patch{TextColor: &color})
}

// SetBackgroundImage puts an image behind the text of target
func (r *Resolver) SetBackgroundImage(ctx context.Context, target Target, path string) domain.StylePair {
	transparent := "transparent"
	r.remember(path)
	return r.Mutate(ctx, target, Patch{BackgroundImage: &path, BackgroundColor: &transparent})
}

// SetBackgroundVideo puts a looping video behind the text of target.
// Videos longer than the configured cap are rejected with ErrVideoTooLong and
// the styles are left untouched.
func (r *Resolver) SetBackgroundVideo(ctx context.Context, target Target, path string) (domain.StylePair, error) {
	d, err := r.probe.Duration(ctx, path)
	if err != nil {
		r.logger.Error("Failed to probe background video", zap.String("path", path), zap.Error(err))
		return r.Pair(), fmt.Errorf("probe background video: %w", err)
	}
	if d > r.maxVideo {
		r.logger.Warn("Background video rejected",
			zap.String("path", path),
			zap.Duration("duration", d),
			zap.Duration("max", r.maxVideo))
		return r.Pair(), fmt.Errorf("%w: %s is %s, limit is %s", domain.ErrVideoTooLong, path, d.Round(time.Second), r.maxVideo)
	}

	transparent := "transparent"
	r.remember(path)
	return r.Mutate(ctx, target, Patch{BackgroundVideo: &path, BackgroundColor: &transparent}), nil
}

// Recent lists background files chosen this session, oldest first
func (r *Resolver) Recent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.recent)
}

func (r *Resolver) remember(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if path != "" && !slices.Contains(r.recent, path) {
		r.recent = append(r.recent, path)
	}
}
