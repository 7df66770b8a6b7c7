package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Topic names one logical stream on the bus
type Topic string

const (
	// TopicLive carries a domain.ContentItem that replaces whatever is live
	TopicLive Topic = "projection.live"
	// TopicStyles carries the complete domain.StylePair
	TopicStyles Topic = "projection.styles"
	// TopicVideo carries a domain.VideoAction
	TopicVideo Topic = "projection.video"
	// TopicLibrary carries a domain.LibraryChange from storage to the control surface
	TopicLibrary Topic = "library.changed"
)

const defaultQueueSize = 16

// supersedes reports whether a newer message on topic makes queued ones
// obsolete. A full queue on such a topic drops its oldest message.
func (t Topic) supersedes() bool {
	return t == TopicLive || t == TopicStyles
}

// Envelope is the wire form of one message
type Envelope struct {
	Topic   Topic           `json:"topic"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload"`
}

// Publisher is the sending half of the bus
type Publisher interface {
	// Publish delivers payload to current subscribers of topic.
	// It never blocks and never fails: undeliverable messages are dropped.
	Publish(ctx context.Context, topic Topic, payload any)
}

// Bus is an in-process, fire-and-forget pub/sub transport between the control
// surface and the projector surface. Delivery is at-most-once and FIFO per topic.
type Bus struct {
	logger    *zap.Logger
	queueSize int

	mu     sync.Mutex
	subs   map[Topic][]*Subscription
	seq    map[Topic]uint64
	closed bool

	warnMu          sync.Mutex
	lastDropWarning time.Time // Rate limiting for "queue full" warnings
}

// NewBus creates an empty bus
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		logger:    logger,
		queueSize: defaultQueueSize,
		subs:      make(map[Topic][]*Subscription),
		seq:       make(map[Topic]uint64),
	}
}

// Subscribe attaches a new reader to topic. Messages published before the
// call are not replayed. Subscribing to a closed bus returns a closed subscription.
func (b *Bus) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{bus: b, topic: topic, ch: make(chan Envelope, b.queueSize)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.closed = true
		close(sub.ch)
		return sub
	}
	b.subs[topic] = append(b.subs[topic], sub)
	b.logger.Debug("Subscriber attached", zap.String("topic", string(topic)))
	return sub
}

// Publish encodes payload and delivers it to every subscriber of topic
func (b *Bus) Publish(ctx context.Context, topic Topic, payload any) {
	if ctx.Err() != nil {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("Failed to encode payload", zap.String("topic", string(topic)), zap.Error(err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	b.seq[topic]++
	env := Envelope{Topic: topic, Seq: b.seq[topic], Payload: raw}

	subs := b.subs[topic]
	if len(subs) == 0 {
		b.logger.Debug("No subscribers, message dropped",
			zap.String("topic", string(topic)),
			zap.Uint64("seq", env.Seq))
		return
	}

	for _, sub := range subs {
		select {
		case sub.ch <- env:
			continue
		default:
		}
		b.logQueueFullWarning(topic)
		if !topic.supersedes() {
			continue
		}
		// publishers hold b.mu, so the slot freed here stays free
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- env:
		default:
		}
	}
}

// Close detaches every subscriber and closes their queues.
// Later publishes are silently ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for topic, subs := range b.subs {
		for _, sub := range subs {
			sub.closed = true
			close(sub.ch)
		}
		delete(b.subs, topic)
	}
	b.logger.Info("Projection channel closed")
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.closed {
		return
	}
	subs := b.subs[sub.topic]
	for i, s := range subs {
		if s == sub {
			b.subs[sub.topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	sub.closed = true
	close(sub.ch)
}

// logQueueFullWarning is rate limited to one warning per interval so a stalled
// projector does not flood the log
func (b *Bus) logQueueFullWarning(topic Topic) {
	b.warnMu.Lock()
	defer b.warnMu.Unlock()

	const warningInterval = 5 * time.Second
	now := time.Now()
	if now.Sub(b.lastDropWarning) >= warningInterval {
		b.logger.Warn("Subscriber queue full, dropping a message",
			zap.String("topic", string(topic)))
		b.lastDropWarning = now
	}
}

// Subscription is the receiving half for one topic
type Subscription struct {
	bus    *Bus
	topic  Topic
	ch     chan Envelope
	closed bool // guarded by bus.mu
}

// C returns the delivery queue; it is closed when the subscription or the bus closes
func (s *Subscription) C() <-chan Envelope {
	return s.ch
}

// Topic returns the subscribed topic
func (s *Subscription) Topic() Topic {
	return s.topic
}

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}

// Decode unmarshals the payload of env into a T
func Decode[T any](env Envelope) (T, error) {
	var v T
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		return v, fmt.Errorf("decode %s payload: %w", env.Topic, err)
	}
	return v, nil
}
