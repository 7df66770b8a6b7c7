package channel

import (
	"context"
	"testing"
	"time"

	"github.com/genricoloni/versecast/internal/domain"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

func receive(t *testing.T, sub *Subscription) Envelope {
	t.Helper()
	select {
	case env, ok := <-sub.C():
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("Timeout: message was not delivered")
	}
	return Envelope{}
}

func TestBus_PublishDelivers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()

	sub := bus.Subscribe(TopicLive)
	item := domain.NewVerse("RVR1960", "Juan", 3, 16, "Porque de tal manera amó Dios al mundo")
	bus.Publish(context.Background(), TopicLive, item)

	env := receive(t, sub)
	if env.Topic != TopicLive || env.Seq != 1 {
		t.Errorf("unexpected envelope header %s/%d", env.Topic, env.Seq)
	}
	got, err := Decode[domain.ContentItem](env)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !domain.Equal(got, item) || got.Verse.Text != item.Verse.Text || got.Verse.Version != "RVR1960" {
		t.Errorf("payload mismatch: %+v", got.Verse)
	}
}

func TestBus_FIFOPerTopic(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()

	sub := bus.Subscribe(TopicLive)
	for i := 1; i <= 5; i++ {
		bus.Publish(context.Background(), TopicLive, domain.NewSlide(1, "Song", i, ""))
	}
	for i := 1; i <= 5; i++ {
		item, err := Decode[domain.ContentItem](receive(t, sub))
		if err != nil {
			t.Fatal(err)
		}
		if item.Slide.Index != i {
			t.Errorf("message %d out of order: got slide %d", i, item.Slide.Index)
		}
	}
}

func TestBus_TopicsAreIndependent(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()

	live := bus.Subscribe(TopicLive)
	video := bus.Subscribe(TopicVideo)

	bus.Publish(context.Background(), TopicVideo, domain.VideoPause)

	env := receive(t, video)
	action, err := Decode[domain.VideoAction](env)
	if err != nil || action != domain.VideoPause {
		t.Errorf("got %q, %v", action, err)
	}
	select {
	case env := <-live.C():
		t.Errorf("live subscriber received %s message", env.Topic)
	default:
	}
}

func TestBus_DropsWithoutSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()

	// Nothing listening: must not block or panic
	bus.Publish(context.Background(), TopicStyles, domain.DefaultStylePair())

	sub := bus.Subscribe(TopicStyles)
	select {
	case <-sub.C():
		t.Error("messages published before subscribing must not be replayed")
	default:
	}
}

func TestBus_FullQueueDrops(t *testing.T) {
	const extra = 10

	tests := []struct {
		name     string
		topic    Topic
		firstSeq uint64
		lastSeq  uint64
	}{
		{name: "VideoKeepsOldest", topic: TopicVideo, firstSeq: 1, lastSeq: defaultQueueSize},
		{name: "LiveKeepsNewest", topic: TopicLive, firstSeq: extra + 1, lastSeq: defaultQueueSize + extra},
		{name: "StylesKeepsNewest", topic: TopicStyles, firstSeq: extra + 1, lastSeq: defaultQueueSize + extra},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewBus(zap.NewNop())
			defer bus.Close()

			sub := bus.Subscribe(tt.topic)
			for i := 0; i < defaultQueueSize+extra; i++ {
				bus.Publish(context.Background(), tt.topic, i)
			}
			if n := len(sub.C()); n != defaultQueueSize {
				t.Fatalf("queue length = %d, want %d", n, defaultQueueSize)
			}

			first := receive(t, sub)
			var last Envelope
			for len(sub.C()) > 0 {
				last = <-sub.C()
			}
			if first.Seq != tt.firstSeq || last.Seq != tt.lastSeq {
				t.Errorf("queued seq %d..%d, want %d..%d", first.Seq, last.Seq, tt.firstSeq, tt.lastSeq)
			}
		})
	}
}

func TestBus_ClosedIsSafe(t *testing.T) {
	bus := NewBus(zap.NewNop())
	sub := bus.Subscribe(TopicLive)

	sub.Close()
	sub.Close()
	bus.Publish(context.Background(), TopicLive, domain.NewImage("/a.png", domain.FitCover))

	if _, ok := <-sub.C(); ok {
		t.Error("closed subscription must not deliver")
	}

	other := bus.Subscribe(TopicLive)
	bus.Close()
	bus.Close()
	bus.Publish(context.Background(), TopicLive, domain.NewImage("/a.png", domain.FitCover))
	if _, ok := <-other.C(); ok {
		t.Error("subscription must be closed with the bus")
	}

	late := bus.Subscribe(TopicLive)
	if _, ok := <-late.C(); ok {
		t.Error("subscribing to a closed bus must return a closed subscription")
	}
	late.Close()
}

func TestBus_CancelledContextDrops(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()
	sub := bus.Subscribe(TopicVideo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, TopicVideo, domain.VideoPlay)

	if len(sub.C()) != 0 {
		t.Error("publish with cancelled context must be dropped")
	}
}

func TestWireFormat_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		check   func(t *testing.T, env Envelope)
	}{
		{
			name:    "Video item keeps boolean",
			payload: domain.NewVideo("/clips/intro.mp4", true),
			check: func(t *testing.T, env Envelope) {
				item, err := Decode[domain.ContentItem](env)
				if err != nil || item.Category != domain.CategoryVideo || !item.Video.Loop {
					t.Errorf("got %+v, %v", item.Video, err)
				}
			},
		},
		{
			name:    "PDF page keeps number",
			payload: domain.NewPdfPage("/docs/culto.pdf", 12),
			check: func(t *testing.T, env Envelope) {
				item, err := Decode[domain.ContentItem](env)
				if err != nil || item.Pdf.Page != 12 {
					t.Errorf("got %+v, %v", item.Pdf, err)
				}
			},
		},
		{
			name: "Style pair keeps UTF-8 paths",
			payload: domain.StylePair{
				Scripture: domain.StyleSet{BackgroundColor: "#112233", TextColor: "#ffffff"},
				Song:      domain.StyleSet{BackgroundColor: "transparent", TextColor: "#facc15", BackgroundImage: "/fondos/montaña.jpg"},
				Version:   7,
			},
			check: func(t *testing.T, env Envelope) {
				pair, err := Decode[domain.StylePair](env)
				if err != nil || pair.Song.BackgroundImage != "/fondos/montaña.jpg" || pair.Version != 7 {
					t.Errorf("got %+v, %v", pair, err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewBus(zap.NewNop())
			defer bus.Close()
			sub := bus.Subscribe(TopicLive)
			bus.Publish(context.Background(), TopicLive, tt.payload)

			// Pass the envelope through its own wire encoding as well
			raw, err := json.Marshal(receive(t, sub))
			if err != nil {
				t.Fatal(err)
			}
			var env Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				t.Fatal(err)
			}
			tt.check(t, env)
		})
	}
}

func TestWireFormat_FieldNames(t *testing.T) {
	raw, err := json.Marshal(domain.NewSlide(3, "Santo", 2, "Santo, santo, santo"))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"category":"song","slide":{"songId":3,"songTitle":"Santo","slideIndex":2,"text":"Santo, santo, santo"}}`
	if string(raw) != want {
		t.Errorf("wire format changed:\n got %s\nwant %s", raw, want)
	}
}
