// Package narrate fans narration checkpoints out to interested
// listeners. Delivery is fire-and-forget: a slow or absent listener
// never blocks the producing core.
package narrate

import (
	"log/slog"
	"sync"
	"time"
)

// Sink receives narration checkpoints. Implementations must not block.
type Sink interface {
	Notify(text, eventType string)
}

// Event is one narration checkpoint.
type Event struct {
	Text      string    `json:"text"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Broadcaster distributes events to subscriber channels. Sends are
// non-blocking; an event is dropped for a subscriber whose buffer is
// full.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int

	logger *slog.Logger
	now    func() time.Time
}

// NewBroadcaster builds an empty broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subs:   make(map[int]chan Event),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Notify implements Sink. It never blocks and never fails.
func (b *Broadcaster) Notify(text, eventType string) {
	event := Event{Text: text, Type: eventType, Timestamp: b.now()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.Debug("narration event dropped",
				slog.Int("subscriber", id),
				slog.String("type", eventType),
			)
		}
	}
}

// Subscribe registers a listener with the given buffer size and returns
// its channel plus a cancel function. Cancel closes the channel.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// SubscriberCount reports how many listeners are registered.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// LogSink narrates into a structured logger, for CLI runs that want the
// checkpoints visible without any other listener attached.
type LogSink struct {
	Logger *slog.Logger
}

// Notify implements Sink.
func (s LogSink) Notify(text, eventType string) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("narration",
		slog.String("type", eventType),
		slog.String("text", text),
	)
}

// Multi fans one Notify out to several sinks.
type Multi []Sink

// Notify implements Sink.
func (m Multi) Notify(text, eventType string) {
	for _, s := range m {
		if s != nil {
			s.Notify(text, eventType)
		}
	}
}
