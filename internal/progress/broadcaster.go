package progress

import "sync"

// Broadcaster fans events out to any number of subscribers. Subscribers get
// a buffered channel; when a subscriber's buffer is full the event is dropped
// for that subscriber rather than stalling the pipeline.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[chan Event]struct{}),
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The unsubscribe function closes the channel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish implements Sink. Never blocks.
func (b *Broadcaster) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close unsubscribes everyone and closes their channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

var _ Sink = (*Broadcaster)(nil)
