package report

import (
	"sync"
)

type Broadcaster[E any] struct {
	mu          sync.Mutex
	subscribers []chan E
	lastValue   *E
	bufSize     int
	dropped     int
}

// creates a new Broadcaster instance
// E is the type of events that will be broadcasted
// New subscribers will receive the last broadcasted value immediately upon subscription
func NewBroadcaster[E any](bufSize int) *Broadcaster[E] {
	return &Broadcaster[E]{
		subscribers: make([]chan E, 0),
		bufSize:     max(bufSize, 1),
	}
}

func (b *Broadcaster[E]) Subscribe() <-chan E {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan E, b.bufSize)
	b.subscribers = append(b.subscribers, ch)
	if b.lastValue != nil {
		ch <- *b.lastValue
	}
	return ch
}

func (b *Broadcaster[E]) Unsubscribe(ch <-chan E) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, subscriber := range b.subscribers {
		if subscriber == ch {
			close(subscriber)
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// Broadcast never blocks. Subscribers with a full channel miss the event.
func (b *Broadcaster[E]) Broadcast(event E) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastValue = &event
	for _, subscriber := range b.subscribers {
		select {
		case subscriber <- event:
		default:
			b.dropped++
		}
	}
}

// Dropped returns the number of events a subscriber missed.
func (b *Broadcaster[E]) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close closes all subscriber channels.
func (b *Broadcaster[E]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, subscriber := range b.subscribers {
		close(subscriber)
	}
	b.subscribers = nil
}
