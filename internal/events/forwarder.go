package events

import (
	"sync"
	"sync/atomic"

	"github.com/kelindar/event"
)

// Forwarder copies selected bus events into one buffered channel for a
// streaming client. A full buffer drops the event instead of blocking the
// publisher; drops are counted.
type Forwarder struct {
	bus     *Bus
	ch      chan any
	dropped atomic.Uint64

	mu     sync.Mutex
	unsubs []func()
}

// NewForwarder creates a forwarder with a buffer of size events.
func NewForwarder(bus *Bus, size int) *Forwarder {
	return &Forwarder{bus: bus, ch: make(chan any, size)}
}

// Forward adds events of type T to the forwarder's channel.
func Forward[T Event](f *Forwarder) {
	unsub := event.Subscribe(f.bus.dispatcher, func(e T) {
		select {
		case f.ch <- e:
		default:
			f.dropped.Add(1)
		}
	})
	f.mu.Lock()
	f.unsubs = append(f.unsubs, unsub)
	f.mu.Unlock()
}

// Events returns the channel events are delivered on.
func (f *Forwarder) Events() <-chan any {
	return f.ch
}

// Dropped returns how many events did not fit in the buffer.
func (f *Forwarder) Dropped() uint64 {
	return f.dropped.Load()
}

// Close removes every subscription. The channel is left open.
func (f *Forwarder) Close() {
	f.mu.Lock()
	unsubs := f.unsubs
	f.unsubs = nil
	f.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
}
