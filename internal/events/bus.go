package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(TableSentEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event dispatches on the static type, so switch to it first
	switch e := ev.(type) {
	case SequencerStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case TableSentEvent:
		event.Publish(b.dispatcher, e)
	case ValidationCompletedEvent:
		event.Publish(b.dispatcher, e)
	case CommandFailedEvent:
		event.Publish(b.dispatcher, e)
	case ProgramAppliedEvent:
		event.Publish(b.dispatcher, e)
	case LEDChangedEvent:
		event.Publish(b.dispatcher, e)
	case DeviceMetricsEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e ValidationCompletedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(SequencerStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TableSentEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ValidationCompletedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CommandFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ProgramAppliedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LEDChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceMetricsEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
