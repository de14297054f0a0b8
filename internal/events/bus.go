// Package events provides a typed in-process event bus for recorder
// lifecycle notifications, built on kelindar/event.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for lifecycle event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish publishes an event to all subscribers of its concrete type.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case RecordingStartedEvent:
		event.Publish(b.dispatcher, e)
	case RecordingStoppedEvent:
		event.Publish(b.dispatcher, e)
	case ReconfiguredEvent:
		event.Publish(b.dispatcher, e)
	case SignalTimeoutEvent:
		event.Publish(b.dispatcher, e)
	case EngineDisconnectedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a handler for the event type named by the handler's
// parameter. Returns an unsubscribe function.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(RecordingStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RecordingStoppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ReconfiguredEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SignalTimeoutEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EngineDisconnectedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
