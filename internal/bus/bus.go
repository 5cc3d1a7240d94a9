// Package bus provides an internal event bus for component communication
package bus

import (
	"sync"
)

// EventType identifies different event types
type EventType string

const (
	// Chat events, produced by the chat transport or the stream server
	EventTypeSpeakingStarted  EventType = "chat.speaking_started"
	EventTypeSpeakingStopped  EventType = "chat.speaking_stopped"
	EventTypeTypingStarted    EventType = "chat.typing_started"
	EventTypeTypingStopped    EventType = "chat.typing_stopped"
	EventTypeMessage          EventType = "chat.message"
	EventTypeIntensityChanged EventType = "chat.intensity_changed"

	// Avatar events
	EventTypeAvatarStateChanged  EventType = "avatar.state_changed"
	EventTypeAvatarPresetChanged EventType = "avatar.preset_changed"

	// Config events
	EventTypeConfigReloaded EventType = "config.reloaded"
)

// ChatEventTypes lists every event a signal bridge listens to.
var ChatEventTypes = []EventType{
	EventTypeSpeakingStarted,
	EventTypeSpeakingStopped,
	EventTypeTypingStarted,
	EventTypeTypingStopped,
	EventTypeMessage,
	EventTypeIntensityChanged,
}

// Data keys
const (
	KeyLength    = "length"
	KeyIntensity = "intensity"
	KeyFrom      = "from"
	KeyTo        = "to"
	KeyAvatarID  = "avatar_id"
	KeyPreset    = "preset"
)

// Event represents a bus event
type Event struct {
	Type EventType
	Data map[string]any
}

// Int reads an integer payload value, accepting the numeric types JSON and
// YAML decoders produce.
func (e Event) Int(key string) (int, bool) {
	switch v := e.Data[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// String reads a string payload value.
func (e Event) String(key string) (string, bool) {
	v, ok := e.Data[key].(string)
	return v, ok
}

// Handler is a function that handles events
type Handler func(Event)

// EventBus is a simple pub/sub event bus
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for an event type
func (b *EventBus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeMultiple adds a handler for multiple event types
func (b *EventBus) SubscribeMultiple(eventTypes []EventType, handler Handler) {
	for _, et := range eventTypes {
		b.Subscribe(et, handler)
	}
}

// Publish sends an event to all subscribed handlers without waiting.
// Consecutive events may reach a handler in any order; use PublishSync when
// order matters.
func (b *EventBus) Publish(event Event) {
	for _, handler := range b.snapshot(event.Type) {
		// Call handlers in goroutines to avoid blocking the render loop
		go handler(event)
	}
}

// PublishSync sends an event and waits for all handlers to complete, so
// events published in sequence are handled in sequence.
func (b *EventBus) PublishSync(event Event) {
	var wg sync.WaitGroup
	for _, handler := range b.snapshot(event.Type) {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			h(event)
		}(handler)
	}
	wg.Wait()
}

func (b *EventBus) snapshot(eventType EventType) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]Handler, len(b.handlers[eventType]))
	copy(handlers, b.handlers[eventType])
	return handlers
}

// HandlerCount returns the number of handlers for an event type
func (b *EventBus) HandlerCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// Clear removes all handlers
func (b *EventBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[EventType][]Handler)
}
