package avatar3d

import (
	"sync"
	"time"

	"github.com/normanking/puppyavatar/internal/behavior"
	"github.com/normanking/puppyavatar/internal/bus"
	"github.com/normanking/puppyavatar/internal/movement"
)

// Default auto-clear timeouts. A chat transport that loses its "stopped"
// event must not leave the puppy speaking forever.
const (
	DefaultSpeakingTimeout = 30 * time.Second
	DefaultTypingTimeout   = 5 * time.Second
)

// SignalBridge collects chat signals written from any goroutine and hands
// the render loop a consistent snapshot per tick. Writes are last value
// wins. Intensity stays unset until WithInitialIntensity or SetIntensity,
// and the avatar then uses its configured intensity.
type SignalBridge struct {
	mu sync.RWMutex

	speaking      bool
	typing        bool
	intensity     movement.Intensity
	lastLength    int
	lastMessageAt time.Time

	speakingTimeout time.Duration
	typingTimeout   time.Duration
	speakingTimer   *time.Timer
	typingTimer     *time.Timer
	speakingGen     uint64
	typingGen       uint64

	now    func() time.Time
	closed bool
}

// BridgeOption configures a SignalBridge.
type BridgeOption func(*SignalBridge)

// WithSpeakingTimeout sets the speaking auto-clear; zero disables it.
func WithSpeakingTimeout(d time.Duration) BridgeOption {
	return func(b *SignalBridge) { b.speakingTimeout = d }
}

// WithTypingTimeout sets the typing auto-clear; zero disables it.
func WithTypingTimeout(d time.Duration) BridgeOption {
	return func(b *SignalBridge) { b.typingTimeout = d }
}

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) BridgeOption {
	return func(b *SignalBridge) {
		if now != nil {
			b.now = now
		}
	}
}

// WithInitialIntensity overrides the avatar's configured intensity from the
// first tick.
func WithInitialIntensity(i movement.Intensity) BridgeOption {
	return func(b *SignalBridge) { b.intensity = i.Normalize() }
}

// NewSignalBridge creates a bridge with the default auto-clear timeouts.
func NewSignalBridge(opts ...BridgeOption) *SignalBridge {
	b := &SignalBridge{
		speakingTimeout: DefaultSpeakingTimeout,
		typingTimeout:   DefaultTypingTimeout,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastMessageAt = b.now()
	return b
}

// SetSpeaking records whether the puppy is speaking. A true value clears
// itself after the speaking timeout unless refreshed.
func (b *SignalBridge) SetSpeaking(speaking bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.speaking = speaking
	b.speakingGen++
	gen := b.speakingGen

	stopTimer(b.speakingTimer)
	b.speakingTimer = nil
	if speaking && b.speakingTimeout > 0 {
		b.speakingTimer = time.AfterFunc(b.speakingTimeout, func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.speakingGen == gen {
				b.speaking = false
			}
		})
	}
}

// SetTyping records whether the user is typing. A true value clears itself
// after the typing timeout unless refreshed.
func (b *SignalBridge) SetTyping(typing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.typing = typing
	b.typingGen++
	gen := b.typingGen

	stopTimer(b.typingTimer)
	b.typingTimer = nil
	if typing && b.typingTimeout > 0 {
		b.typingTimer = time.AfterFunc(b.typingTimeout, func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.typingGen == gen {
				b.typing = false
			}
		})
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

// SetIntensity sets the chat's movement intensity; unknown values become
// subtle.
func (b *SignalBridge) SetIntensity(i movement.Intensity) {
	b.mu.Lock()
	b.intensity = i.Normalize()
	b.mu.Unlock()
}

// RecordMessage notes a chat message of length characters.
func (b *SignalBridge) RecordMessage(length int) {
	if length < 0 {
		length = 0
	}
	b.mu.Lock()
	b.lastLength = length
	b.lastMessageAt = b.now()
	b.mu.Unlock()
}

// Snapshot returns the signals as of now. Intensity is empty while unset.
func (b *SignalBridge) Snapshot(now time.Time) behavior.Signals {
	b.mu.RLock()
	defer b.mu.RUnlock()

	since := now.Sub(b.lastMessageAt)
	if since < 0 {
		since = 0
	}
	return behavior.Signals{
		IsSpeaking:           b.speaking,
		UserIsTyping:         b.typing,
		Intensity:            b.intensity,
		LastMessageLength:    b.lastLength,
		TimeSinceLastMessage: since,
	}
}

// Attach subscribes the bridge to the chat events on eb.
func (b *SignalBridge) Attach(eb *bus.EventBus) {
	eb.SubscribeMultiple(bus.ChatEventTypes, b.HandleEvent)
}

// HandleEvent applies one chat event. Other event types are ignored.
func (b *SignalBridge) HandleEvent(e bus.Event) {
	switch e.Type {
	case bus.EventTypeSpeakingStarted:
		b.SetSpeaking(true)
	case bus.EventTypeSpeakingStopped:
		b.SetSpeaking(false)
	case bus.EventTypeTypingStarted:
		b.SetTyping(true)
	case bus.EventTypeTypingStopped:
		b.SetTyping(false)
	case bus.EventTypeMessage:
		n, _ := e.Int(bus.KeyLength)
		b.RecordMessage(n)
	case bus.EventTypeIntensityChanged:
		if s, ok := e.String(bus.KeyIntensity); ok {
			if i, err := movement.ParseIntensity(s); err == nil {
				b.SetIntensity(i)
			}
		}
	}
}

// Close stops the auto-clear timers. Later writes are ignored.
func (b *SignalBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	stopTimer(b.speakingTimer)
	stopTimer(b.typingTimer)
	b.speakingTimer = nil
	b.typingTimer = nil
}
