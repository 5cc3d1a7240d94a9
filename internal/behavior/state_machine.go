// Package behavior turns asynchronous chat signals into a discrete
// behavioral state and a continuously smoothed movement pattern.
package behavior

import (
	"math"
	"time"

	"github.com/normanking/puppyavatar/internal/movement"
)

const (
	DefaultSmoothing    = 0.1
	DefaultMaxDeltaTime = 0.1

	// referenceFPS is the frame rate the smoothing factor is tuned for.
	referenceFPS = 60.0
)

// Signals is the chat-side input to the state machine.
type Signals struct {
	IsSpeaking           bool
	UserIsTyping         bool
	Intensity            movement.Intensity
	LastMessageLength    int
	TimeSinceLastMessage time.Duration
}

// Transition describes a change of state or effective intensity.
type Transition struct {
	From          movement.State
	To            movement.State
	FromIntensity movement.Intensity
	ToIntensity   movement.Intensity
}

// StateChanged reports whether the discrete state differs.
func (t Transition) StateChanged() bool {
	return t.From != t.To
}

// StateMachine holds the current state and the smoothed pattern. It is not
// safe for concurrent use.
type StateMachine struct {
	smoothing float64
	maxDelta  float64
	base      movement.Intensity

	signals   Signals
	state     movement.State
	intensity movement.Intensity
	typingFor time.Duration

	current movement.Pattern
	target  movement.Pattern
}

// Option configures a StateMachine.
type Option func(*StateMachine)

// WithSmoothing sets the per-frame smoothing factor at the reference frame
// rate. Values outside (0, 1] are ignored.
func WithSmoothing(f float64) Option {
	return func(m *StateMachine) {
		if f > 0 && f <= 1 {
			m.smoothing = f
		}
	}
}

// WithMaxDeltaTime caps the dt a single UpdateTransition integrates.
func WithMaxDeltaTime(seconds float64) Option {
	return func(m *StateMachine) {
		if seconds > 0 && !math.IsInf(seconds, 1) {
			m.maxDelta = seconds
		}
	}
}

// WithIntensity sets the configured intensity used before the first
// UpdateState and after Reset.
func WithIntensity(i movement.Intensity) Option {
	return func(m *StateMachine) {
		m.base = i.Normalize()
	}
}

// NewStateMachine creates a machine at idle with its pattern already
// settled on the idle baseline.
func NewStateMachine(opts ...Option) *StateMachine {
	m := &StateMachine{
		smoothing: DefaultSmoothing,
		maxDelta:  DefaultMaxDeltaTime,
		base:      movement.IntensitySubtle,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.Reset()
	return m
}

// Reset returns to idle with the pattern settled on the idle baseline.
func (m *StateMachine) Reset() {
	m.signals = Signals{Intensity: m.base}
	m.state = movement.StateIdle
	m.intensity = m.base
	m.typingFor = 0
	m.target = movement.Resolve(m.state, m.intensity)
	m.current = m.target
}

// UpdateState records sig, reclassifies and retargets the pattern. The
// smoothed pattern itself only moves in UpdateTransition. The returned bool
// is true when the state or the effective intensity changed.
func (m *StateMachine) UpdateState(sig Signals) (Transition, bool) {
	if !sig.UserIsTyping {
		m.typingFor = 0
	}
	m.signals = sig

	next := movement.Classify(sig.IsSpeaking, sig.UserIsTyping)
	intensity := movement.Escalate(sig.Intensity, sig.LastMessageLength, sig.IsSpeaking, sig.UserIsTyping)

	tr := Transition{
		From:          m.state,
		To:            next,
		FromIntensity: m.intensity,
		ToIntensity:   intensity,
	}
	m.state = next
	m.intensity = intensity
	m.retarget()

	return tr, tr.From != tr.To || tr.FromIntensity != tr.ToIntensity
}

// UpdateTransition advances the smoothed pattern toward the target by dt
// seconds and returns it. Invalid dt is a no-op.
func (m *StateMachine) UpdateTransition(dt float64) movement.Pattern {
	if !(dt > 0) {
		return m.current
	}
	if dt > m.maxDelta {
		dt = m.maxDelta
	}

	if m.signals.UserIsTyping {
		m.typingFor += time.Duration(dt * float64(time.Second))
		m.retarget()
	}

	m.current = m.current.Lerp(&m.target, SmoothingAlpha(m.smoothing, dt))
	return m.current
}

func (m *StateMachine) retarget() {
	mod := movement.Modulation{
		SpeakingIntensity: movement.SpeakingIntensityFor(m.signals.LastMessageLength),
		Attentiveness:     movement.AttentivenessFor(m.typingFor),
	}
	m.target = movement.ResolveModulated(m.state, m.intensity, mod)
}

// CurrentMovementPattern returns the smoothed pattern.
func (m *StateMachine) CurrentMovementPattern() movement.Pattern {
	return m.current
}

// TargetPattern returns the pattern being approached.
func (m *StateMachine) TargetPattern() movement.Pattern {
	return m.target
}

// State returns the discrete state from the last UpdateState.
func (m *StateMachine) State() movement.State {
	return m.state
}

// Intensity is the effective intensity after escalation.
func (m *StateMachine) Intensity() movement.Intensity {
	return m.intensity
}

// Signals returns the signals passed to the last UpdateState.
func (m *StateMachine) Signals() Signals {
	return m.signals
}

// TypingDuration is how long the user has been typing, as seen by ticks.
func (m *StateMachine) TypingDuration() time.Duration {
	return m.typingFor
}

// SmoothingAlpha converts a per-frame factor at 60 fps into the blend
// weight for a step of dt seconds.
func SmoothingAlpha(factor, dt float64) float64 {
	if !(dt > 0) || !(factor > 0) {
		return 0
	}
	if factor >= 1 {
		return 1
	}
	return 1 - math.Pow(1-factor, dt*referenceFPS)
}
