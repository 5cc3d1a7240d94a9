// Package avatar3d wires breathing, behavior and composition into one
// per-frame tick that drives a mounted puppy rig.
package avatar3d

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/normanking/puppyavatar/internal/behavior"
	"github.com/normanking/puppyavatar/internal/breathing"
	"github.com/normanking/puppyavatar/internal/bus"
	"github.com/normanking/puppyavatar/internal/compositor"
	"github.com/normanking/puppyavatar/internal/movement"
)

// Config tunes one avatar. Intensity applies until the signal bridge
// reports one of its own.
type Config struct {
	Intensity movement.Intensity
	// Smoothing is the movement pattern factor per 60 fps frame.
	Smoothing float64
	// ParamSmoothing blends breathing presets per 60 fps frame.
	ParamSmoothing float64
	MaxDeltaTime   float64
	// SleepAfter switches an idle avatar to the sleeping preset; zero
	// disables it.
	SleepAfter time.Duration
	Compositor compositor.Config
	Presets    breathing.Table
}

// DefaultConfig returns the tuned defaults with the built-in presets.
func DefaultConfig() Config {
	return Config{
		Intensity:      movement.IntensityAnimated,
		Smoothing:      behavior.DefaultSmoothing,
		ParamSmoothing: 0.05,
		MaxDeltaTime:   breathing.DefaultMaxDeltaTime,
		SleepAfter:     2 * time.Minute,
		Compositor:     compositor.DefaultConfig(),
		Presets:        breathing.DefaultTable(),
	}
}

// Snapshot is everything one tick produced.
type Snapshot struct {
	AvatarID  string
	Sequence  uint64
	Frame     compositor.Frame
	State     movement.State
	Intensity movement.Intensity
	Preset    breathing.PresetName
	Breathing breathing.State
	Pattern   movement.Pattern
}

// Avatar drives one puppy rig from chat signals. Tick and the accessors are
// safe to call from different goroutines.
type Avatar struct {
	mu sync.Mutex

	id      string
	cfg     Config
	signals *SignalBridge
	sink    compositor.Sink
	events  *bus.EventBus
	log     zerolog.Logger

	machine *behavior.StateMachine
	breath  *breathing.Simulator
	comp    *compositor.Compositor

	preset   breathing.PresetName
	params   breathing.Params
	sequence uint64
	last     Snapshot
	disposed bool
}

// Option configures an Avatar.
type Option func(*Avatar)

// WithEventBus publishes state and preset changes on eb.
func WithEventBus(eb *bus.EventBus) Option {
	return func(a *Avatar) { a.events = eb }
}

// WithID replaces the generated avatar ID. Empty IDs are ignored.
func WithID(id string) Option {
	return func(a *Avatar) {
		if id != "" {
			a.id = id
		}
	}
}

// Create builds an avatar reading signals and writing to sink. Either may
// be nil: without signals the avatar idles, without a sink frames are only
// returned from Tick.
func Create(cfg Config, signals *SignalBridge, sink compositor.Sink, logger zerolog.Logger, opts ...Option) *Avatar {
	if cfg.Presets.Len() == 0 {
		cfg.Presets = breathing.DefaultTable()
	}
	cfg.Intensity = cfg.Intensity.Normalize()

	a := &Avatar{
		id:      uuid.NewString(),
		cfg:     cfg,
		signals: signals,
		sink:    sink,
		machine: behavior.NewStateMachine(
			behavior.WithSmoothing(cfg.Smoothing),
			behavior.WithMaxDeltaTime(cfg.MaxDeltaTime),
			behavior.WithIntensity(cfg.Intensity),
		),
		breath: breathing.NewSimulator(breathing.Patch{}, breathing.WithMaxDeltaTime(cfg.MaxDeltaTime)),
		comp:   compositor.New(cfg.Compositor),
		preset: breathing.PresetResting,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = logger.With().Str("avatar", a.id).Logger()

	a.params = cfg.Presets.MustGet(a.preset)
	a.breath.SetParams(a.params)
	a.last = a.snapshot(a.comp.Last(), a.breath.State())

	a.log.Info().Str("preset", string(a.preset)).Str("intensity", string(cfg.Intensity)).Msg("Avatar created")
	return a
}

// ID returns the avatar's identifier.
func (a *Avatar) ID() string {
	return a.id
}

// Tick advances the avatar by dt seconds and applies the frame to the sink.
// Invalid dt, or a disposed avatar, returns the last snapshot untouched.
func (a *Avatar) Tick(dt float64, now time.Time) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.disposed || !(dt > 0) {
		return a.last
	}

	sig := behavior.Signals{Intensity: a.cfg.Intensity}
	if a.signals != nil {
		sig = a.signals.Snapshot(now)
	}
	if sig.Intensity == "" {
		sig.Intensity = a.cfg.Intensity
	}

	if tr, changed := a.machine.UpdateState(sig); changed {
		a.log.Debug().
			Str("from", string(tr.From)).
			Str("to", string(tr.To)).
			Str("intensity", string(tr.ToIntensity)).
			Msg("Behavior changed")
		if tr.StateChanged() {
			a.publish(bus.EventTypeAvatarStateChanged, map[string]any{
				bus.KeyFrom:      string(tr.From),
				bus.KeyTo:        string(tr.To),
				bus.KeyIntensity: string(tr.ToIntensity),
			})
		}
	}

	a.selectPreset(sig.TimeSinceLastMessage, dt)

	pattern := a.machine.UpdateTransition(dt)
	bs := a.breath.Update(dt)
	frame := a.comp.Compose(bs, pattern, compositor.Activity{
		Speaking: sig.IsSpeaking,
		Typing:   sig.UserIsTyping,
	}, dt)
	compositor.Apply(frame, a.sink)

	a.sequence++
	a.last = a.snapshot(frame, bs)
	return a.last
}

// selectPreset moves the breathing params toward the preset for the current
// state. Must hold a.mu.
func (a *Avatar) selectPreset(sinceLastMessage time.Duration, dt float64) {
	preset := PresetFor(a.machine.State(), a.machine.Intensity(), sinceLastMessage, a.cfg.SleepAfter)
	if preset != a.preset {
		a.log.Info().
			Str("from", string(a.preset)).
			Str("to", string(preset)).
			Msg("Breathing preset changed")
		a.publish(bus.EventTypeAvatarPresetChanged, map[string]any{
			bus.KeyFrom: string(a.preset),
			bus.KeyTo:   string(preset),
		})
		a.preset = preset
	}

	target := a.cfg.Presets.MustGet(a.preset)
	blended := breathing.LerpParams(a.params, target, behavior.SmoothingAlpha(a.cfg.ParamSmoothing, dt))
	// Rate changes keep the breath phase, so the resting flag can switch
	// immediately.
	blended.RestingState = target.RestingState
	a.params = blended
	a.breath.SetParams(a.params)
}

func (a *Avatar) publish(t bus.EventType, data map[string]any) {
	if a.events == nil {
		return
	}
	data[bus.KeyAvatarID] = a.id
	a.events.Publish(bus.Event{Type: t, Data: data})
}

func (a *Avatar) snapshot(frame compositor.Frame, bs breathing.State) Snapshot {
	return Snapshot{
		AvatarID:  a.id,
		Sequence:  a.sequence,
		Frame:     frame,
		State:     a.machine.State(),
		Intensity: a.machine.Intensity(),
		Preset:    a.preset,
		Breathing: bs,
		Pattern:   a.machine.CurrentMovementPattern(),
	}
}

// Last returns the most recent snapshot.
func (a *Avatar) Last() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// State returns the current behavioral state.
func (a *Avatar) State() movement.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.machine.State()
}

// Preset returns the breathing preset being blended toward.
func (a *Avatar) Preset() breathing.PresetName {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.preset
}

// BreathingParams returns the blended params the simulator is running.
func (a *Avatar) BreathingParams() breathing.Params {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.params
}

// SetPresets swaps the preset table, typically after a config reload.
func (a *Avatar) SetPresets(t breathing.Table) {
	if t.Len() == 0 {
		return
	}
	a.mu.Lock()
	a.cfg.Presets = t
	a.mu.Unlock()
}

// Reset returns the avatar to idle at rest, keeping its configuration.
func (a *Avatar) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.machine.Reset()
	a.breath.Reset()
	a.comp.Reset()
	a.preset = breathing.PresetResting
	a.params = a.cfg.Presets.MustGet(a.preset)
	a.breath.SetParams(a.params)
	a.sequence = 0
	a.last = a.snapshot(a.comp.Last(), a.breath.State())
}

// Dispose stops the avatar. Tick becomes a no-op. Safe to call twice.
func (a *Avatar) Dispose() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed {
		return
	}
	a.disposed = true
	a.log.Info().Uint64("frames", a.sequence).Msg("Avatar disposed")
}

// Disposed reports whether Dispose has been called.
func (a *Avatar) Disposed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.disposed
}
