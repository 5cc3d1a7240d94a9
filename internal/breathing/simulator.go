package breathing

import (
	"math"
)

// DefaultMaxDeltaTime caps a single Update so a stalled render loop cannot
// skip several breaths in one tick.
const DefaultMaxDeltaTime = 0.1

const (
	activeRateMultiplier  = 1.25
	irregularityFrequency = 0.5 // rad/s

	inhaleEnd = 0.4
	holdEnd   = 0.6

	// A breath is counted when the cycle wraps below countLow after having
	// been seen at or above countHigh. maxCycleStep keeps every cycle from
	// jumping over the high band. It also caps the rate: once
	// effectiveRate*dt exceeds it, breathing runs at maxCycleStep/dt cycles
	// per second (2.5/s at the 0.1 s delta cap, 15/s at 60 fps) instead of
	// the configured rate.
	countLow     = 0.25
	countHigh    = 0.75
	maxCycleStep = 0.25
)

// State is the instantaneous output of a Simulator.
type State struct {
	Phase          float64 `json:"phase" yaml:"phase"`
	Intensity      float64 `json:"intensity" yaml:"intensity"`
	ChestScale     float64 `json:"chestScale" yaml:"chest_scale"`
	ShoulderOffset float64 `json:"shoulderOffset" yaml:"shoulder_offset"`
	IsInhaling     bool    `json:"isInhaling" yaml:"is_inhaling"`
	BreathCount    int     `json:"breathCount" yaml:"breath_count"`
}

func restState() State {
	return State{ChestScale: 1, IsInhaling: true}
}

// Simulator advances one breathing cycle. It is not safe for concurrent
// use; the render loop owns it.
type Simulator struct {
	params   Params
	maxDelta float64

	elapsed float64
	cycle   float64
	armed   bool

	state State
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithMaxDeltaTime overrides DefaultMaxDeltaTime. Non-positive values are
// ignored.
func WithMaxDeltaTime(seconds float64) Option {
	return func(s *Simulator) {
		if seconds > 0 && !math.IsInf(seconds, 1) {
			s.maxDelta = seconds
		}
	}
}

// NewSimulator creates a simulator whose params are DefaultParams with
// patch applied.
func NewSimulator(patch Patch, opts ...Option) *Simulator {
	s := &Simulator{
		params:   patch.Apply(DefaultParams()),
		maxDelta: DefaultMaxDeltaTime,
		state:    restState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Params returns the active configuration.
func (s *Simulator) Params() Params {
	return s.params
}

// UpdateParams applies patch on top of the active configuration. The cycle
// position is kept, so a preset swap changes speed and depth without
// restarting the breath.
func (s *Simulator) UpdateParams(patch Patch) {
	s.params = patch.Apply(s.params)
}

// SetParams replaces the whole configuration.
func (s *Simulator) SetParams(p Params) {
	s.params = p
}

// State returns the last computed state.
func (s *Simulator) State() State {
	return s.state
}

// Elapsed returns the simulated time in seconds since creation or Reset.
func (s *Simulator) Elapsed() float64 {
	return s.elapsed
}

// Reset clears time, phase and the breath counter. Params are untouched.
func (s *Simulator) Reset() {
	s.elapsed = 0
	s.cycle = 0
	s.armed = false
	s.state = restState()
}

// Update advances the cycle by dt seconds and returns the new state. A
// non-positive or NaN dt returns the previous state unchanged.
func (s *Simulator) Update(dt float64) State {
	if !(dt > 0) {
		return s.state
	}
	if dt > s.maxDelta {
		dt = s.maxDelta
	}

	s.elapsed += dt

	step := clamp(s.effectiveRate()*dt, 0, maxCycleStep)
	s.cycle = wrapUnit(s.cycle + step)

	if s.cycle >= countHigh {
		s.armed = true
	}
	if s.armed && s.cycle < countLow {
		s.armed = false
		s.state.BreathCount++
	}

	amplitude := clamp(s.params.Amplitude, 0, 1)
	intensity := phaseCurve(s.cycle) * amplitude

	s.state.Phase = s.cycle
	s.state.Intensity = intensity
	s.state.ChestScale = 1 + intensity*clamp(s.params.ChestExpansion, 0, 1)
	s.state.ShoulderOffset = intensity * clamp(s.params.ShoulderMovement, 0, 1)
	s.state.IsInhaling = s.cycle < inhaleEnd

	return s.state
}

// effectiveRate is the instantaneous breaths per second, including the
// slow irregularity modulation.
func (s *Simulator) effectiveRate() float64 {
	rate := clamp(s.params.BaseRate, 0, math.MaxFloat64)
	if !s.params.RestingState {
		rate *= activeRateMultiplier
	}
	irregularity := clamp(s.params.Irregularity, 0, 1)
	return rate * (1 + irregularity*math.Sin(s.elapsed*irregularityFrequency))
}

// phaseCurve maps a cycle position to the normalized breath drive:
// quarter-sine inhale, flat hold, quarter-cosine exhale.
func phaseCurve(cycle float64) float64 {
	switch {
	case cycle < inhaleEnd:
		return math.Sin(cycle / inhaleEnd * math.Pi / 2)
	case cycle < holdEnd:
		return 1
	default:
		return math.Cos((cycle - holdEnd) / (1 - holdEnd) * math.Pi / 2)
	}
}

// PhaseCurve exposes the normalized breath drive for a cycle position.
func PhaseCurve(cycle float64) float64 {
	return phaseCurve(wrapUnit(cycle))
}

func wrapUnit(v float64) float64 {
	v = math.Mod(v, 1)
	if v < 0 {
		v++
	}
	if !(v >= 0 && v < 1) {
		return 0
	}
	return v
}

// clamp bounds v to [lo, hi]; NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
