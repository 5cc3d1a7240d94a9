// Package compositor blends breathing, idle sway, speaking gestures, typing
// tilt and secondary motion into per-part transforms once per frame.
package compositor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/normanking/puppyavatar/internal/breathing"
	"github.com/normanking/puppyavatar/internal/movement"
)

const (
	twoPi = 2 * math.Pi

	// Oscillator frequencies above this are treated as configuration noise.
	maxFrequency = 20.0

	swayPitchRatio   = 0.4
	bodyBreathLift   = 0.5
	tailRollRatio    = 0.3
	referenceFPS     = 60.0
	residualSettling = 0.05
)

// Config tunes composition. Invalid values fall back to DefaultConfig.
type Config struct {
	// BaseScale is the uniform rest scale of every part.
	BaseScale float64 `mapstructure:"base_scale" yaml:"base_scale"`
	// TiltSmoothing is the per-frame factor, at 60 fps, of the typing tilt.
	TiltSmoothing float64 `mapstructure:"tilt_smoothing" yaml:"tilt_smoothing"`
	// ResidualBreathRotation is the head pitch, in radians, driven by
	// breathing while the avatar is neither speaking nor listening.
	ResidualBreathRotation float64 `mapstructure:"residual_breath_rotation" yaml:"residual_breath_rotation"`
	MaxDeltaTime           float64 `mapstructure:"max_delta_time" yaml:"max_delta_time"`
}

// DefaultConfig returns the tuned composition constants.
func DefaultConfig() Config {
	return Config{
		BaseScale:              1,
		TiltSmoothing:          0.08,
		ResidualBreathRotation: 0.03,
		MaxDeltaTime:           0.1,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if !(c.BaseScale > 0) || !finite(c.BaseScale) {
		c.BaseScale = d.BaseScale
	}
	if !(c.TiltSmoothing > 0) || c.TiltSmoothing > 1 {
		c.TiltSmoothing = d.TiltSmoothing
	}
	if !(c.ResidualBreathRotation >= 0) || !finite(c.ResidualBreathRotation) {
		c.ResidualBreathRotation = d.ResidualBreathRotation
	}
	if !(c.MaxDeltaTime > 0) || !finite(c.MaxDeltaTime) {
		c.MaxDeltaTime = d.MaxDeltaTime
	}
	return c
}

// Activity carries the raw chat flags the compositor needs on top of the
// smoothed pattern.
type Activity struct {
	Speaking bool
	Typing   bool
}

type oscillators struct {
	sway float64
	bob  float64
	ear  float64
	tail float64
	paw  float64
}

// Compositor owns oscillator phases and the few smoothed scalars that live
// outside the movement pattern. Not safe for concurrent use.
type Compositor struct {
	cfg Config

	time     float64
	phase    oscillators
	tilt     float64
	residual float64

	last Frame
}

// New creates a compositor with every part at rest.
func New(cfg Config) *Compositor {
	cfg = cfg.normalized()
	return &Compositor{
		cfg:      cfg,
		residual: 1,
		last:     restFrame(cfg.BaseScale),
	}
}

// Config returns the normalized configuration in use.
func (c *Compositor) Config() Config {
	return c.cfg
}

// Last returns the most recent frame.
func (c *Compositor) Last() Frame {
	return c.last
}

// Tilt is the current typing head tilt in radians.
func (c *Compositor) Tilt() float64 {
	return c.tilt
}

// Reset zeroes time and oscillator phases and returns every part to rest.
func (c *Compositor) Reset() {
	c.time = 0
	c.phase = oscillators{}
	c.tilt = 0
	c.residual = 1
	c.last = restFrame(c.cfg.BaseScale)
}

// Compose advances the oscillators by dt and returns the blended frame.
// Invalid dt returns the previous frame.
func (c *Compositor) Compose(b breathing.State, p movement.Pattern, act Activity, dt float64) Frame {
	if !(dt > 0) {
		return c.last
	}
	if dt > c.cfg.MaxDeltaTime {
		dt = c.cfg.MaxDeltaTime
	}
	c.time += dt

	c.phase.sway = advance(c.phase.sway, p.Get(movement.HeadSwayFrequency), dt)
	c.phase.bob = advance(c.phase.bob, p.Get(movement.HeadBobFrequency), dt)
	c.phase.ear = advance(c.phase.ear, p.Get(movement.EarTwitchFrequency), dt)
	c.phase.tail = advance(c.phase.tail, p.Get(movement.TailWagFrequency), dt)
	c.phase.paw = advance(c.phase.paw, p.Get(movement.PawGestureFrequency), dt)

	tiltTarget := 0.0
	if act.Typing {
		tiltTarget = p.Get(movement.HeadTilt)
	}
	c.tilt = approach(c.tilt, tiltTarget, c.cfg.TiltSmoothing, dt)

	residualTarget := 0.0
	if !act.Speaking && !act.Typing {
		residualTarget = 1
	}
	c.residual = approach(c.residual, residualTarget, residualSettling, dt)

	base := c.cfg.BaseScale
	idleWeight := 1 - clamp(p.Get(movement.IdleSuppression), 0, 1)
	swayAmp := p.Get(movement.HeadSwayAmplitude) * idleWeight
	bobOffset := math.Sin(c.phase.bob) * p.Get(movement.HeadBobAmplitude)

	var f Frame
	f.Time = c.time

	chest := b.ChestScale
	if !finite(chest) {
		chest = 1
	}
	f.Parts[PartBody] = Transform{
		Position: mgl64.Vec3{0, b.ShoulderOffset * bodyBreathLift, 0},
		Rotation: mgl64.Vec3{p.Get(movement.BodyLean), 0, 0},
		Scale:    mgl64.Vec3{base * chest, base, base * chest},
	}

	nod := math.Sin(c.phase.bob) * p.Get(movement.HeadNodAmplitude)
	residualPitch := c.residual * b.Intensity * c.cfg.ResidualBreathRotation
	f.Parts[PartHead] = Transform{
		Position: mgl64.Vec3{0, b.ShoulderOffset + bobOffset, 0},
		Rotation: mgl64.Vec3{
			nod + math.Cos(c.phase.sway)*swayAmp*swayPitchRatio + residualPitch,
			math.Sin(c.phase.sway) * swayAmp,
			c.tilt,
		},
		Scale: mgl64.Vec3{base, base, base},
	}

	perk := p.Get(movement.EarPerk)
	earAmp := p.Get(movement.EarTwitchAmplitude)
	f.Parts[PartEarLeft] = Transform{
		Rotation: mgl64.Vec3{0, 0, perk + math.Sin(c.phase.ear)*earAmp},
		Scale:    mgl64.Vec3{base, base, base},
	}
	f.Parts[PartEarRight] = Transform{
		Rotation: mgl64.Vec3{0, 0, -(perk + math.Cos(c.phase.ear)*earAmp)},
		Scale:    mgl64.Vec3{base, base, base},
	}

	wag := p.Get(movement.TailWagIntensity)
	f.Parts[PartTail] = Transform{
		Rotation: mgl64.Vec3{0, math.Sin(c.phase.tail) * wag, math.Cos(c.phase.tail) * wag * tailRollRatio},
		Scale:    mgl64.Vec3{base, base, base},
	}

	pawAmp := p.Get(movement.PawGestureAmplitude)
	f.Parts[PartPawLeft] = Transform{
		Position: mgl64.Vec3{0, math.Max(0, math.Sin(c.phase.paw)) * pawAmp, 0},
		Scale:    mgl64.Vec3{base, base, base},
	}
	f.Parts[PartPawRight] = Transform{
		Position: mgl64.Vec3{0, math.Max(0, math.Sin(c.phase.paw+math.Pi)) * pawAmp, 0},
		Scale:    mgl64.Vec3{base, base, base},
	}

	for i := range f.Parts {
		f.Parts[i].Position = sanitize(f.Parts[i].Position, 0)
		f.Parts[i].Rotation = sanitize(f.Parts[i].Rotation, 0)
		f.Parts[i].Scale = sanitize(f.Parts[i].Scale, base)
	}

	c.last = f
	return f
}

// advance integrates an oscillator phase so frequency changes never jump.
func advance(phase, freq, dt float64) float64 {
	freq = clamp(freq, 0, maxFrequency)
	return math.Mod(phase+twoPi*freq*dt, twoPi)
}

func approach(current, target, factor, dt float64) float64 {
	if !finite(target) {
		target = 0
	}
	alpha := 1 - math.Pow(1-factor, dt*referenceFPS)
	return current + (target-current)*alpha
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
