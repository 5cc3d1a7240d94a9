// Package breathing simulates a phased breathing cycle (inhale, hold,
// exhale) and exposes the named breathing presets used by the avatar.
package breathing

import (
	"sort"
)

// Params configures one breathing behavior. Values outside their nominal
// ranges are accepted here and clamped where they are used.
type Params struct {
	BaseRate         float64 `yaml:"base_rate" json:"baseRate" mapstructure:"base_rate"` // breaths per second
	Amplitude        float64 `yaml:"amplitude" json:"amplitude" mapstructure:"amplitude"`
	ChestExpansion   float64 `yaml:"chest_expansion" json:"chestExpansion" mapstructure:"chest_expansion"`
	ShoulderMovement float64 `yaml:"shoulder_movement" json:"shoulderMovement" mapstructure:"shoulder_movement"`
	Irregularity     float64 `yaml:"irregularity" json:"irregularity" mapstructure:"irregularity"`
	RestingState     bool    `yaml:"resting_state" json:"restingState" mapstructure:"resting_state"`
}

// Patch is a partial Params. Nil fields keep the value they are applied to.
type Patch struct {
	BaseRate         *float64 `yaml:"base_rate,omitempty" mapstructure:"base_rate"`
	Amplitude        *float64 `yaml:"amplitude,omitempty" mapstructure:"amplitude"`
	ChestExpansion   *float64 `yaml:"chest_expansion,omitempty" mapstructure:"chest_expansion"`
	ShoulderMovement *float64 `yaml:"shoulder_movement,omitempty" mapstructure:"shoulder_movement"`
	Irregularity     *float64 `yaml:"irregularity,omitempty" mapstructure:"irregularity"`
	RestingState     *bool    `yaml:"resting_state,omitempty" mapstructure:"resting_state"`
}

// Float returns a pointer to v, for building patches.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v, for building patches.
func Bool(v bool) *bool { return &v }

// Apply returns base with every non-nil patch field substituted.
func (p Patch) Apply(base Params) Params {
	if p.BaseRate != nil {
		base.BaseRate = *p.BaseRate
	}
	if p.Amplitude != nil {
		base.Amplitude = *p.Amplitude
	}
	if p.ChestExpansion != nil {
		base.ChestExpansion = *p.ChestExpansion
	}
	if p.ShoulderMovement != nil {
		base.ShoulderMovement = *p.ShoulderMovement
	}
	if p.Irregularity != nil {
		base.Irregularity = *p.Irregularity
	}
	if p.RestingState != nil {
		base.RestingState = *p.RestingState
	}
	return base
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.BaseRate == nil && p.Amplitude == nil && p.ChestExpansion == nil &&
		p.ShoulderMovement == nil && p.Irregularity == nil && p.RestingState == nil
}

// PresetName identifies an entry of a preset Table.
type PresetName string

const (
	PresetResting  PresetName = "RESTING"
	PresetAlert    PresetName = "ALERT"
	PresetExcited  PresetName = "EXCITED"
	PresetSleeping PresetName = "SLEEPING"
)

var (
	Resting = Params{
		BaseRate:         0.25,
		Amplitude:        0.3,
		ChestExpansion:   0.05,
		ShoulderMovement: 0.02,
		Irregularity:     0.1,
		RestingState:     true,
	}

	Alert = Params{
		BaseRate:         0.35,
		Amplitude:        0.45,
		ChestExpansion:   0.06,
		ShoulderMovement: 0.03,
		Irregularity:     0.15,
		RestingState:     false,
	}

	Excited = Params{
		BaseRate:         0.55,
		Amplitude:        0.6,
		ChestExpansion:   0.08,
		ShoulderMovement: 0.05,
		Irregularity:     0.25,
		RestingState:     false,
	}

	Sleeping = Params{
		BaseRate:         0.15,
		Amplitude:        0.25,
		ChestExpansion:   0.04,
		ShoulderMovement: 0.015,
		Irregularity:     0.05,
		RestingState:     true,
	}
)

// DefaultParams are used for every field a constructor patch leaves unset.
func DefaultParams() Params {
	return Resting
}

// Table is an immutable lookup of named presets.
type Table struct {
	presets map[PresetName]Params
}

// DefaultTable returns the four built-in presets.
func DefaultTable() Table {
	return NewTable(map[PresetName]Params{
		PresetResting:  Resting,
		PresetAlert:    Alert,
		PresetExcited:  Excited,
		PresetSleeping: Sleeping,
	})
}

// NewTable copies presets into a new Table.
func NewTable(presets map[PresetName]Params) Table {
	m := make(map[PresetName]Params, len(presets))
	for name, p := range presets {
		m[name] = p
	}
	return Table{presets: m}
}

// Get returns the preset registered under name.
func (t Table) Get(name PresetName) (Params, bool) {
	p, ok := t.presets[name]
	return p, ok
}

// MustGet returns the named preset, or the default params when the table
// has no such entry.
func (t Table) MustGet(name PresetName) Params {
	if p, ok := t.presets[name]; ok {
		return p
	}
	return DefaultParams()
}

// With returns a copy of t where the named preset has patch applied. A
// preset that does not exist yet starts from the default params.
func (t Table) With(name PresetName, patch Patch) Table {
	next := NewTable(t.presets)
	base, ok := t.presets[name]
	if !ok {
		base = DefaultParams()
	}
	next.presets[name] = patch.Apply(base)
	return next
}

// Names returns the preset names in sorted order.
func (t Table) Names() []PresetName {
	names := make([]PresetName, 0, len(t.presets))
	for name := range t.presets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Len returns the number of presets.
func (t Table) Len() int {
	return len(t.presets)
}

// LerpParams interpolates the numeric fields of a toward b. RestingState
// flips to b's value once t passes the midpoint.
func LerpParams(a, b Params, t float64) Params {
	if !(t > 0) {
		return a
	}
	if t >= 1 {
		return b
	}
	out := Params{
		BaseRate:         lerp(a.BaseRate, b.BaseRate, t),
		Amplitude:        lerp(a.Amplitude, b.Amplitude, t),
		ChestExpansion:   lerp(a.ChestExpansion, b.ChestExpansion, t),
		ShoulderMovement: lerp(a.ShoulderMovement, b.ShoulderMovement, t),
		Irregularity:     lerp(a.Irregularity, b.Irregularity, t),
		RestingState:     a.RestingState,
	}
	if t >= 0.5 {
		out.RestingState = b.RestingState
	}
	return out
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
