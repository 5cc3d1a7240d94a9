// Package movement classifies the avatar's behavioral state and resolves
// it into a declarative bundle of motion parameters.
package movement

// Field indexes one scalar of a Pattern.
type Field int

const (
	HeadSwayFrequency Field = iota
	HeadSwayAmplitude
	HeadBobFrequency
	HeadBobAmplitude
	HeadNodAmplitude
	HeadTilt
	EarTwitchFrequency
	EarTwitchAmplitude
	EarPerk
	TailWagFrequency
	TailWagIntensity
	BodyLean
	PawGestureFrequency
	PawGestureAmplitude
	IdleSuppression
	FieldCount
)

var FieldNames = [FieldCount]string{
	"headSwayFrequency",
	"headSwayAmplitude",
	"headBobFrequency",
	"headBobAmplitude",
	"headNodAmplitude",
	"headTilt",
	"earTwitchFrequency",
	"earTwitchAmplitude",
	"earPerk",
	"tailWagFrequency",
	"tailWagIntensity",
	"bodyLean",
	"pawGestureFrequency",
	"pawGestureAmplitude",
	"idleSuppression",
}

// Fields scaled by the movement intensity multiplier. Frequencies and the
// idle suppression factor are not amplitudes.
var amplitudeFields = [FieldCount]bool{
	HeadSwayAmplitude:   true,
	HeadBobAmplitude:    true,
	HeadNodAmplitude:    true,
	HeadTilt:            true,
	EarTwitchAmplitude:  true,
	EarPerk:             true,
	TailWagIntensity:    true,
	BodyLean:            true,
	PawGestureAmplitude: true,
}

func (f Field) String() string {
	if f < 0 || f >= FieldCount {
		return "unknown"
	}
	return FieldNames[f]
}

// IsAmplitude reports whether intensity scales f.
func (f Field) IsAmplitude() bool {
	if f < 0 || f >= FieldCount {
		return false
	}
	return amplitudeFields[f]
}

// FieldFromName returns the field with the given name, or -1.
func FieldFromName(name string) Field {
	for i, n := range FieldNames {
		if n == name {
			return Field(i)
		}
	}
	return -1
}

// Pattern is the resolved set of motion parameters for one state and
// intensity. Frequencies are in Hz, rotations in radians, offsets in scene
// units.
type Pattern [FieldCount]float64

// Get returns field f. f must be below FieldCount.
func (p *Pattern) Get(f Field) float64 {
	return p[f]
}

// Set stores v in field f. f must be below FieldCount.
func (p *Pattern) Set(f Field, v float64) {
	p[f] = v
}

// Lerp moves every field of p toward target by t.
func (p *Pattern) Lerp(target *Pattern, t float64) Pattern {
	if !(t > 0) {
		return *p
	}
	if t >= 1 {
		return *target
	}
	var out Pattern
	for i := range p {
		out[i] = p[i] + (target[i]-p[i])*t
	}
	return out
}

// ScaleAmplitudes multiplies the amplitude fields by factor.
func (p *Pattern) ScaleAmplitudes(factor float64) Pattern {
	out := *p
	for i := range out {
		if amplitudeFields[i] {
			out[i] *= factor
		}
	}
	return out
}

// Max returns the field-wise maximum of p and other.
func (p *Pattern) Max(other *Pattern) Pattern {
	var out Pattern
	for i := range p {
		out[i] = p[i]
		if other[i] > out[i] {
			out[i] = other[i]
		}
	}
	return out
}

// ToMap returns the pattern keyed by field name.
func (p *Pattern) ToMap() map[string]float64 {
	m := make(map[string]float64, FieldCount)
	for i, name := range FieldNames {
		m[name] = p[i]
	}
	return m
}
