package movement

import (
	"time"
)

// Modulation carries the continuous inputs that shape a state's baseline.
// The zero value resolves the midpoint of each range.
type Modulation struct {
	// SpeakingIntensity in [0,1], derived from the last message length.
	SpeakingIntensity float64
	// Attentiveness in [0,1], grows with how long the user has been typing.
	Attentiveness float64
}

const (
	speakingIntensityFloor = 0.4
	speakingLengthSpan     = 250.0 // characters to reach full speaking intensity
	attentionRampSeconds   = 3.0
)

// SpeakingIntensityFor maps a message length in characters to [0.4, 1].
func SpeakingIntensityFor(messageLength int) float64 {
	if messageLength <= 0 {
		return speakingIntensityFloor
	}
	return clamp(speakingIntensityFloor+float64(messageLength)/speakingLengthSpan, speakingIntensityFloor, 1)
}

// AttentivenessFor maps a typing duration to [0, 1] over three seconds.
func AttentivenessFor(typing time.Duration) float64 {
	return clamp(typing.Seconds()/attentionRampSeconds, 0, 1)
}

// Resolve returns the baseline pattern for a state and intensity.
func Resolve(state State, intensity Intensity) Pattern {
	return ResolveModulated(state, intensity, Modulation{})
}

// ResolveModulated returns the pattern for a state and intensity shaped by
// mod. It is a pure function.
func ResolveModulated(state State, intensity Intensity, mod Modulation) Pattern {
	var p Pattern
	switch state {
	case StateListening:
		p = listeningPattern(mod.Attentiveness)
	case StateSpeaking:
		p = speakingPattern(mod.SpeakingIntensity)
	case StateInteractive:
		speaking := speakingPattern(mod.SpeakingIntensity)
		listening := listeningPattern(mod.Attentiveness)
		p = speaking.Max(&listening)
	default:
		p = idlePattern()
	}
	return p.ScaleAmplitudes(intensity.Multiplier())
}

func idlePattern() Pattern {
	var p Pattern
	p.Set(HeadSwayFrequency, 0.25)
	p.Set(HeadSwayAmplitude, 0.08)
	p.Set(HeadBobFrequency, 0.5)
	p.Set(HeadBobAmplitude, 0.01)
	p.Set(EarTwitchFrequency, 0.2)
	p.Set(EarTwitchAmplitude, 0.05)
	p.Set(TailWagFrequency, 1.0)
	p.Set(TailWagIntensity, 0.1)
	p.Set(PawGestureFrequency, 0.5)
	return p
}

func listeningPattern(attentiveness float64) Pattern {
	a := 0.5 + 0.5*clamp(attentiveness, 0, 1)

	var p Pattern
	p.Set(HeadSwayFrequency, 0.2)
	p.Set(HeadSwayAmplitude, 0.04)
	p.Set(HeadBobFrequency, 0.8)
	p.Set(HeadBobAmplitude, 0.01)
	p.Set(HeadNodAmplitude, 0.02*a)
	p.Set(HeadTilt, 0.12*a)
	p.Set(EarTwitchFrequency, 0.6)
	p.Set(EarTwitchAmplitude, 0.08)
	p.Set(EarPerk, 0.15*a)
	p.Set(TailWagFrequency, 2.0)
	p.Set(TailWagIntensity, 0.3*a)
	p.Set(BodyLean, 0.05*a)
	p.Set(PawGestureFrequency, 0.5)
	p.Set(IdleSuppression, 0.3)
	return p
}

func speakingPattern(speakingIntensity float64) Pattern {
	s := 0.5 + 0.5*clamp(speakingIntensity, 0, 1)

	var p Pattern
	p.Set(HeadSwayFrequency, 0.3)
	p.Set(HeadSwayAmplitude, 0.03)
	p.Set(HeadBobFrequency, 1.5+1.0*s)
	p.Set(HeadBobAmplitude, 0.02*s)
	p.Set(HeadNodAmplitude, 0.1*s)
	p.Set(EarTwitchFrequency, 1.0)
	p.Set(EarTwitchAmplitude, 0.1)
	p.Set(EarPerk, 0.05)
	p.Set(TailWagFrequency, 3.0)
	p.Set(TailWagIntensity, 0.5*s)
	p.Set(BodyLean, 0.03)
	p.Set(PawGestureFrequency, 1.2)
	p.Set(PawGestureAmplitude, 0.04*s)
	p.Set(IdleSuppression, 0.8)
	return p
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
