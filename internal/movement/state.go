package movement

import (
	"errors"
	"fmt"
	"strings"
)

// State is the discrete behavioral classification of the avatar.
type State string

const (
	StateIdle        State = "idle"
	StateListening   State = "listening"
	StateSpeaking    State = "speaking"
	StateInteractive State = "interactive"
)

// States lists every behavioral state.
var States = []State{StateIdle, StateListening, StateSpeaking, StateInteractive}

// Classify derives the behavioral state from the two chat flags. It has no
// memory; continuity comes from the smoothing layered on top.
func Classify(isSpeaking, userIsTyping bool) State {
	switch {
	case isSpeaking && userIsTyping:
		return StateInteractive
	case isSpeaking:
		return StateSpeaking
	case userIsTyping:
		return StateListening
	default:
		return StateIdle
	}
}

// Intensity is the movement multiplier tier.
type Intensity string

const (
	IntensitySubtle    Intensity = "subtle"
	IntensityAnimated  Intensity = "animated"
	IntensityEnergetic Intensity = "energetic"
)

// Message length thresholds for automatic escalation, in characters.
const (
	AnimatedMessageLength  = 75
	EnergeticMessageLength = 150
)

var ErrUnknownIntensity = errors.New("unknown movement intensity")

// ParseIntensity accepts the intensity names case-insensitively.
func ParseIntensity(s string) (Intensity, error) {
	switch Intensity(strings.ToLower(strings.TrimSpace(s))) {
	case IntensitySubtle:
		return IntensitySubtle, nil
	case IntensityAnimated:
		return IntensityAnimated, nil
	case IntensityEnergetic:
		return IntensityEnergetic, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIntensity, s)
}

func (i Intensity) rank() int {
	switch i {
	case IntensityEnergetic:
		return 2
	case IntensityAnimated:
		return 1
	default:
		return 0
	}
}

// Normalize maps unknown values to subtle.
func (i Intensity) Normalize() Intensity {
	switch i {
	case IntensityAnimated, IntensityEnergetic:
		return i
	default:
		return IntensitySubtle
	}
}

// Multiplier is the factor applied to every amplitude field.
func (i Intensity) Multiplier() float64 {
	switch i.Normalize() {
	case IntensityEnergetic:
		return 1.0
	case IntensityAnimated:
		return 0.6
	default:
		return 0.3
	}
}

// AtLeast returns the stronger of i and floor.
func (i Intensity) AtLeast(floor Intensity) Intensity {
	if floor.rank() > i.rank() {
		return floor.Normalize()
	}
	return i.Normalize()
}

// Escalate upgrades the configured intensity for long messages and for
// simultaneous speaking and typing. It never downgrades.
func Escalate(base Intensity, lastMessageLength int, isSpeaking, userIsTyping bool) Intensity {
	effective := base.Normalize()
	if isSpeaking && userIsTyping {
		return IntensityEnergetic
	}
	if lastMessageLength > EnergeticMessageLength {
		return IntensityEnergetic
	}
	if lastMessageLength > AnimatedMessageLength {
		effective = effective.AtLeast(IntensityAnimated)
	}
	return effective
}
