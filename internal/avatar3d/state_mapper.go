package avatar3d

import (
	"time"

	"github.com/normanking/puppyavatar/internal/breathing"
	"github.com/normanking/puppyavatar/internal/movement"
)

// PresetFor picks the breathing preset for a behavioral state. An idle
// avatar falls asleep once sinceLastMessage reaches sleepAfter; a zero
// sleepAfter disables sleeping.
func PresetFor(state movement.State, intensity movement.Intensity, sinceLastMessage, sleepAfter time.Duration) breathing.PresetName {
	switch state {
	case movement.StateListening:
		return breathing.PresetAlert

	case movement.StateSpeaking:
		if intensity == movement.IntensityEnergetic {
			return breathing.PresetExcited
		}
		return breathing.PresetAlert

	case movement.StateInteractive:
		return breathing.PresetExcited

	default:
		if sleepAfter > 0 && sinceLastMessage >= sleepAfter {
			return breathing.PresetSleeping
		}
		return breathing.PresetResting
	}
}
