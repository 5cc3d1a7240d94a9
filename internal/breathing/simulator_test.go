package breathing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = 1.0 / 60

func TestNewSimulator_DefaultsUnsetFields(t *testing.T) {
	s := NewSimulator(Patch{Amplitude: Float(0.8)})

	p := s.Params()
	assert.Equal(t, 0.8, p.Amplitude)
	assert.Equal(t, Resting.BaseRate, p.BaseRate)
	assert.Equal(t, Resting.ChestExpansion, p.ChestExpansion)
	assert.True(t, p.RestingState)

	st := s.State()
	assert.Equal(t, 0.0, st.Phase)
	assert.Equal(t, 1.0, st.ChestScale)
	assert.Equal(t, 0, st.BreathCount)
}

func TestUpdate_NonPositiveDeltaIsNoop(t *testing.T) {
	s := NewSimulator(Patch{})
	for i := 0; i < 37; i++ {
		s.Update(frame)
	}
	before := s.State()
	elapsed := s.Elapsed()

	for _, dt := range []float64{0, -5, math.NaN(), math.Inf(-1)} {
		got := s.Update(dt)
		assert.Equal(t, before, got, "dt=%v", dt)
	}
	assert.Equal(t, before, s.State())
	assert.Equal(t, elapsed, s.Elapsed())
}

func TestUpdate_ClampsLargeDelta(t *testing.T) {
	s := NewSimulator(Patch{}, WithMaxDeltaTime(0.05))
	s.Update(1000)
	assert.InDelta(t, 0.05, s.Elapsed(), 1e-12)

	s.Update(math.Inf(1))
	assert.InDelta(t, 0.1, s.Elapsed(), 1e-12)
}

func TestUpdate_PhaseAlwaysInUnitInterval(t *testing.T) {
	deltas := []float64{frame, 0.5, 1000, 1e-9, 0.1, 0.0999, 3, frame * 2}
	for _, p := range []Params{Resting, Alert, Excited, Sleeping, {BaseRate: 50, Amplitude: 1, Irregularity: 1}} {
		s := NewSimulator(Patch{})
		s.SetParams(p)
		for i := 0; i < 5000; i++ {
			st := s.Update(deltas[i%len(deltas)])
			require.GreaterOrEqual(t, st.Phase, 0.0)
			require.Less(t, st.Phase, 1.0)
		}
	}
}

func TestUpdate_CountsOneBreathPerCycle(t *testing.T) {
	// 0.25 breaths/s for 22 s is 5.5 cycles.
	s := NewSimulator(Patch{Irregularity: Float(0), RestingState: Bool(true), BaseRate: Float(0.25)})

	last := 0
	for i := 0; i < 22*60; i++ {
		st := s.Update(frame)
		require.GreaterOrEqual(t, st.BreathCount, last)
		require.LessOrEqual(t, st.BreathCount-last, 1)
		last = st.BreathCount
	}
	assert.Equal(t, 5, s.State().BreathCount)
}

func TestUpdate_ActiveRateIsFaster(t *testing.T) {
	resting := NewSimulator(Patch{Irregularity: Float(0), RestingState: Bool(true)})
	active := NewSimulator(Patch{Irregularity: Float(0), RestingState: Bool(false)})

	for i := 0; i < 41*60; i++ {
		resting.Update(frame)
		active.Update(frame)
	}
	// 0.25 and 0.3125 breaths/s over 41 s.
	assert.Equal(t, 10, resting.State().BreathCount)
	assert.Equal(t, 12, active.State().BreathCount)
}

func TestUpdate_StepCapLimitsVeryHighRates(t *testing.T) {
	s := NewSimulator(Patch{Irregularity: Float(0), RestingState: Bool(true), BaseRate: Float(10)})

	// 10 breaths/s at dt 0.1 wants a full cycle per update; the cap allows a
	// quarter, so 100 updates count 25 breaths rather than 100.
	for i := 0; i < 100; i++ {
		s.Update(0.1)
	}
	assert.Equal(t, 25, s.State().BreathCount)
}

func TestUpdate_HysteresisAcrossIrregularityRange(t *testing.T) {
	for _, irr := range []float64{0, 0.1, 0.25, 0.5, 0.75, 1} {
		s := NewSimulator(Patch{Irregularity: Float(irr), BaseRate: Float(0.4), RestingState: Bool(false)})

		const seconds = 120
		total := 0.0
		prev := 0
		for i := 0; i < seconds*60; i++ {
			total += s.effectiveRate() * frame
			st := s.Update(frame)
			require.GreaterOrEqual(t, st.BreathCount, prev, "irregularity=%v", irr)
			prev = st.BreathCount
		}
		// Integrated cycles and counted breaths never drift by more than
		// the one partial cycle in flight.
		assert.InDelta(t, math.Floor(total), float64(s.State().BreathCount), 1, "irregularity=%v", irr)
	}
}

func TestUpdate_IntensityBoundedByAmplitude(t *testing.T) {
	for _, amp := range []float64{0, 0.3, 0.6, 1, 2.5, -1, math.NaN()} {
		s := NewSimulator(Patch{Amplitude: Float(amp), ChestExpansion: Float(5)})
		limit := clamp(amp, 0, 1)
		for i := 0; i < 20; i++ {
			st := s.Update(1000)
			require.False(t, math.IsNaN(st.Intensity))
			require.GreaterOrEqual(t, st.Intensity, 0.0)
			require.LessOrEqual(t, st.Intensity, limit+1e-12)
			require.LessOrEqual(t, st.ChestScale, 2.0)
			require.GreaterOrEqual(t, st.ChestScale, 1.0)
		}
	}
}

func TestUpdate_DerivedValues(t *testing.T) {
	s := NewSimulator(Patch{Amplitude: Float(0.5), ChestExpansion: Float(0.1), ShoulderMovement: Float(0.04), Irregularity: Float(0)})
	for i := 0; i < 100; i++ {
		st := s.Update(frame)
		assert.InDelta(t, 1+st.Intensity*0.1, st.ChestScale, 1e-12)
		assert.InDelta(t, st.Intensity*0.04, st.ShoulderOffset, 1e-12)
		assert.Equal(t, st.Phase < 0.4, st.IsInhaling)
	}
}

func TestPhaseCurve(t *testing.T) {
	assert.InDelta(t, 0, PhaseCurve(0), 1e-12)
	assert.InDelta(t, math.Sin(math.Pi/4), PhaseCurve(0.2), 1e-12)
	assert.InDelta(t, 1, PhaseCurve(0.4), 1e-12)
	assert.Equal(t, 1.0, PhaseCurve(0.5))
	assert.InDelta(t, 1, PhaseCurve(0.6), 1e-12)
	assert.InDelta(t, math.Cos(math.Pi/4), PhaseCurve(0.8), 1e-12)
	assert.InDelta(t, 0, PhaseCurve(0.999999), 1e-5)
}

func TestReset_KeepsParams(t *testing.T) {
	s := NewSimulator(Patch{})
	s.SetParams(Excited)
	for i := 0; i < 30*60; i++ {
		s.Update(frame)
	}
	require.Greater(t, s.State().BreathCount, 0)

	s.Reset()

	assert.Equal(t, 0, s.State().BreathCount)
	assert.Equal(t, 0.0, s.State().Phase)
	assert.Equal(t, 0.0, s.Elapsed())
	assert.Equal(t, Excited, s.Params())
}

func TestUpdateParams_KeepsPhase(t *testing.T) {
	s := NewSimulator(Patch{})
	for i := 0; i < 90; i++ {
		s.Update(frame)
	}
	phase := s.State().Phase

	s.UpdateParams(Patch{BaseRate: Float(0.5), RestingState: Bool(false)})

	assert.Equal(t, phase, s.State().Phase)
	assert.Equal(t, 0.5, s.Params().BaseRate)
	assert.False(t, s.Params().RestingState)
	assert.Equal(t, Resting.Amplitude, s.Params().Amplitude)
}

func TestUpdate_RapidPresetSwaps(t *testing.T) {
	s := NewSimulator(Patch{})
	presets := []Params{Resting, Excited, Sleeping, Alert}
	for i := 0; i < 400; i++ {
		s.SetParams(presets[i%len(presets)])
		st := s.Update(0.05)
		require.GreaterOrEqual(t, st.Phase, 0.0)
		require.Less(t, st.Phase, 1.0)
	}
}
