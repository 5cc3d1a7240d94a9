package breathing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable_HasFourPresets(t *testing.T) {
	table := DefaultTable()

	assert.Equal(t, 4, table.Len())
	assert.Equal(t, []PresetName{PresetAlert, PresetExcited, PresetResting, PresetSleeping}, table.Names())

	for _, name := range table.Names() {
		p, ok := table.Get(name)
		require.True(t, ok, name)
		assert.Greater(t, p.BaseRate, 0.0, name)
		assert.LessOrEqual(t, p.Amplitude, 1.0, name)
		assert.LessOrEqual(t, p.Irregularity, 1.0, name)
	}
}

func TestPresets_Ordering(t *testing.T) {
	assert.Less(t, Sleeping.BaseRate, Resting.BaseRate)
	assert.Less(t, Resting.BaseRate, Alert.BaseRate)
	assert.Less(t, Alert.BaseRate, Excited.BaseRate)
	assert.True(t, Sleeping.RestingState)
	assert.False(t, Excited.RestingState)
}

func TestTable_IsImmutable(t *testing.T) {
	src := map[PresetName]Params{PresetResting: Resting}
	table := NewTable(src)
	src[PresetResting] = Excited

	got, ok := table.Get(PresetResting)
	require.True(t, ok)
	assert.Equal(t, Resting, got)

	patched := table.With(PresetResting, Patch{Amplitude: Float(0.9)})
	orig, _ := table.Get(PresetResting)
	next, _ := patched.Get(PresetResting)
	assert.Equal(t, Resting.Amplitude, orig.Amplitude)
	assert.Equal(t, 0.9, next.Amplitude)
	assert.Equal(t, Resting.BaseRate, next.BaseRate)
}

func TestTable_WithNewPreset(t *testing.T) {
	table := DefaultTable().With("DROWSY", Patch{BaseRate: Float(0.1)})

	p, ok := table.Get("DROWSY")
	require.True(t, ok)
	assert.Equal(t, 0.1, p.BaseRate)
	assert.Equal(t, DefaultParams().Amplitude, p.Amplitude)
	assert.Equal(t, 5, table.Len())
}

func TestTable_MustGetFallsBack(t *testing.T) {
	assert.Equal(t, DefaultParams(), Table{}.MustGet(PresetExcited))
	assert.Equal(t, Excited, DefaultTable().MustGet(PresetExcited))
}

func TestPatch_ApplyAndIsZero(t *testing.T) {
	assert.True(t, Patch{}.IsZero())
	assert.Equal(t, Alert, Patch{}.Apply(Alert))

	full := Patch{
		BaseRate:         Float(1),
		Amplitude:        Float(0.5),
		ChestExpansion:   Float(0.2),
		ShoulderMovement: Float(0.1),
		Irregularity:     Float(0),
		RestingState:     Bool(false),
	}
	assert.False(t, full.IsZero())
	assert.Equal(t, Params{BaseRate: 1, Amplitude: 0.5, ChestExpansion: 0.2, ShoulderMovement: 0.1}, full.Apply(Sleeping))
}

func TestLerpParams(t *testing.T) {
	assert.Equal(t, Resting, LerpParams(Resting, Excited, 0))
	assert.Equal(t, Excited, LerpParams(Resting, Excited, 1))
	assert.Equal(t, Excited, LerpParams(Resting, Excited, 3))

	mid := LerpParams(Resting, Excited, 0.5)
	assert.InDelta(t, (Resting.BaseRate+Excited.BaseRate)/2, mid.BaseRate, 1e-12)
	assert.InDelta(t, (Resting.Amplitude+Excited.Amplitude)/2, mid.Amplitude, 1e-12)
	assert.False(t, mid.RestingState)

	early := LerpParams(Resting, Excited, 0.2)
	assert.True(t, early.RestingState)
}
