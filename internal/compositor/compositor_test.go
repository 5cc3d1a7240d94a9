package compositor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/puppyavatar/internal/breathing"
	"github.com/normanking/puppyavatar/internal/movement"
)

const frame = 1.0 / 60

func requireFinite(t *testing.T, f Frame) {
	t.Helper()
	for i, tr := range f.Parts {
		for _, v := range []mgl64.Vec3{tr.Position, tr.Rotation, tr.Scale} {
			for _, c := range v {
				require.False(t, math.IsNaN(c) || math.IsInf(c, 0), "part %s: %v", Part(i), v)
			}
		}
	}
}

func TestCompose_BodyYScaleIsFixed(t *testing.T) {
	for _, scale := range []float64{1, 0.5, 2.25} {
		c := New(Config{BaseScale: scale})
		sim := breathing.NewSimulator(breathing.Patch{})
		sim.SetParams(breathing.Excited)
		pattern := movement.Resolve(movement.StateSpeaking, movement.IntensityEnergetic)

		for i := 0; i < 600; i++ {
			f := c.Compose(sim.Update(frame), pattern, Activity{Speaking: true}, frame)
			body := f.Part(PartBody)
			require.Equal(t, scale, body.Scale.Y())
			require.InDelta(t, body.Scale.X(), body.Scale.Z(), 1e-15)
			require.GreaterOrEqual(t, body.Scale.X(), scale)
		}
	}
}

func TestCompose_IdleIsAlive(t *testing.T) {
	c := New(DefaultConfig())
	sim := breathing.NewSimulator(breathing.Patch{})
	pattern := movement.Resolve(movement.StateIdle, movement.IntensitySubtle)

	minYaw, maxYaw := math.Inf(1), math.Inf(-1)
	minChest, maxChest := math.Inf(1), math.Inf(-1)
	for i := 0; i < 5*60; i++ {
		f := c.Compose(sim.Update(frame), pattern, Activity{}, frame)
		requireFinite(t, f)
		yaw := f.Part(PartHead).Rotation.Y()
		chest := f.Part(PartBody).Scale.X()
		minYaw, maxYaw = math.Min(minYaw, yaw), math.Max(maxYaw, yaw)
		minChest, maxChest = math.Min(minChest, chest), math.Max(maxChest, chest)
	}
	assert.Greater(t, maxYaw-minYaw, 0.01)
	assert.Greater(t, maxChest-minChest, 0.005)
}

func TestCompose_InvalidDeltaReturnsLastFrame(t *testing.T) {
	c := New(DefaultConfig())
	pattern := movement.Resolve(movement.StateIdle, movement.IntensityAnimated)
	b := breathing.State{ChestScale: 1.02, Intensity: 0.4}

	last := c.Compose(b, pattern, Activity{}, frame)
	for _, dt := range []float64{0, -0.5, math.NaN()} {
		assert.Equal(t, last, c.Compose(b, pattern, Activity{}, dt))
	}
	assert.Equal(t, last, c.Last())
}

func TestCompose_ClampsDelta(t *testing.T) {
	c := New(DefaultConfig())
	f := c.Compose(breathing.State{ChestScale: 1}, movement.Pattern{}, Activity{}, 30)
	assert.InDelta(t, 0.1, f.Time, 1e-12)
}

func TestCompose_TypingTiltLerpsInAndOut(t *testing.T) {
	c := New(DefaultConfig())
	var pattern movement.Pattern
	pattern.Set(movement.HeadTilt, 0.12)
	b := breathing.State{ChestScale: 1}

	first := c.Compose(b, pattern, Activity{Typing: true}, frame)
	assert.Greater(t, first.Part(PartHead).Rotation.Z(), 0.0)
	assert.Less(t, first.Part(PartHead).Rotation.Z(), 0.12*0.1)

	for i := 0; i < 180; i++ {
		c.Compose(b, pattern, Activity{Typing: true}, frame)
	}
	assert.InDelta(t, 0.12, c.Tilt(), 1e-4)

	prev := c.Tilt()
	for i := 0; i < 180; i++ {
		f := c.Compose(b, pattern, Activity{}, frame)
		z := f.Part(PartHead).Rotation.Z()
		require.LessOrEqual(t, z, prev)
		prev = z
	}
	assert.InDelta(t, 0, c.Tilt(), 1e-4)
}

func TestCompose_ResidualBreathingOnlyWhenIdle(t *testing.T) {
	c := New(DefaultConfig())
	b := breathing.State{ChestScale: 1, Intensity: 1}

	idle := c.Compose(b, movement.Pattern{}, Activity{}, frame)
	assert.InDelta(t, 0.03, idle.Part(PartHead).Rotation.X(), 1e-12)

	var f Frame
	for i := 0; i < 180; i++ {
		f = c.Compose(b, movement.Pattern{}, Activity{Speaking: true}, frame)
	}
	assert.Less(t, f.Part(PartHead).Rotation.X(), 0.001)
	assert.Greater(t, f.Part(PartHead).Rotation.X(), 0.0)
}

func TestCompose_SuppressionRemovesIdleSway(t *testing.T) {
	c := New(DefaultConfig())
	var pattern movement.Pattern
	pattern.Set(movement.HeadSwayFrequency, 0.5)
	pattern.Set(movement.HeadSwayAmplitude, 0.5)
	pattern.Set(movement.IdleSuppression, 1)

	for i := 0; i < 120; i++ {
		f := c.Compose(breathing.State{ChestScale: 1}, pattern, Activity{Speaking: true}, frame)
		require.InDelta(t, 0, f.Part(PartHead).Rotation.Y(), 1e-15)
	}
}

func TestCompose_FrequencyChangeIsContinuous(t *testing.T) {
	c := New(DefaultConfig())
	var slow, fast movement.Pattern
	slow.Set(movement.TailWagFrequency, 0.5)
	slow.Set(movement.TailWagIntensity, 1)
	fast.Set(movement.TailWagFrequency, 5)
	fast.Set(movement.TailWagIntensity, 1)
	b := breathing.State{ChestScale: 1}

	var prev Frame
	for i := 0; i < 97; i++ {
		prev = c.Compose(b, slow, Activity{}, frame)
	}
	next := c.Compose(b, fast, Activity{}, frame)

	step := math.Abs(next.Part(PartTail).Rotation.Y() - prev.Part(PartTail).Rotation.Y())
	assert.LessOrEqual(t, step, 2*math.Pi*5*frame+1e-12)
}

func TestCompose_PathologicalInputsStayFinite(t *testing.T) {
	c := New(Config{BaseScale: math.NaN(), TiltSmoothing: 7, MaxDeltaTime: -1})
	var pattern movement.Pattern
	for f := movement.Field(0); f < movement.FieldCount; f++ {
		pattern.Set(f, math.NaN())
	}
	pattern.Set(movement.HeadBobFrequency, math.Inf(1))
	pattern.Set(movement.TailWagIntensity, math.Inf(-1))
	b := breathing.State{ChestScale: math.Inf(1), Intensity: math.NaN(), ShoulderOffset: math.NaN()}

	for i := 0; i < 60; i++ {
		f := c.Compose(b, pattern, Activity{Speaking: i%2 == 0, Typing: i%3 == 0}, frame)
		requireFinite(t, f)
		assert.Equal(t, 1.0, f.Part(PartBody).Scale.Y())
	}
}

func TestCompose_PawsAlternate(t *testing.T) {
	c := New(DefaultConfig())
	pattern := movement.Resolve(movement.StateSpeaking, movement.IntensityEnergetic)

	for i := 0; i < 300; i++ {
		f := c.Compose(breathing.State{ChestScale: 1}, pattern, Activity{Speaking: true}, frame)
		left := f.Part(PartPawLeft).Position.Y()
		right := f.Part(PartPawRight).Position.Y()
		require.GreaterOrEqual(t, left, 0.0)
		require.GreaterOrEqual(t, right, 0.0)
		require.False(t, left > 1e-9 && right > 1e-9, "both paws raised at frame %d", i)
	}
}

func TestReset(t *testing.T) {
	c := New(DefaultConfig())
	var pattern movement.Pattern
	pattern.Set(movement.HeadTilt, 0.2)
	for i := 0; i < 30; i++ {
		c.Compose(breathing.State{ChestScale: 1}, pattern, Activity{Typing: true}, frame)
	}

	c.Reset()

	assert.Equal(t, 0.0, c.Tilt())
	assert.Equal(t, restFrame(1), c.Last())
}

func TestTransform_Matrix(t *testing.T) {
	assert.True(t, Rest(1).Matrix().ApproxEqual(mgl64.Ident4()))

	tr := Transform{Position: mgl64.Vec3{1, 2, 3}, Scale: mgl64.Vec3{2, 2, 2}}
	m := tr.Matrix()
	assert.Equal(t, mgl64.Vec4{1, 2, 3, 1}, m.Col(3))
	assert.Equal(t, 2.0, m.At(0, 0))
}
