package compositor

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/puppyavatar/internal/breathing"
	"github.com/normanking/puppyavatar/internal/movement"
)

func TestApply_SkipsUnmountedParts(t *testing.T) {
	sink := NewMemorySink(PartHead, PartBody)
	c := New(DefaultConfig())
	f := c.Compose(breathing.State{ChestScale: 1.05, Intensity: 0.5}, movement.Resolve(movement.StateIdle, movement.IntensityEnergetic), Activity{}, frame)

	assert.Equal(t, 2, Apply(f, sink))

	body, ok := sink.Transform(PartBody)
	require.True(t, ok)
	assert.Equal(t, f.Part(PartBody), body)

	_, ok = sink.Transform(PartTail)
	assert.False(t, ok)
	assert.True(t, sink.Target(PartTail) == nil)
}

func TestApply_MountUnmount(t *testing.T) {
	sink := NewMemorySink()
	f := restFrame(1)
	assert.Equal(t, int(PartCount), Apply(f, sink))

	sink.Unmount(PartEarLeft)
	sink.Unmount(PartEarLeft)
	assert.Equal(t, int(PartCount)-1, Apply(f, sink))

	ear := sink.Mount(PartEarLeft)
	assert.Same(t, ear, sink.Mount(PartEarLeft))
	assert.Equal(t, int(PartCount), Apply(f, sink))
	assert.Equal(t, 1, ear.Writes())
}

func TestMemoryTarget_WritesCountFrames(t *testing.T) {
	sink := NewMemorySink(PartTail)
	tail := sink.Mount(PartTail)

	tail.SetScale(mgl64.Vec3{2, 2, 2})
	tail.SetRotation(mgl64.Vec3{0, 1, 0})
	tail.SetPosition(mgl64.Vec3{0, 0, 1})
	assert.Equal(t, 0, tail.Writes())
	assert.Equal(t, mgl64.Vec3{2, 2, 2}, tail.Transform().Scale)

	f := restFrame(1)
	Apply(f, sink)
	Apply(f, sink)
	assert.Equal(t, 2, tail.Writes())
	assert.Equal(t, f.Part(PartTail), tail.Transform())
}

func TestApply_NilSink(t *testing.T) {
	assert.Equal(t, 0, Apply(restFrame(1), nil))
}

type recordingTarget struct {
	calls []string
}

func (r *recordingTarget) SetPosition(mgl64.Vec3) { r.calls = append(r.calls, "position") }
func (r *recordingTarget) SetRotation(mgl64.Vec3) { r.calls = append(r.calls, "rotation") }
func (r *recordingTarget) SetScale(mgl64.Vec3)    { r.calls = append(r.calls, "scale") }

type tailOnly struct {
	tail *recordingTarget
}

func (s tailOnly) Target(p Part) Target {
	if p == PartTail {
		return s.tail
	}
	return nil
}

func TestApply_CustomSink(t *testing.T) {
	sink := tailOnly{tail: &recordingTarget{}}
	assert.Equal(t, 1, Apply(restFrame(1), sink))
	assert.Equal(t, []string{"position", "rotation", "scale"}, sink.tail.calls)
}

func TestPartNames(t *testing.T) {
	assert.Equal(t, "head", PartHead.String())
	assert.Equal(t, "pawRight", PartPawRight.String())
	assert.Equal(t, "unknown", Part(42).String())
}
