package compositor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Part names one animated node of the puppy rig.
type Part int

const (
	PartHead Part = iota
	PartBody
	PartEarLeft
	PartEarRight
	PartTail
	PartPawLeft
	PartPawRight
	PartCount
)

var PartNames = [PartCount]string{
	"head",
	"body",
	"earLeft",
	"earRight",
	"tail",
	"pawLeft",
	"pawRight",
}

func (p Part) String() string {
	if p < 0 || p >= PartCount {
		return "unknown"
	}
	return PartNames[p]
}

// Transform is a local offset from the part's rest pose. Rotation is Euler
// XYZ in radians.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Vec3
	Scale    mgl64.Vec3
}

// Rest returns the identity transform at the given uniform scale.
func Rest(scale float64) Transform {
	return Transform{Scale: mgl64.Vec3{scale, scale, scale}}
}

// Matrix composes translate * rotX * rotY * rotZ * scale.
func (t Transform) Matrix() mgl64.Mat4 {
	m := mgl64.Translate3D(t.Position[0], t.Position[1], t.Position[2])
	m = m.Mul4(mgl64.HomogRotate3DX(t.Rotation[0]))
	m = m.Mul4(mgl64.HomogRotate3DY(t.Rotation[1]))
	m = m.Mul4(mgl64.HomogRotate3DZ(t.Rotation[2]))
	return m.Mul4(mgl64.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// Frame is the composed output of one tick.
type Frame struct {
	// Time is the compositor's simulated clock in seconds.
	Time  float64
	Parts [PartCount]Transform
}

// Part returns the transform of p.
func (f *Frame) Part(p Part) Transform {
	return f.Parts[p]
}

func restFrame(scale float64) Frame {
	var f Frame
	for i := range f.Parts {
		f.Parts[i] = Rest(scale)
	}
	return f
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// sanitize replaces non-finite components with fallback.
func sanitize(v mgl64.Vec3, fallback float64) mgl64.Vec3 {
	for i := range v {
		if !finite(v[i]) {
			v[i] = fallback
		}
	}
	return v
}
