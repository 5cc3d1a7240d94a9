package compositor

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Target is one mounted scene-graph node.
type Target interface {
	SetPosition(mgl64.Vec3)
	SetRotation(mgl64.Vec3)
	SetScale(mgl64.Vec3)
}

// TransformTarget is a Target that accepts a whole transform at once. Apply
// prefers it, so the node sees one write per frame.
type TransformTarget interface {
	Target
	SetTransform(Transform)
}

// Sink resolves parts to render targets. Target returns nil for parts that
// are not mounted.
type Sink interface {
	Target(Part) Target
}

// Apply writes f to every mounted part of sink and returns how many parts
// were written. Unmounted parts are skipped.
func Apply(f Frame, sink Sink) int {
	if sink == nil {
		return 0
	}
	written := 0
	for i := range f.Parts {
		t := sink.Target(Part(i))
		if t == nil {
			continue
		}
		tr := f.Parts[i]
		if tt, ok := t.(TransformTarget); ok {
			tt.SetTransform(tr)
		} else {
			t.SetPosition(tr.Position)
			t.SetRotation(tr.Rotation)
			t.SetScale(tr.Scale)
		}
		written++
	}
	return written
}

// MemoryTarget records the last transform written to it.
type MemoryTarget struct {
	mu     sync.RWMutex
	tr     Transform
	writes int
}

// SetTransform replaces the whole transform and counts one write.
func (t *MemoryTarget) SetTransform(tr Transform) {
	t.mu.Lock()
	t.tr = tr
	t.writes++
	t.mu.Unlock()
}

func (t *MemoryTarget) SetPosition(v mgl64.Vec3) {
	t.mu.Lock()
	t.tr.Position = v
	t.mu.Unlock()
}

func (t *MemoryTarget) SetRotation(v mgl64.Vec3) {
	t.mu.Lock()
	t.tr.Rotation = v
	t.mu.Unlock()
}

func (t *MemoryTarget) SetScale(v mgl64.Vec3) {
	t.mu.Lock()
	t.tr.Scale = v
	t.mu.Unlock()
}

// Transform returns the last written transform.
func (t *MemoryTarget) Transform() Transform {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tr
}

// Writes counts whole transforms written with SetTransform, which is one
// per Apply. Single-axis setters do not count.
func (t *MemoryTarget) Writes() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.writes
}

// MemorySink is an in-memory Sink for headless runs and tests. Parts can be
// mounted and unmounted at any time.
type MemorySink struct {
	mu      sync.RWMutex
	targets map[Part]*MemoryTarget
}

// NewMemorySink mounts the given parts, or every part when none are given.
func NewMemorySink(parts ...Part) *MemorySink {
	s := &MemorySink{targets: make(map[Part]*MemoryTarget)}
	if len(parts) == 0 {
		for p := Part(0); p < PartCount; p++ {
			parts = append(parts, p)
		}
	}
	for _, p := range parts {
		s.Mount(p)
	}
	return s
}

// Target returns the target mounted for p, or a nil interface.
func (s *MemorySink) Target(p Part) Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.targets[p]
	if !ok {
		return nil
	}
	return t
}

// Mount mounts p at rest and returns its target. Mounting twice returns
// the existing target.
func (s *MemorySink) Mount(p Part) *MemoryTarget {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.targets[p]; ok {
		return t
	}
	t := &MemoryTarget{tr: Rest(1)}
	s.targets[p] = t
	return t
}

// Unmount removes p; later frames skip it.
func (s *MemorySink) Unmount(p Part) {
	s.mu.Lock()
	delete(s.targets, p)
	s.mu.Unlock()
}

// Transform returns the last transform written to p.
func (s *MemorySink) Transform(p Part) (Transform, bool) {
	s.mu.RLock()
	t, ok := s.targets[p]
	s.mu.RUnlock()
	if !ok {
		return Transform{}, false
	}
	return t.Transform(), true
}
