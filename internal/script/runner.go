package script

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"github.com/normanking/puppyavatar/internal/avatar3d"
	"github.com/normanking/puppyavatar/internal/compositor"
	"github.com/normanking/puppyavatar/internal/movement"
)

// PartSample is one part's transform in a sample.
type PartSample struct {
	Position mgl64.Vec3 `json:"position" yaml:"position,flow"`
	Rotation mgl64.Vec3 `json:"rotation" yaml:"rotation,flow"`
	Scale    mgl64.Vec3 `json:"scale" yaml:"scale,flow"`
}

// BreathSample is the breathing state in a sample.
type BreathSample struct {
	Phase     float64 `json:"phase" yaml:"phase"`
	Intensity float64 `json:"intensity" yaml:"intensity"`
	Count     int     `json:"count" yaml:"count"`
	Inhaling  bool    `json:"inhaling" yaml:"inhaling"`
}

// Sample is one recorded frame.
type Sample struct {
	Sequence  uint64                `json:"sequence" yaml:"sequence"`
	Time      float64               `json:"time" yaml:"time"`
	State     string                `json:"state" yaml:"state"`
	Intensity string                `json:"intensity" yaml:"intensity"`
	Preset    string                `json:"preset" yaml:"preset"`
	Breath    BreathSample          `json:"breath" yaml:"breath"`
	Parts     map[string]PartSample `json:"parts" yaml:"parts"`
}

func newSample(s avatar3d.Snapshot) Sample {
	parts := make(map[string]PartSample, compositor.PartCount)
	for i, tr := range s.Frame.Parts {
		parts[compositor.Part(i).String()] = PartSample{
			Position: tr.Position,
			Rotation: tr.Rotation,
			Scale:    tr.Scale,
		}
	}
	return Sample{
		Sequence:  s.Sequence,
		Time:      s.Frame.Time,
		State:     string(s.State),
		Intensity: string(s.Intensity),
		Preset:    string(s.Preset),
		Breath: BreathSample{
			Phase:     s.Breathing.Phase,
			Intensity: s.Breathing.Intensity,
			Count:     s.Breathing.BreathCount,
			Inhaling:  s.Breathing.IsInhaling,
		},
		Parts: parts,
	}
}

// Result is the outcome of a run.
type Result struct {
	Ticks   int      `json:"ticks" yaml:"ticks"`
	Samples []Sample `json:"samples" yaml:"samples"`
}

// Run drives an avatar through s at a fixed step. Simulated time starts at
// epoch, so runs are deterministic. Auto-clear timeouts are disabled; the
// script owns every flag.
func Run(ctx context.Context, s *Script, cfg avatar3d.Config, logger zerolog.Logger) (*Result, error) {
	epoch := time.Unix(0, 0).UTC()
	now := epoch
	intensity, _ := movement.ParseIntensity(s.Intensity)
	cfg.Intensity = intensity

	signals := avatar3d.NewSignalBridge(
		avatar3d.WithClock(func() time.Time { return now }),
		avatar3d.WithSpeakingTimeout(0),
		avatar3d.WithTypingTimeout(0),
		avatar3d.WithInitialIntensity(intensity),
	)
	defer signals.Close()

	av := avatar3d.Create(cfg, signals, nil, logger)
	defer av.Dispose()

	dt := 1 / float64(s.FPS)
	step := time.Second / time.Duration(s.FPS)
	ticks := int(s.Duration / step)

	res := &Result{Ticks: ticks}
	next := 0
	for i := 1; i <= ticks; i++ {
		if i%s.FPS == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		now = epoch.Add(time.Duration(i) * step)
		for next < len(s.Events) && s.Events[next].At <= now.Sub(epoch) {
			apply(signals, s.Events[next])
			next++
		}

		snap := av.Tick(dt, now)
		if i%s.SampleEvery == 0 {
			res.Samples = append(res.Samples, newSample(snap))
		}
	}
	return res, nil
}

func apply(b *avatar3d.SignalBridge, e Event) {
	if e.Speaking != nil {
		b.SetSpeaking(*e.Speaking)
	}
	if e.Typing != nil {
		b.SetTyping(*e.Typing)
	}
	if e.Intensity != "" {
		if i, err := movement.ParseIntensity(e.Intensity); err == nil {
			b.SetIntensity(i)
		}
	}
	if e.Message != nil {
		b.RecordMessage(*e.Message)
	}
}
