// Package script runs the avatar headlessly against a timed list of chat
// signal events and samples the resulting frames.
package script

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/normanking/puppyavatar/internal/movement"
)

const (
	DefaultFPS         = 60
	DefaultSampleEvery = 6
	maxDuration        = time.Hour
)

var ErrInvalidScript = errors.New("invalid script")

// Event changes chat signals at a point in simulated time. Nil fields are
// left unchanged.
type Event struct {
	At        time.Duration `yaml:"at"`
	Speaking  *bool         `yaml:"speaking,omitempty"`
	Typing    *bool         `yaml:"typing,omitempty"`
	Intensity string        `yaml:"intensity,omitempty"`
	Message   *int          `yaml:"message,omitempty"`
}

// Script is a timed list of signal events and the settings to run them.
type Script struct {
	Duration time.Duration `yaml:"duration"`
	FPS      int           `yaml:"fps,omitempty"`
	// SampleEvery keeps one frame out of every N ticks.
	SampleEvery int     `yaml:"sample_every,omitempty"`
	Intensity   string  `yaml:"intensity,omitempty"`
	Events      []Event `yaml:"events"`
}

// Parse decodes a YAML script, applies defaults and validates it.
func Parse(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty script", ErrInvalidScript)
		}
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if err := s.normalize(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Script) normalize() error {
	if s.FPS == 0 {
		s.FPS = DefaultFPS
	}
	if s.SampleEvery == 0 {
		s.SampleEvery = DefaultSampleEvery
	}
	if s.Intensity == "" {
		s.Intensity = string(movement.IntensitySubtle)
	}
	return s.Validate()
}

// Validate checks ranges and sorts events by time.
func (s *Script) Validate() error {
	if s.Duration <= 0 || s.Duration > maxDuration {
		return fmt.Errorf("%w: duration must be in (0, %s], got %s", ErrInvalidScript, maxDuration, s.Duration)
	}
	if s.FPS <= 0 || s.FPS > 240 {
		return fmt.Errorf("%w: fps must be in 1..240, got %d", ErrInvalidScript, s.FPS)
	}
	if s.SampleEvery < 1 {
		return fmt.Errorf("%w: sample_every must be positive, got %d", ErrInvalidScript, s.SampleEvery)
	}
	if _, err := movement.ParseIntensity(s.Intensity); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	for i, e := range s.Events {
		if e.At < 0 || e.At > s.Duration {
			return fmt.Errorf("%w: event %d at %s is outside the script", ErrInvalidScript, i, e.At)
		}
		if e.Intensity != "" {
			if _, err := movement.ParseIntensity(e.Intensity); err != nil {
				return fmt.Errorf("%w: event %d: %v", ErrInvalidScript, i, err)
			}
		}
		if e.Message != nil && *e.Message < 0 {
			return fmt.Errorf("%w: event %d: negative message length", ErrInvalidScript, i)
		}
	}
	sort.SliceStable(s.Events, func(i, j int) bool { return s.Events[i].At < s.Events[j].At })
	return nil
}
