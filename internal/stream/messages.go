// Package stream serves composed frames to external renderers over
// WebSocket and accepts chat signals from them.
package stream

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/normanking/puppyavatar/internal/avatar3d"
	"github.com/normanking/puppyavatar/internal/bus"
	"github.com/normanking/puppyavatar/internal/compositor"
)

// MessageType tags every message on the socket.
type MessageType string

const (
	TypeHello  MessageType = "hello"
	TypeFrame  MessageType = "frame"
	TypeSignal MessageType = "signal"
)

// HelloMessage is the first message a client receives.
type HelloMessage struct {
	Type     MessageType `json:"type"`
	ClientID string      `json:"clientId"`
	Parts    []string    `json:"parts"`
}

// PartMessage is one part's transform in a frame.
type PartMessage struct {
	Position mgl64.Vec3 `json:"position"`
	Rotation mgl64.Vec3 `json:"rotation"`
	Scale    mgl64.Vec3 `json:"scale"`
	// Matrix is the column-major local transform.
	Matrix mgl64.Mat4 `json:"matrix"`
}

// FrameMessage is one composed frame.
type FrameMessage struct {
	Type        MessageType            `json:"type"`
	AvatarID    string                 `json:"avatarId"`
	Sequence    uint64                 `json:"sequence"`
	Time        float64                `json:"time"`
	State       string                 `json:"state"`
	Intensity   string                 `json:"intensity"`
	Preset      string                 `json:"preset"`
	BreathPhase float64                `json:"breathPhase"`
	BreathCount int                    `json:"breathCount"`
	Parts       map[string]PartMessage `json:"parts"`
}

// NewFrameMessage converts a snapshot to its wire form.
func NewFrameMessage(s avatar3d.Snapshot) FrameMessage {
	parts := make(map[string]PartMessage, compositor.PartCount)
	for i, tr := range s.Frame.Parts {
		parts[compositor.Part(i).String()] = PartMessage{
			Position: tr.Position,
			Rotation: tr.Rotation,
			Scale:    tr.Scale,
			Matrix:   tr.Matrix(),
		}
	}
	return FrameMessage{
		Type:        TypeFrame,
		AvatarID:    s.AvatarID,
		Sequence:    s.Sequence,
		Time:        s.Frame.Time,
		State:       string(s.State),
		Intensity:   string(s.Intensity),
		Preset:      string(s.Preset),
		BreathPhase: s.Breathing.Phase,
		BreathCount: s.Breathing.BreathCount,
		Parts:       parts,
	}
}

// SignalMessage is sent by clients. Nil fields are left unchanged.
type SignalMessage struct {
	Type              MessageType `json:"type"`
	IsSpeaking        *bool       `json:"isSpeaking,omitempty"`
	UserIsTyping      *bool       `json:"userIsTyping,omitempty"`
	MovementIntensity string      `json:"movementIntensity,omitempty"`
	MessageLength     *int        `json:"messageLength,omitempty"`
}

// Events translates the message into bus events.
func (m SignalMessage) Events() []bus.Event {
	var events []bus.Event
	if m.IsSpeaking != nil {
		t := bus.EventTypeSpeakingStopped
		if *m.IsSpeaking {
			t = bus.EventTypeSpeakingStarted
		}
		events = append(events, bus.Event{Type: t})
	}
	if m.UserIsTyping != nil {
		t := bus.EventTypeTypingStopped
		if *m.UserIsTyping {
			t = bus.EventTypeTypingStarted
		}
		events = append(events, bus.Event{Type: t})
	}
	if m.MovementIntensity != "" {
		events = append(events, bus.Event{
			Type: bus.EventTypeIntensityChanged,
			Data: map[string]any{bus.KeyIntensity: m.MovementIntensity},
		})
	}
	if m.MessageLength != nil {
		events = append(events, bus.Event{
			Type: bus.EventTypeMessage,
			Data: map[string]any{bus.KeyLength: *m.MessageLength},
		})
	}
	return events
}
