package protocol

import (
	"github.com/teslashibe/go-venue-acoustics/pkg/simulation"
	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewCrowdMessage creates a bulk crowd reading
func NewCrowdMessage(density float64, positions []vecmath.Vec3) (*Message, error) {
	return NewMessage(TypeCrowd, CrowdData{Density: density, Positions: positions})
}

// NewJoinMessage creates a join event
func NewJoinMessage(id string, pos vecmath.Vec3) (*Message, error) {
	return NewMessage(TypeJoin, PersonData{ID: id, Position: pos})
}

// NewLeaveMessage creates a leave event
func NewLeaveMessage(id string) (*Message, error) {
	return NewMessage(TypeLeave, PersonData{ID: id})
}

// NewMoveMessage creates a move event
func NewMoveMessage(id string, pos vecmath.Vec3) (*Message, error) {
	return NewMessage(TypeMove, PersonData{ID: id, Position: pos})
}

// NewMovementMessage creates a movement intensity reading
func NewMovementMessage(intensity float64) (*Message, error) {
	return NewMessage(TypeMovement, MovementData{Intensity: intensity})
}

// NewEnvironmentMessage creates a weather reading
func NewEnvironmentMessage(d EnvironmentData) (*Message, error) {
	return NewMessage(TypeEnvironment, d)
}

// NewProfileMessage summarizes a simulation snapshot
func NewProfileMessage(snap simulation.Snapshot) (*Message, error) {
	return NewMessage(TypeProfile, ProfileDataFrom(snap))
}

// ProfileDataFrom builds the wire summary of a snapshot
func ProfileDataFrom(snap simulation.Snapshot) ProfileData {
	d := ProfileData{
		Version:   snap.Version,
		Density:   snap.Crowd.Density,
		Headcount: snap.Crowd.Headcount(),
	}
	if p := snap.Profile; p != nil {
		d.VenueID = p.VenueID
		d.ReverberationTime = p.ReverberationTime
		d.Absorption = p.Absorption
		d.Diffusion = p.Diffusion
		d.SpeedOfSound = p.SpeedOfSound
		d.Low = p.Resonance.Low
		d.Mid = p.Resonance.Mid
		d.High = p.Resonance.High
	}
	return d
}

// NewErrorMessage reports a rejected message
func NewErrorMessage(rejected MessageType, err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Type: rejected, Message: err.Error()})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: 0, // Will be set by NewMessage
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetCrowdData extracts a crowd reading from a message
func (m *Message) GetCrowdData() (*CrowdData, error) {
	var data CrowdData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPersonData extracts a join/leave/move event from a message
func (m *Message) GetPersonData() (*PersonData, error) {
	var data PersonData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetMovementData extracts movement intensity from a message
func (m *Message) GetMovementData() (*MovementData, error) {
	var data MovementData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetEnvironmentData extracts a weather reading from a message
func (m *Message) GetEnvironmentData() (*EnvironmentData, error) {
	var data EnvironmentData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetProfileData extracts a profile summary from a message
func (m *Message) GetProfileData() (*ProfileData, error) {
	var data ProfileData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts an error report from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
