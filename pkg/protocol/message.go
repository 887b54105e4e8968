// Package protocol defines the WebSocket message types exchanged between
// the simulation server, crowd-tracking feeds and profile subscribers.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Feed → Server messages
	TypeCrowd       MessageType = "crowd"       // Density and positions reading
	TypeJoin        MessageType = "join"        // Person entered
	TypeLeave       MessageType = "leave"       // Person left
	TypeMove        MessageType = "move"        // Person moved
	TypeMovement    MessageType = "movement"    // Crowd movement intensity
	TypeEnvironment MessageType = "environment" // Weather reading

	// Server → Subscriber messages
	TypeProfile MessageType = "profile" // Acoustic profile update
	TypeError   MessageType = "error"   // Rejected message

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Feed → Server Message Types
// =============================================================================

// CrowdData is a bulk occupancy reading
type CrowdData struct {
	Density   float64        `json:"density"`             // Occupancy in [0,1]
	Positions []vecmath.Vec3 `json:"positions,omitempty"` // Meters, venue coordinates
}

// PersonData identifies one tracked person
type PersonData struct {
	ID       string       `json:"id"`
	Position vecmath.Vec3 `json:"position"`
}

// MovementData carries crowd movement intensity
type MovementData struct {
	Intensity float64 `json:"intensity"` // 0.0 to 1.0
}

// EnvironmentData is a weather station reading
type EnvironmentData struct {
	TemperatureC    float64 `json:"temperature_c"`
	HumidityPercent float64 `json:"humidity_percent"`
	WindSpeedMPS    float64 `json:"wind_speed_mps"`
	PressureHPa     float64 `json:"pressure_hpa"`
}

// =============================================================================
// Server → Subscriber Message Types
// =============================================================================

// ProfileData summarizes a published acoustic profile
type ProfileData struct {
	VenueID           string  `json:"venue_id"`
	Version           uint64  `json:"version"`
	ReverberationTime float64 `json:"reverberation_time"`
	Absorption        float64 `json:"absorption"`
	Diffusion         float64 `json:"diffusion"`
	SpeedOfSound      float64 `json:"speed_of_sound"`
	Low               float64 `json:"low"`
	Mid               float64 `json:"mid"`
	High              float64 `json:"high"`
	Density           float64 `json:"density"`
	Headcount         int     `json:"headcount"`
}

// ErrorData explains why a message was rejected
type ErrorData struct {
	Type    MessageType `json:"type,omitempty"` // Type of the rejected message
	Message string      `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
