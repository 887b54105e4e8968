package protocol

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-venue-acoustics/pkg/acoustics"
	"github.com/teslashibe/go-venue-acoustics/pkg/crowd"
	"github.com/teslashibe/go-venue-acoustics/pkg/simulation"
	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "crowd message",
			msgType: TypeCrowd,
			data:    CrowdData{Density: 0.5},
			wantErr: false,
		},
		{
			name:    "join message",
			msgType: TypeJoin,
			data:    PersonData{ID: "p1", Position: vecmath.V(1, 2, 0)},
			wantErr: false,
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
			wantErr: false,
		},
		{
			name:    "unmarshalable data",
			msgType: TypeCrowd,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if msg == nil {
				t.Fatal("NewMessage() returned nil message")
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestCrowdMessage(t *testing.T) {
	positions := []vecmath.Vec3{vecmath.V(1, 2, 0), vecmath.V(3, 4, 0)}
	msg, err := NewCrowdMessage(0.75, positions)
	if err != nil {
		t.Fatalf("NewCrowdMessage() error = %v", err)
	}

	bytes, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	parsed, err := ParseMessage(bytes)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeCrowd {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeCrowd)
	}

	data, err := parsed.GetCrowdData()
	if err != nil {
		t.Fatalf("GetCrowdData() error = %v", err)
	}
	if data.Density != 0.75 {
		t.Errorf("Density = %v, want 0.75", data.Density)
	}
	if len(data.Positions) != 2 || data.Positions[1] != positions[1] {
		t.Errorf("Positions = %v, want %v", data.Positions, positions)
	}
}

func TestPersonMessages(t *testing.T) {
	join, _ := NewJoinMessage("p1", vecmath.V(5, 6, 0))
	move, _ := NewMoveMessage("p1", vecmath.V(7, 6, 0))
	leave, _ := NewLeaveMessage("p1")

	for _, tt := range []struct {
		msg  *Message
		typ  MessageType
		want vecmath.Vec3
	}{
		{join, TypeJoin, vecmath.V(5, 6, 0)},
		{move, TypeMove, vecmath.V(7, 6, 0)},
		{leave, TypeLeave, vecmath.Vec3{}},
	} {
		if tt.msg.Type != tt.typ {
			t.Errorf("Type = %v, want %v", tt.msg.Type, tt.typ)
		}
		data, err := tt.msg.GetPersonData()
		if err != nil {
			t.Fatalf("GetPersonData() error = %v", err)
		}
		if data.ID != "p1" || data.Position != tt.want {
			t.Errorf("%s data = %+v", tt.typ, data)
		}
	}
}

func TestEnvironmentAndMovementMessages(t *testing.T) {
	msg, err := NewEnvironmentMessage(EnvironmentData{TemperatureC: 25, HumidityPercent: 60, PressureHPa: 1000})
	if err != nil {
		t.Fatalf("NewEnvironmentMessage() error = %v", err)
	}
	env, err := msg.GetEnvironmentData()
	if err != nil {
		t.Fatalf("GetEnvironmentData() error = %v", err)
	}
	if env.TemperatureC != 25 || env.HumidityPercent != 60 || env.PressureHPa != 1000 {
		t.Errorf("environment = %+v", env)
	}

	msg, _ = NewMovementMessage(0.4)
	mv, err := msg.GetMovementData()
	if err != nil {
		t.Fatalf("GetMovementData() error = %v", err)
	}
	if mv.Intensity != 0.4 {
		t.Errorf("Intensity = %v, want 0.4", mv.Intensity)
	}
}

func TestProfileMessage(t *testing.T) {
	cs, _ := crowd.Update(crowd.Empty(), 0.5, []vecmath.Vec3{vecmath.V(1, 1, 0)})
	snap := simulation.Snapshot{
		Version: 7,
		Crowd:   cs,
		Profile: &acoustics.Profile{
			VenueID:           "hall",
			ReverberationTime: 1.8,
			SpeedOfSound:      343.4,
			Resonance:         acoustics.Resonance{Low: 0.4, Mid: 0.5, High: 0.6},
		},
	}

	msg, err := NewProfileMessage(snap)
	if err != nil {
		t.Fatalf("NewProfileMessage() error = %v", err)
	}
	data, err := msg.GetProfileData()
	if err != nil {
		t.Fatalf("GetProfileData() error = %v", err)
	}
	if data.VenueID != "hall" || data.Version != 7 || data.ReverberationTime != 1.8 {
		t.Errorf("profile = %+v", data)
	}
	if data.Headcount != 1 || data.Density != 0.5 || data.High != 0.6 {
		t.Errorf("profile crowd/bands = %+v", data)
	}

	// A snapshot without a profile still serializes.
	empty := ProfileDataFrom(simulation.Snapshot{Version: 1})
	if empty.VenueID != "" || empty.Version != 1 {
		t.Errorf("empty = %+v", empty)
	}
}

func TestErrorMessage(t *testing.T) {
	msg, err := NewErrorMessage(TypeCrowd, errors.New("density -1"))
	if err != nil {
		t.Fatalf("NewErrorMessage() error = %v", err)
	}
	data, err := msg.GetErrorData()
	if err != nil {
		t.Fatalf("GetErrorData() error = %v", err)
	}
	if data.Type != TypeCrowd || data.Message != "density -1" {
		t.Errorf("error data = %+v", data)
	}
}

func TestPingPongMessage(t *testing.T) {
	pingMsg, err := NewPingMessage("test-123")
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}

	if pingMsg.Type != TypePing {
		t.Errorf("Type = %v, want %v", pingMsg.Type, TypePing)
	}

	pingData, err := pingMsg.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}

	if pingData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pingData.ID)
	}

	// Create pong response
	now := time.Now().UnixMilli()
	pongMsg, err := NewPongMessage("test-123", pingMsg.Timestamp, now)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}

	if pongMsg.Type != TypePong {
		t.Errorf("Type = %v, want %v", pongMsg.Type, TypePong)
	}

	pongData, err := pongMsg.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}

	if pongData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pongData.ID)
	}
	if pongData.LatencyMs < 0 {
		t.Errorf("LatencyMs = %v, should be >= 0", pongData.LatencyMs)
	}
}

func TestParseInvalidMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "invalid json",
			input:   "not json",
			wantErr: true,
		},
		{
			name:    "missing type",
			input:   "{}",
			wantErr: true,
		},
		{
			name:    "valid message",
			input:   `{"type":"ping","ts":1234567890}`,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessageJSON(t *testing.T) {
	// Verify JSON structure matches expected format
	msg, _ := NewJoinMessage("p1", vecmath.V(1, 2, 0))

	bytes, _ := msg.Bytes()

	var parsed map[string]interface{}
	if err := json.Unmarshal(bytes, &parsed); err != nil {
		t.Fatalf("Failed to unmarshal as map: %v", err)
	}

	if parsed["type"] != "join" {
		t.Errorf("type = %v, want join", parsed["type"])
	}

	if _, ok := parsed["ts"]; !ok {
		t.Error("ts field should be present")
	}

	data, ok := parsed["data"].(map[string]interface{})
	if !ok {
		t.Fatal("data field should be an object")
	}
	pos, ok := data["position"].(map[string]interface{})
	if !ok || pos["x"] != 1.0 || pos["y"] != 2.0 {
		t.Errorf("position = %v", data["position"])
	}
}

func BenchmarkNewCrowdMessage(b *testing.B) {
	positions := make([]vecmath.Vec3, 1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NewCrowdMessage(0.5, positions)
	}
}

func BenchmarkParseMessage(b *testing.B) {
	msg, _ := NewCrowdMessage(0.5, make([]vecmath.Vec3, 1000))
	bytes, _ := msg.Bytes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseMessage(bytes)
	}
}
