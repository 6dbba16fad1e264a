// Package protocol defines the WebSocket messages exchanged between the
// browser client and the shade server.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Browser → server
	TypeLandmarks MessageType = "landmarks" // Face pose and landmarks
	TypeLost      MessageType = "lost"      // Face no longer tracked
	TypeFrame     MessageType = "frame"     // Camera frame
	TypeInput     MessageType = "input"     // Pointer, wheel or key event

	// Server → browser
	TypeSelection  MessageType = "selection"  // Selected tone changed
	TypeSuggestion MessageType = "suggestion" // Classifier result or loading state
	TypeChoice     MessageType = "choice"     // Choice recorded
	TypeMode       MessageType = "mode"       // Display mode changed
	TypeSample     MessageType = "sample"     // Sampled face colors
	TypeError      MessageType = "error"      // Request failed

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
// Browser → Server Message Types
// =============================================================================

// LandmarksData is one face-tracking result from the browser.
type LandmarksData struct {
	// Face is the row-major 4x4 face transform (face space to scene space).
	Face [16]float64 `json:"face"`

	// Landmarks are [x, y, z] positions in face space.
	Landmarks [][3]float64 `json:"landmarks"`
}

// FrameData contains a camera frame
type FrameData struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"` // "jpeg", "png"
	Data    string `json:"data"`   // base64 encoded
	FrameID uint64 `json:"frame_id,omitempty"`
}

// Input kinds.
const (
	InputClick    = "click"
	InputSwipe    = "swipe"
	InputPress    = "press"
	InputMove     = "move"
	InputRelease  = "release"
	InputScroll   = "scroll"
	InputKey      = "key"
	InputExternal = "external"
)

// InputData is a user input event. Which fields apply depends on Kind.
type InputData struct {
	Kind string `json:"kind"`

	// Pointer position in viewport pixels.
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	// EndX is the release position of a swipe.
	EndX float64 `json:"end_x,omitempty"`

	// DeltaY is the wheel delta in pixels.
	DeltaY float64 `json:"delta_y,omitempty"`

	// Key is the key name, e.g. "ArrowLeft".
	Key string `json:"key,omitempty"`

	// Index is the tone index picked from an external swatch.
	Index int `json:"index,omitempty"`

	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// =============================================================================
// Server → Browser Message Types
// =============================================================================

// SelectionData describes the current selection.
type SelectionData struct {
	Index     int    `json:"index"`
	Tone      string `json:"tone"`
	Hex       string `json:"hex"`
	Suggested *int   `json:"suggested"`
}

// SuggestionData reports classifier progress and results.
type SuggestionData struct {
	// Loading is true while the classifier is running.
	Loading bool `json:"loading"`

	// Index is the suggested tone, nil when nothing matched.
	Index *int `json:"index"`

	Tone      string `json:"tone,omitempty"`
	Text      string `json:"text,omitempty"`
	Provider  string `json:"provider,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

// ChoiceData is a recorded choice.
type ChoiceData struct {
	ID       string `json:"id"`
	UserTone string `json:"user_tone"`
	AITone   string `json:"ai_tone,omitempty"`
	Agreed   bool   `json:"agreed"`
}

// ModeData names the mounted display.
type ModeData struct {
	Mode string `json:"mode"`
}

// SampleData is the result of sampling face colors.
type SampleData struct {
	Average string   `json:"average"`
	Colors  []string `json:"colors"`
	Nearest string   `json:"nearest"`
}

// ErrorData reports a failed request.
type ErrorData struct {
	Message string `json:"message"`
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
