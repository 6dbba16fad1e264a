package protocol

import (
	"encoding/base64"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewFrameMessage creates a frame message from raw JPEG data
func NewFrameMessage(width, height int, jpegData []byte, frameID uint64) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{
		Width:   width,
		Height:  height,
		Format:  "jpeg",
		Data:    base64.StdEncoding.EncodeToString(jpegData),
		FrameID: frameID,
	})
}

// NewLandmarksMessage creates a landmarks message
func NewLandmarksMessage(face [16]float64, landmarks [][3]float64) (*Message, error) {
	return NewMessage(TypeLandmarks, LandmarksData{Face: face, Landmarks: landmarks})
}

// NewInputMessage creates an input message
func NewInputMessage(in InputData) (*Message, error) {
	return NewMessage(TypeInput, in)
}

// NewSelectionMessage creates a selection message
func NewSelectionMessage(index int, tone, hex string, suggested *int) (*Message, error) {
	return NewMessage(TypeSelection, SelectionData{
		Index:     index,
		Tone:      tone,
		Hex:       hex,
		Suggested: suggested,
	})
}

// NewSuggestionMessage creates a suggestion message
func NewSuggestionMessage(s SuggestionData) (*Message, error) {
	return NewMessage(TypeSuggestion, s)
}

// NewErrorMessage creates an error message
func NewErrorMessage(err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: err.Error()})
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

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeFrameData decodes the base64 image data
func (f *FrameData) DecodeFrameData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

// GetLandmarksData extracts landmarks from a message
func (m *Message) GetLandmarksData() (*LandmarksData, error) {
	var data LandmarksData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetInputData extracts an input event from a message
func (m *Message) GetInputData() (*InputData, error) {
	var data InputData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSelectionData extracts selection data from a message
func (m *Message) GetSelectionData() (*SelectionData, error) {
	var data SelectionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSuggestionData extracts suggestion data from a message
func (m *Message) GetSuggestionData() (*SuggestionData, error) {
	var data SuggestionData
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
