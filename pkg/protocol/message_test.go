package protocol

import (
	"errors"
	"testing"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "landmarks message",
			msgType: TypeLandmarks,
			data:    LandmarksData{Landmarks: [][3]float64{{0, 0, 0}}},
		},
		{
			name:    "input message",
			msgType: TypeInput,
			data:    InputData{Kind: InputScroll, DeltaY: 120},
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
		},
		{
			name:    "unencodable data",
			msgType: TypeError,
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
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestLandmarksRoundTrip(t *testing.T) {
	face := [16]float64{1, 0, 0, 0.5, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	msg, err := NewLandmarksMessage(face, [][3]float64{{0.1, 0.2, 0.3}, {1, 1, 0}})
	if err != nil {
		t.Fatal(err)
	}
	data, err := msg.Bytes()
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeLandmarks {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeLandmarks)
	}

	lm, err := parsed.GetLandmarksData()
	if err != nil {
		t.Fatal(err)
	}
	if lm.Face[3] != 0.5 {
		t.Errorf("Face[3] = %v, want 0.5", lm.Face[3])
	}
	if len(lm.Landmarks) != 2 || lm.Landmarks[0][2] != 0.3 {
		t.Errorf("Landmarks = %v", lm.Landmarks)
	}
}

func TestInputFromBrowserJSON(t *testing.T) {
	raw := `{"type":"input","data":{"kind":"click","x":320,"y":240,"width":640,"height":480}}`
	msg, err := ParseMessage([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	in, err := msg.GetInputData()
	if err != nil {
		t.Fatal(err)
	}
	if in.Kind != InputClick || in.X != 320 || in.Width != 640 {
		t.Errorf("InputData = %+v", in)
	}
}

func TestFrameMessage(t *testing.T) {
	jpegData := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}

	msg, err := NewFrameMessage(640, 480, jpegData, 1)
	if err != nil {
		t.Fatalf("NewFrameMessage() error = %v", err)
	}

	frameData, err := msg.GetFrameData()
	if err != nil {
		t.Fatalf("GetFrameData() error = %v", err)
	}
	if frameData.Format != "jpeg" {
		t.Errorf("Format = %v, want jpeg", frameData.Format)
	}

	decoded, err := frameData.DecodeFrameData()
	if err != nil {
		t.Fatalf("DecodeFrameData() error = %v", err)
	}
	if string(decoded) != string(jpegData) {
		t.Errorf("decoded = %x, want %x", decoded, jpegData)
	}
}

func TestSelectionMessage(t *testing.T) {
	two := 2
	msg, _ := NewSelectionMessage(1, "UDAY", "#ad846b", &two)
	sel, err := msg.GetSelectionData()
	if err != nil {
		t.Fatal(err)
	}
	if sel.Index != 1 || sel.Tone != "UDAY" || sel.Suggested == nil || *sel.Suggested != 2 {
		t.Errorf("SelectionData = %+v", sel)
	}

	msg, _ = NewSelectionMessage(0, "PEARL", "#deb99c", nil)
	data, _ := msg.Bytes()
	parsed, _ := ParseMessage(data)
	sel, _ = parsed.GetSelectionData()
	if sel.Suggested != nil {
		t.Errorf("Suggested = %v, want nil", *sel.Suggested)
	}
}

func TestSuggestionAndError(t *testing.T) {
	msg, _ := NewSuggestionMessage(SuggestionData{Loading: true})
	s, _ := msg.GetSuggestionData()
	if !s.Loading || s.Index != nil {
		t.Errorf("SuggestionData = %+v", s)
	}

	msg, _ = NewErrorMessage(errors.New("boom"))
	var e ErrorData
	if err := msg.ParseData(&e); err != nil || e.Message != "boom" {
		t.Errorf("ErrorData = %+v, %v", e, err)
	}
}

func TestPongMessage(t *testing.T) {
	msg, _ := NewPongMessage("p1", 1000, 1042)
	pong, err := msg.GetPongData()
	if err != nil {
		t.Fatal(err)
	}
	if pong.LatencyMs != 42 {
		t.Errorf("LatencyMs = %d, want 42", pong.LatencyMs)
	}
}

func TestParseMessageErrors(t *testing.T) {
	for _, raw := range []string{"not json", `{"data":{}}`} {
		if _, err := ParseMessage([]byte(raw)); err == nil {
			t.Errorf("ParseMessage(%q) should fail", raw)
		}
	}
}
