package inference

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"
)

func TestMockProvider(t *testing.T) {
	ctx := context.Background()
	mock := NewMock("I see a mock image")

	resp, err := mock.Vision(ctx, &VisionRequest{Prompt: "What do you see?"})
	if err != nil {
		t.Fatalf("Vision failed: %v", err)
	}
	if resp.Content != "I see a mock image" || resp.Provider != "mock" {
		t.Errorf("response = %+v", resp)
	}
	if mock.CallCount("Vision") != 1 {
		t.Errorf("Expected 1 Vision call, got %d", mock.CallCount("Vision"))
	}
	if mock.LastRequest().Prompt != "What do you see?" {
		t.Error("LastRequest did not record the prompt")
	}

	_ = mock.Close()
	if mock.CallCount("Close") != 1 {
		t.Errorf("Expected 1 Close call, got %d", mock.CallCount("Close"))
	}

	mock.Reset()
	if mock.CallCount("Vision") != 0 || mock.LastRequest() != nil {
		t.Error("Expected no calls after reset")
	}
}

func TestMockScript(t *testing.T) {
	ctx := context.Background()
	mock := NewMock("It is Raven", "Uday")

	var got []string
	for i := 0; i < 3; i++ {
		resp, err := mock.Vision(ctx, &VisionRequest{Prompt: "which"})
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, resp.Content)
	}
	want := []string{"It is Raven", "Uday", "Uday"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("answer %d = %q, want %q", i, got[i], want[i])
		}
	}
	if len(mock.Requests()) != 3 {
		t.Errorf("Expected 3 requests, got %d", len(mock.Requests()))
	}

	if _, err := NewMock().Vision(ctx, &VisionRequest{}); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Expected ErrEmptyResponse without answers, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := mock.Vision(cancelled, &VisionRequest{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestMockFailing(t *testing.T) {
	testErr := errors.New("test error")
	mock := NewFailing(testErr)

	if _, err := mock.Vision(context.Background(), &VisionRequest{}); !errors.Is(err, testErr) {
		t.Errorf("Expected test error, got: %v", err)
	}
	if err := mock.Health(context.Background()); !errors.Is(err, testErr) {
		t.Errorf("Expected test error from Health, got: %v", err)
	}
}

func TestFunctionalOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Apply(
		WithBaseURL("http://localhost:11434/v1"),
		WithAPIKey("k"),
		WithVisionModel("llava"),
		WithMaxTokens(64),
		WithTemperature(0.2),
		WithTimeout(5*time.Second),
		WithRetry(0, 0),
	)

	if cfg.BaseURL != "http://localhost:11434/v1" || cfg.APIKey != "k" {
		t.Errorf("connection options not applied: %+v", cfg)
	}
	if cfg.VisionModel != "llava" || cfg.MaxTokens != 64 || cfg.Temperature != 0.2 {
		t.Errorf("request options not applied: %+v", cfg)
	}
	if cfg.Timeout != 5*time.Second || cfg.MaxRetries != 0 {
		t.Errorf("timeout/retry not applied: %+v", cfg)
	}

	req := &VisionRequest{Model: "override", MaxTokens: 10}
	if cfg.model(req) != "override" || cfg.maxTokens(req) != 10 || cfg.temperature(req) != 0.2 {
		t.Error("request fields should override config defaults")
	}
}

func TestImageEncoding(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	src.Set(1, 1, color.RGBA{150, 119, 89, 255})

	img, err := FromImage(src)
	if err != nil {
		t.Fatal(err)
	}
	if img.MIME != MIMEPNG {
		t.Errorf("MIME = %s", img.MIME)
	}
	if !strings.HasPrefix(img.DataURL(), "data:image/png;base64,iVBOR") {
		t.Errorf("DataURL = %.40s", img.DataURL())
	}

	back, err := DecodeBase64Image(img.Base64())
	if err != nil {
		t.Fatal(err)
	}
	if back.Bounds() != src.Bounds() {
		t.Errorf("bounds = %v", back.Bounds())
	}
	r, g, b, _ := back.At(1, 1).RGBA()
	if r>>8 != 150 || g>>8 != 119 || b>>8 != 89 {
		t.Errorf("pixel = %d,%d,%d", r>>8, g>>8, b>>8)
	}

	if jpg, err := EncodeJPEG(src); err != nil || len(jpg) == 0 {
		t.Errorf("EncodeJPEG = %d bytes, %v", len(jpg), err)
	}
}

func TestAPIErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{400, false},
		{401, false},
		{429, true},
		{500, true},
		{529, true},
	}
	for _, tt := range tests {
		e := &APIError{StatusCode: tt.status, Provider: "x"}
		if e.IsRetryable() != tt.retryable {
			t.Errorf("status %d retryable = %v", tt.status, e.IsRetryable())
		}
	}
}
