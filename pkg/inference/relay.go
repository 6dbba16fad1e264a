package inference

import (
	"context"
	"fmt"
	"time"
)

const providerRelay = "relay"

// Relay calls a hosted cloud function that holds the model key and the
// prompts. It takes exactly two images, the photo and the swatch, and
// ignores the request's prompt, system and model fields.
//
// Wire format: POST {"base64Image1": ..., "base64Image2": ...} returning
// {"content": "..."}.
type Relay struct {
	t transport
}

// NewRelay creates a relay provider posting to endpoint.
func NewRelay(endpoint string, opts ...Option) (*Relay, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = endpoint
	cfg.VisionModel = ""
	cfg.Apply(opts...)

	if cfg.BaseURL == "" {
		return nil, WrapError(providerRelay, ErrNoBaseURL)
	}

	return &Relay{t: newTransport(providerRelay, cfg)}, nil
}

// Name implements Provider.
func (r *Relay) Name() string { return providerRelay }

// Vision forwards the two images to the relay.
func (r *Relay) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	switch {
	case len(req.Images) < 2:
		return nil, WrapError(providerRelay, ErrNoImages)
	case len(req.Images) > 2:
		return nil, WrapError(providerRelay, ErrTooManyImages)
	}
	start := time.Now()

	payload := relayRequest{
		Image1: req.Images[0].Base64(),
		Image2: req.Images[1].Base64(),
	}

	var result relayResponse
	if err := r.t.postJSON(ctx, "", payload, &result); err != nil {
		return nil, err
	}
	if result.Content == "" {
		return nil, WrapError(providerRelay, ErrEmptyResponse)
	}

	return &VisionResponse{
		Content:   result.Content,
		Provider:  providerRelay,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// Health is a no-op: the relay has no side-effect-free endpoint.
func (r *Relay) Health(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}

// Close releases resources.
func (r *Relay) Close() error {
	r.t.close()
	return nil
}

type relayRequest struct {
	Image1 string `json:"base64Image1"`
	Image2 string `json:"base64Image2"`
}

type relayResponse struct {
	Content string `json:"content"`
}

var _ Provider = (*Relay)(nil)
