package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	providerAnthropic = "anthropic"
	anthropicVersion  = "2023-06-01"
)

// Anthropic implements Provider over the Anthropic Messages API.
type Anthropic struct {
	t transport
}

// NewAnthropic creates an Anthropic provider.
func NewAnthropic(opts ...Option) (*Anthropic, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = "https://api.anthropic.com/v1"
	cfg.VisionModel = ModelClaudeSonnet
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, WrapError(providerAnthropic, ErrNoAPIKey)
	}

	t := newTransport(providerAnthropic, cfg)
	t.header = func(h http.Header) {
		h.Set("x-api-key", cfg.APIKey)
		h.Set("anthropic-version", anthropicVersion)
	}
	t.parseError = func(body []byte) (string, string) {
		var errResp struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &errResp) != nil {
			return "", ""
		}
		return errResp.Error.Message, errResp.Error.Type
	}
	return &Anthropic{t: t}, nil
}

// Name implements Provider.
func (a *Anthropic) Name() string { return providerAnthropic }

// Vision analyzes the images. Images precede the prompt in the user turn.
func (a *Anthropic) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	if len(req.Images) == 0 {
		return nil, WrapError(providerAnthropic, ErrNoImages)
	}
	start := time.Now()
	cfg := a.t.config
	model := cfg.model(req)

	content := make([]map[string]any, 0, len(req.Images)+1)
	for _, img := range req.Images {
		content = append(content, map[string]any{
			"type": "image",
			"source": map[string]string{
				"type":       "base64",
				"media_type": img.MIME,
				"data":       img.Base64(),
			},
		})
	}
	content = append(content, map[string]any{"type": "text", "text": req.Prompt})

	payload := map[string]any{
		"model":      model,
		"max_tokens": cfg.maxTokens(req),
		"messages": []map[string]any{
			{"role": "user", "content": content},
		},
	}
	if req.System != "" {
		payload["system"] = req.System
	}
	if temp := cfg.temperature(req); temp > 0 {
		payload["temperature"] = temp
	}

	var result anthropicResponse
	if err := a.t.postJSON(ctx, "/messages", payload, &result); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, WrapError(providerAnthropic, ErrEmptyResponse)
	}

	return &VisionResponse{
		Content: text.String(),
		Usage: Usage{
			PromptTokens:     result.Usage.InputTokens,
			CompletionTokens: result.Usage.OutputTokens,
			TotalTokens:      result.Usage.InputTokens + result.Usage.OutputTokens,
		},
		Model:     result.Model,
		Provider:  providerAnthropic,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// Health checks API connectivity by listing models.
func (a *Anthropic) Health(ctx context.Context) error {
	if err := a.t.get(ctx, "/models"); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}

// Close releases resources.
func (a *Anthropic) Close() error {
	a.t.close()
	return nil
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

var _ Provider = (*Anthropic)(nil)
