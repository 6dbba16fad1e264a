package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

const providerGemini = "gemini"

// Gemini implements Provider for Google's Gemini API.
// Gemini uses its own generateContent format rather than OpenAI's.
type Gemini struct {
	t      transport
	apiKey string
}

// NewGemini creates a Gemini provider.
func NewGemini(opts ...Option) (*Gemini, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	cfg.VisionModel = ModelGeminiFlash
	cfg.Temperature = 0.4
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, WrapError(providerGemini, ErrNoAPIKey)
	}

	t := newTransport(providerGemini, cfg)
	t.parseError = func(body []byte) (string, string) {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
				Status  string `json:"status"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &errResp) != nil {
			return "", ""
		}
		return errResp.Error.Message, errResp.Error.Status
	}
	return &Gemini{t: t, apiKey: cfg.APIKey}, nil
}

// Name implements Provider.
func (g *Gemini) Name() string { return providerGemini }

// Vision analyzes the images using Gemini.
func (g *Gemini) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	if len(req.Images) == 0 {
		return nil, WrapError(providerGemini, ErrNoImages)
	}
	start := time.Now()
	cfg := g.t.config
	model := cfg.model(req)

	parts := []map[string]any{
		{"text": req.Prompt},
	}
	for _, img := range req.Images {
		parts = append(parts, map[string]any{
			"inline_data": map[string]string{
				"mime_type": img.MIME,
				"data":      img.Base64(),
			},
		})
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{"role": "user", "parts": parts},
		},
		"generationConfig": map[string]any{
			"temperature":     cfg.temperature(req),
			"maxOutputTokens": cfg.maxTokens(req),
		},
	}
	if req.System != "" {
		payload["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": req.System}},
		}
	}

	path := fmt.Sprintf("/models/%s:generateContent?key=%s", model, url.QueryEscape(g.apiKey))

	var result geminiResponse
	if err := g.t.postJSON(ctx, path, payload, &result); err != nil {
		return nil, err
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, WrapError(providerGemini, ErrEmptyResponse)
	}

	var text string
	for _, p := range result.Candidates[0].Content.Parts {
		text += p.Text
	}

	return &VisionResponse{
		Content: text,
		Usage: Usage{
			PromptTokens:     result.UsageMetadata.PromptTokenCount,
			CompletionTokens: result.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      result.UsageMetadata.TotalTokenCount,
		},
		Model:     model,
		Provider:  providerGemini,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// Health checks API connectivity.
func (g *Gemini) Health(ctx context.Context) error {
	if err := g.t.get(ctx, "/models?key="+url.QueryEscape(g.apiKey)); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}

// Close releases resources.
func (g *Gemini) Close() error {
	g.t.close()
	return nil
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Verify Gemini implements Provider at compile time.
var _ Provider = (*Gemini)(nil)
