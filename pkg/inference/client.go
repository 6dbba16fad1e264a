package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const providerClient = "openai"

// Client is the OpenAI-compatible vision provider. Works with any API that
// accepts image_url parts in chat completions (OpenAI, Ollama, vLLM, Groq).
type Client struct {
	t transport
}

// NewClient creates a new OpenAI-compatible client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.BaseURL == "" {
		return nil, WrapError(providerClient, ErrNoBaseURL)
	}

	t := newTransport(providerClient, cfg)
	t.header = func(h http.Header) {
		if cfg.APIKey != "" {
			h.Set("Authorization", "Bearer "+cfg.APIKey)
		}
	}
	t.parseError = parseOpenAIError
	return &Client{t: t}, nil
}

// Name implements Provider.
func (c *Client) Name() string { return providerClient }

// Vision analyzes the images with a prompt.
func (c *Client) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	if len(req.Images) == 0 {
		return nil, WrapError(providerClient, ErrNoImages)
	}
	start := time.Now()
	cfg := c.t.config
	model := cfg.model(req)

	// Text first, then images in order
	content := []map[string]any{
		{"type": "text", "text": req.Prompt},
	}
	for _, img := range req.Images {
		content = append(content, map[string]any{
			"type":      "image_url",
			"image_url": map[string]string{"url": img.DataURL()},
		})
	}

	var messages []map[string]any
	if req.System != "" {
		messages = append(messages, map[string]any{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]any{"role": "user", "content": content})

	payload := map[string]any{
		"model":      model,
		"messages":   messages,
		"max_tokens": cfg.maxTokens(req),
	}
	if temp := cfg.temperature(req); temp > 0 {
		payload["temperature"] = temp
	}

	var result chatCompletionResponse
	if err := c.t.postJSON(ctx, "/chat/completions", payload, &result); err != nil {
		return nil, err
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return nil, WrapError(providerClient, ErrEmptyResponse)
	}

	return &VisionResponse{
		Content: result.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
		},
		Model:     result.Model,
		Provider:  providerClient,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// Health checks API connectivity.
func (c *Client) Health(ctx context.Context) error {
	if err := c.t.get(ctx, "/models"); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}

// Close releases resources.
func (c *Client) Close() error {
	c.t.close()
	return nil
}

func parseOpenAIError(body []byte) (string, string) {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &errResp) != nil {
		return "", ""
	}
	code := errResp.Error.Code
	if code == "" {
		code = errResp.Error.Type
	}
	return errResp.Error.Message, code
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Verify Client implements Provider at compile time.
var _ Provider = (*Client)(nil)
