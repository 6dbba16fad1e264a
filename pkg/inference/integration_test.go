//go:build integration

package inference

import (
	"context"
	"os"
	"testing"
	"time"
)

// Integration tests for real API calls.
// Run with: go test -tags=integration -v ./pkg/inference/...

func integrationProviders(t *testing.T) map[string]Provider {
	t.Helper()
	providers := map[string]Provider{}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c, _ := NewClient(WithAPIKey(key))
		providers["openai"] = c
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		a, _ := NewAnthropic(WithAPIKey(key))
		providers["anthropic"] = a
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		g, _ := NewGemini(WithAPIKey(key))
		providers["gemini"] = g
	}
	if url := os.Getenv("SHADE_RELAY_URL"); url != "" {
		r, _ := NewRelay(url)
		providers["relay"] = r
	}

	if len(providers) == 0 {
		t.Skip("no provider credentials set")
	}
	return providers
}

func TestVisionIntegration(t *testing.T) {
	images := testImages(t)

	for name, p := range integrationProviders(t) {
		t.Run(name, func(t *testing.T) {
			defer p.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			resp, err := p.Vision(ctx, &VisionRequest{
				System:    "Answer in one word.",
				Prompt:    "What color is the first image, light or dark?",
				Images:    images,
				MaxTokens: 20,
			})
			if err != nil {
				t.Fatalf("Vision failed: %v", err)
			}
			if resp.Content == "" {
				t.Error("Expected non-empty response")
			}
			t.Logf("Response: %s (%d ms)", resp.Content, resp.LatencyMs)
		})
	}
}

func TestChainIntegration(t *testing.T) {
	providers := integrationProviders(t)

	chain := []Provider{NewFailing(ErrProviderUnavailable)}
	for _, p := range providers {
		chain = append(chain, p)
	}
	c, err := NewChain(chain...)
	if err != nil {
		t.Fatalf("Failed to create chain: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	resp, err := c.Vision(ctx, &VisionRequest{
		Prompt:    "Say 'fallback works' and nothing else.",
		Images:    testImages(t),
		MaxTokens: 20,
	})
	if err != nil {
		t.Fatalf("Chain vision failed: %v", err)
	}

	t.Logf("Chain response (via fallback): %s", resp.Content)
}
