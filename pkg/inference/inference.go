// Package inference provides a unified interface for multimodal vision
// inference.
//
// The package hides the wire differences between vision providers (OpenAI
// compatible chat completions, Anthropic messages, Gemini generateContent
// and a hosted cloud-function proxy) behind a single Provider interface so
// callers can switch or chain them.
//
// Example usage:
//
//	client, _ := inference.NewClient(
//	    inference.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    inference.WithVisionModel("gpt-4o"),
//	)
//	defer client.Close()
//
//	resp, _ := client.Vision(ctx, &inference.VisionRequest{
//	    System: "You are a careful color analyst.",
//	    Prompt: "Which swatch matches the person?",
//	    Images: []inference.Image{photo, swatch},
//	})
package inference

import (
	"context"
	"image"
)

// Provider is the unified vision inference interface.
type Provider interface {
	// Vision analyzes one or more images with a text prompt.
	Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error)

	// Name identifies the provider in logs and errors.
	Name() string

	// Health checks provider connectivity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Image is an encoded image ready to be sent to a provider.
type Image struct {
	// Data is the encoded image (PNG or JPEG).
	Data []byte

	// MIME is the media type of Data, e.g. "image/png".
	MIME string
}

// Base64 returns Data in standard base64.
func (i Image) Base64() string {
	return EncodeBase64(i.Data)
}

// DataURL returns the image as a data: URL.
func (i Image) DataURL() string {
	return "data:" + i.MIME + ";base64," + i.Base64()
}

// FromImage encodes img as PNG.
func FromImage(img image.Image) (Image, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return Image{}, err
	}
	return Image{Data: data, MIME: MIMEPNG}, nil
}

// VisionRequest for image analysis.
type VisionRequest struct {
	// System is the system instruction. Providers without a system slot
	// prepend it to the prompt.
	System string

	// Prompt describing what to analyze or ask about the images.
	Prompt string

	// Images in the order the prompt refers to them.
	Images []Image

	// Model overrides the default vision model.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness.
	Temperature float64
}

// VisionResponse from image analysis.
type VisionResponse struct {
	// Content is the natural language response.
	Content string

	// Usage tracks token consumption.
	Usage Usage

	// Model used for analysis.
	Model string

	// Provider that produced the response.
	Provider string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
