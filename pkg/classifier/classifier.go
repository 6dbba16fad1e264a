// Package classifier asks a vision model which tone in the registry best
// matches a face photo.
//
// The classifier sends the photo and a labeled swatch image with fixed
// prompts and matches the free-text answer back to a tone name. It never
// changes the selection; callers feed the result into the machine's
// suggestion state.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/teslashibe/go-shade/internal/log"
	"github.com/teslashibe/go-shade/pkg/inference"
	"github.com/teslashibe/go-shade/pkg/tone"
)

// ErrNoPhoto is returned when Suggest is called without an image.
var ErrNoPhoto = errors.New("classifier: photo required")

// Config holds classifier settings.
type Config struct {
	// Model overrides the provider's default vision model.
	Model string

	// SwatchPath is the swatch image shown next to the photo. When empty or
	// missing a swatch is rendered from the registry.
	SwatchPath string

	MaxTokens int

	// Timeout bounds one Suggest call.
	Timeout time.Duration
}

// DefaultConfig returns the default classifier configuration.
func DefaultConfig() Config {
	return Config{
		SwatchPath: "swatch.png",
		MaxTokens:  100,
		Timeout:    60 * time.Second,
	}
}

// Result is the outcome of one classification.
type Result struct {
	// Index is the suggested tone, or -1 when the answer named none.
	Index int `json:"index"`

	// Tone is the suggested tone; zero when Index is -1.
	Tone tone.Tone `json:"-"`

	// Text is the raw model answer.
	Text string `json:"text"`

	Provider string        `json:"provider"`
	Latency  time.Duration `json:"latency"`
}

// Found reports whether the answer named a registry tone.
func (r Result) Found() bool {
	return r.Index >= 0
}

// Classifier suggests tones via a vision provider.
type Classifier struct {
	cfg      Config
	provider inference.Provider
	registry *tone.Registry
	swatch   inference.Image
	prompt   string
	logger   *slog.Logger
}

// New creates a classifier. The swatch is loaded or rendered once.
func New(cfg Config, p inference.Provider, reg *tone.Registry) (*Classifier, error) {
	swatch, err := SwatchFor(cfg.SwatchPath, reg)
	if err != nil {
		return nil, err
	}
	return &Classifier{
		cfg:      cfg,
		provider: p,
		registry: reg,
		swatch:   swatch,
		prompt:   Prompt(reg.Names()),
		logger:   log.Component("classifier"),
	}, nil
}

// Swatch returns the swatch image sent with every request.
func (c *Classifier) Swatch() inference.Image {
	return c.swatch
}

// Suggest encodes photo as PNG and classifies it.
func (c *Classifier) Suggest(ctx context.Context, photo image.Image) (Result, error) {
	if photo == nil {
		return Result{Index: -1}, ErrNoPhoto
	}
	enc, err := inference.FromImage(photo)
	if err != nil {
		return Result{Index: -1}, fmt.Errorf("classifier: encode photo: %w", err)
	}
	return c.SuggestEncoded(ctx, enc)
}

// SuggestEncoded classifies an already encoded photo. An answer naming no
// registry tone is not an error: the result has Index -1.
func (c *Classifier) SuggestEncoded(ctx context.Context, photo inference.Image) (Result, error) {
	if len(photo.Data) == 0 {
		return Result{Index: -1}, ErrNoPhoto
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	resp, err := c.provider.Vision(ctx, &inference.VisionRequest{
		System:    SystemPrompt,
		Prompt:    c.prompt,
		Images:    []inference.Image{photo, c.swatch},
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
	})
	if err != nil {
		return Result{Index: -1}, fmt.Errorf("classifier: %w", err)
	}

	res := c.Interpret(resp.Content)
	res.Provider = resp.Provider
	res.Latency = time.Duration(resp.LatencyMs) * time.Millisecond

	c.logger.Info("classified",
		"provider", res.Provider,
		"found", res.Found(),
		"tone", res.Tone.Name,
		"latency_ms", resp.LatencyMs,
	)
	return res, nil
}

// Interpret matches model text against the registry names,
// case-insensitively. The earliest mention wins.
func (c *Classifier) Interpret(text string) Result {
	res := Result{Index: -1, Text: text}
	if i, ok := c.registry.Match(text); ok {
		res.Index = i
		res.Tone = c.registry.At(i)
	}
	return res
}
