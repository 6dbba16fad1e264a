package config

import (
	"github.com/teslashibe/go-shade/internal/log"
	"github.com/teslashibe/go-shade/pkg/inference"
)

// NewProvider builds the vision backend named by cfg.Provider. It returns
// nil, nil when suggestions are disabled, or when cfg.Provider is "auto"
// and no credentials are available. "auto" chains the relay, OpenAI,
// Anthropic and Gemini in that order, skipping any without credentials.
func NewProvider(cfg Config) (inference.Provider, error) {
	opts := []inference.Option{inference.WithLogger(log.Component("inference"))}
	if cfg.Model != "" {
		opts = append(opts, inference.WithVisionModel(cfg.Model))
	}
	keyed := func(provider string) []inference.Option {
		return append(opts[:len(opts):len(opts)], inference.WithAPIKey(APIKey(provider)))
	}

	var (
		p   inference.Provider
		err error
	)
	switch cfg.Provider {
	case ProviderNone:
		return nil, nil
	case ProviderOpenAI:
		p, err = inference.NewClient(keyed(ProviderOpenAI)...)
	case ProviderAnthropic:
		p, err = inference.NewAnthropic(keyed(ProviderAnthropic)...)
	case ProviderGemini:
		p, err = inference.NewGemini(keyed(ProviderGemini)...)
	case ProviderRelay:
		p, err = inference.NewRelay(cfg.RelayURL, opts...)
	default:
		return auto(cfg, opts, keyed)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func auto(cfg Config, opts []inference.Option, keyed func(string) []inference.Option) (inference.Provider, error) {
	var providers []inference.Provider
	if cfg.RelayURL != "" {
		if p, err := inference.NewRelay(cfg.RelayURL, opts...); err == nil {
			providers = append(providers, p)
		}
	}
	if APIKey(ProviderOpenAI) != "" {
		if p, err := inference.NewClient(keyed(ProviderOpenAI)...); err == nil {
			providers = append(providers, p)
		}
	}
	if APIKey(ProviderAnthropic) != "" {
		if p, err := inference.NewAnthropic(keyed(ProviderAnthropic)...); err == nil {
			providers = append(providers, p)
		}
	}
	if APIKey(ProviderGemini) != "" {
		if p, err := inference.NewGemini(keyed(ProviderGemini)...); err == nil {
			providers = append(providers, p)
		}
	}

	switch len(providers) {
	case 0:
		return nil, nil
	case 1:
		return providers[0], nil
	default:
		return inference.NewChain(providers...)
	}
}
