package config

import (
	"testing"
)

func clearKeys(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		t.Setenv(key, "")
	}
}

func TestNewProvider(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		clearKeys(t)
		cfg := Default()
		cfg.Provider = ProviderNone
		p, err := NewProvider(cfg)
		if err != nil || p != nil {
			t.Errorf("expected nil provider, got %v, %v", p, err)
		}
	})

	t.Run("auto without credentials", func(t *testing.T) {
		clearKeys(t)
		p, err := NewProvider(Default())
		if err != nil || p != nil {
			t.Errorf("expected nil provider, got %v, %v", p, err)
		}
	})

	t.Run("anthropic without key", func(t *testing.T) {
		clearKeys(t)
		cfg := Default()
		cfg.Provider = ProviderAnthropic
		if _, err := NewProvider(cfg); err == nil {
			t.Error("expected missing key error")
		}
	})

	t.Run("relay", func(t *testing.T) {
		clearKeys(t)
		cfg := Default()
		cfg.Provider = ProviderRelay
		cfg.RelayURL = "http://localhost:9999/classify"
		p, err := NewProvider(cfg)
		if err != nil {
			t.Fatalf("NewProvider failed: %v", err)
		}
		defer p.Close()
		if p.Name() != "relay" {
			t.Errorf("expected relay, got %s", p.Name())
		}
	})

	t.Run("auto single key", func(t *testing.T) {
		clearKeys(t)
		t.Setenv("GEMINI_API_KEY", "g-test")
		p, err := NewProvider(Default())
		if err != nil {
			t.Fatalf("NewProvider failed: %v", err)
		}
		defer p.Close()
		if p.Name() != "gemini" {
			t.Errorf("expected gemini, got %s", p.Name())
		}
	})

	t.Run("auto chains", func(t *testing.T) {
		clearKeys(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		t.Setenv("ANTHROPIC_API_KEY", "ant-test")
		p, err := NewProvider(Default())
		if err != nil {
			t.Fatalf("NewProvider failed: %v", err)
		}
		defer p.Close()
		if p.Name() != "chain(openai,anthropic)" {
			t.Errorf("unexpected chain %s", p.Name())
		}
	})
}
