package config

import (
	"os"
	"strings"
)

// APIKey returns the API key for a provider from its environment
// variable, e.g. OPENAI_API_KEY. Gemini also accepts GOOGLE_API_KEY.
func APIKey(provider string) string {
	key := os.Getenv(strings.ToUpper(provider) + "_API_KEY")
	if key == "" && provider == ProviderGemini {
		key = os.Getenv("GOOGLE_API_KEY")
	}
	return key
}

// Port returns the PORT env var or def.
func Port(def string) string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return def
}
