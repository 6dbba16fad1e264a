// Package config loads settings for the shade commands.
//
// Settings come from ~/.shade/config.json merged over defaults, then from
// environment variables, then from command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Defaults.
const (
	DefaultPort     = "8080"
	DefaultMode     = "WEDGE"
	DefaultProvider = ProviderAuto
	DefaultStore    = StoreJSON
	DefaultTracker  = TrackerRemote
	DefaultLogLevel = "info"
	DefaultSwatch   = "swatch.png"
	DefaultYuNet    = "models/face_detection_yunet.onnx"
)

// Classifier providers.
const (
	ProviderAuto      = "auto"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderRelay     = "relay"
	ProviderNone      = "none"
)

// Choice stores.
const (
	StoreJSON      = "json"
	StoreFirestore = "firestore"
	StoreNone      = "none"
)

// Face trackers.
const (
	// TrackerRemote takes landmarks from browser clients.
	TrackerRemote = "remote"

	// TrackerYuNet runs the YuNet detector over a local webcam.
	TrackerYuNet = "yunet"
)

// Config holds settings for cmd/shade.
type Config struct {
	Addr      string `json:"addr"`
	StaticDir string `json:"static_dir,omitempty"`
	Mode      string `json:"mode"`
	LogLevel  string `json:"log_level"`

	// Provider picks the vision backend. "auto" chains every provider
	// that has credentials.
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	RelayURL string `json:"relay_url,omitempty"`
	Swatch   string `json:"swatch"`

	Store     string `json:"store"`
	StorePath string `json:"store_path,omitempty"`
	Project   string `json:"project,omitempty"`
	Bucket    string `json:"bucket,omitempty"`

	// Credentials is a service account key for Google APIs. Application
	// default credentials are used when empty.
	Credentials string `json:"credentials,omitempty"`

	Tracker    string `json:"tracker"`
	Camera     int    `json:"camera"`
	YuNetModel string `json:"yunet_model"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:       ":" + DefaultPort,
		Mode:       DefaultMode,
		LogLevel:   DefaultLogLevel,
		Provider:   DefaultProvider,
		Swatch:     DefaultSwatch,
		Store:      DefaultStore,
		Tracker:    DefaultTracker,
		YuNetModel: DefaultYuNet,
	}
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("config: addr required"))
	}
	switch c.Provider {
	case ProviderAuto, ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderNone:
	case ProviderRelay:
		if c.RelayURL == "" {
			errs = append(errs, errors.New("config: relay provider needs relay_url"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown provider %q", c.Provider))
	}
	switch c.Store {
	case StoreJSON, StoreNone:
	case StoreFirestore:
		if c.Project == "" {
			errs = append(errs, errors.New("config: firestore store needs a project"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown store %q", c.Store))
	}
	switch c.Tracker {
	case TrackerRemote, TrackerYuNet:
	default:
		errs = append(errs, fmt.Errorf("config: unknown tracker %q", c.Tracker))
	}
	if c.Camera < 0 {
		errs = append(errs, errors.New("config: camera must be >= 0"))
	}
	return errors.Join(errs...)
}

// Path returns ~/.shade/config.json.
func Path() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".shade", "config.json")
}

// Load reads the config file, merged over defaults. A missing or
// unreadable file yields the defaults.
func Load() Config {
	cfg := Default()
	data, err := os.ReadFile(Path())
	if err != nil {
		return cfg
	}
	// fields absent from the file keep their defaults
	json.Unmarshal(data, &cfg)
	return cfg
}

// Overrides holds command-line values. Nil fields are unset.
type Overrides struct {
	Addr      *string
	StaticDir *string
	Mode      *string
	LogLevel  *string
	Provider  *string
	Model     *string
	Store     *string
	Tracker   *string
	Camera    *int
}

// LoadWithOverrides loads the file, then applies the environment, then o.
func LoadWithOverrides(o Overrides) Config {
	cfg := Load()

	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	setFromEnv(&cfg.Addr, "SHADE_ADDR")
	setFromEnv(&cfg.Mode, "SHADE_MODE")
	setFromEnv(&cfg.LogLevel, "SHADE_LOG_LEVEL")
	setFromEnv(&cfg.Provider, "SHADE_PROVIDER")
	setFromEnv(&cfg.Model, "SHADE_MODEL")
	setFromEnv(&cfg.RelayURL, "SHADE_RELAY_URL")
	setFromEnv(&cfg.Store, "SHADE_STORE")
	setFromEnv(&cfg.Bucket, "SHADE_BUCKET")
	setFromEnv(&cfg.Tracker, "SHADE_TRACKER")
	setFromEnv(&cfg.Project, "GOOGLE_CLOUD_PROJECT")
	setFromEnv(&cfg.Credentials, "GOOGLE_APPLICATION_CREDENTIALS")

	// CLI flags have highest priority
	apply(&cfg.Addr, o.Addr)
	apply(&cfg.StaticDir, o.StaticDir)
	apply(&cfg.Mode, o.Mode)
	apply(&cfg.LogLevel, o.LogLevel)
	apply(&cfg.Provider, o.Provider)
	apply(&cfg.Model, o.Model)
	apply(&cfg.Store, o.Store)
	apply(&cfg.Tracker, o.Tracker)
	if o.Camera != nil {
		cfg.Camera = *o.Camera
	}

	cfg.Mode = strings.ToUpper(cfg.Mode)
	cfg.Provider = strings.ToLower(cfg.Provider)
	cfg.Store = strings.ToLower(cfg.Store)
	cfg.Tracker = strings.ToLower(cfg.Tracker)
	return cfg
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func apply(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Save writes cfg to ~/.shade/config.json.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
