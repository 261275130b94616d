// Package config loads orrery configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ListenPort is fixed; there is no flag or config key for it
const ListenPort = 3000

// DefaultPath is the config file read when no --config flag is given
const DefaultPath = "orrery.yaml"

// Relay modes and providers
const (
	RelayLocal     = "local"
	RelayRemote    = "remote"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds all orrery configuration.
type Config struct {
	Relay   RelayConfig   `yaml:"relay"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	View    ViewConfig    `yaml:"view"`
}

// RelayConfig selects and configures the conversation relay.
type RelayConfig struct {
	Mode      string `yaml:"mode"`     // local, remote
	Provider  string `yaml:"provider"` // openai, gemini
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"`
	APIKey    string `yaml:"api_key"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	TLS           TLSConfig `yaml:"tls"`
	RatePerMinute int       `yaml:"rate_per_minute"` // per client IP on /ask-planet, 0 disables
	StreamEvery   int       `yaml:"stream_every"`    // frames between /ws snapshots
	CORSOrigin    string    `yaml:"cors_origin"`
	FPS           int       `yaml:"fps"`
}

// TLSConfig enables HTTPS with ACME certificates when Hosts is non-empty.
type TLSConfig struct {
	Hosts    []string `yaml:"hosts"`
	CacheDir string   `yaml:"cache_dir"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// ViewConfig configures the terminal view.
type ViewConfig struct {
	FPS         int  `yaml:"fps"`
	ShowOrbits  bool `yaml:"show_orbits"`
	OrbitPoints int  `yaml:"orbit_points"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Relay: RelayConfig{
			Mode:      RelayRemote,
			Provider:  ProviderOpenAI,
			Model:     "gpt-3.5-turbo-instruct",
			BaseURL:   "https://api.openai.com/v1",
			MaxTokens: 150,
		},
		Server: ServerConfig{
			TLS: TLSConfig{
				CacheDir: "certs",
			},
			StreamEvery: 2,
			CORSOrigin:  "*",
			FPS:         60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		View: ViewConfig{
			FPS:         30,
			ShowOrbits:  true,
			OrbitPoints: 128,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides. A configured
// gemini provider takes GEMINI_API_KEY only. Otherwise OPENAI_API_KEY wins,
// and GEMINI_API_KEY alone switches the provider to gemini.
func (c *Config) applyEnvOverrides() {
	openaiKey := os.Getenv("OPENAI_API_KEY")
	geminiKey := os.Getenv("GEMINI_API_KEY")
	switch {
	case strings.EqualFold(c.Relay.Provider, ProviderGemini):
		if geminiKey != "" {
			c.Relay.APIKey = geminiKey
		}
	case openaiKey != "":
		c.Relay.APIKey = openaiKey
	case geminiKey != "":
		c.Relay.APIKey = geminiKey
		c.Relay.Provider = ProviderGemini
		if c.Relay.Model == DefaultConfig().Relay.Model {
			c.Relay.Model = "gemini-2.0-flash"
		}
	}
	if mode := os.Getenv("ORRERY_RELAY"); mode != "" {
		c.Relay.Mode = mode
	}
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		c.Relay.BaseURL = url
	}
}

// Validate checks relay and server settings. Mode and provider are matched
// case-insensitively; an empty mode means local and an empty provider means
// openai. A missing API key is not an error; remote relays fail per request
// instead.
func (c *Config) Validate() error {
	mode := strings.ToLower(c.Relay.Mode)
	switch mode {
	case "", RelayLocal, RelayRemote:
	default:
		return fmt.Errorf("invalid relay mode %q (want %s or %s)", c.Relay.Mode, RelayLocal, RelayRemote)
	}
	if mode == RelayRemote {
		switch strings.ToLower(c.Relay.Provider) {
		case "", ProviderOpenAI, ProviderGemini:
		default:
			return fmt.Errorf("invalid relay provider %q", c.Relay.Provider)
		}
		if c.Relay.MaxTokens <= 0 {
			return fmt.Errorf("relay max_tokens must be positive, got %d", c.Relay.MaxTokens)
		}
	}
	if c.Server.RatePerMinute < 0 {
		return fmt.Errorf("server rate_per_minute must not be negative")
	}
	return nil
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", ListenPort)
}
