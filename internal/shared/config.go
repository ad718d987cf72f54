package shared

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values from the config file.
const (
	EnvGatewayURL         = "BKX_GATEWAY_URL"
	EnvGoogleClientID     = "BKX_GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret = "BKX_GOOGLE_CLIENT_SECRET"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Gateway GatewayConfig `toml:"gateway"`
	OAuth   OAuthConfig   `toml:"oauth"`
	UI      UIConfig      `toml:"ui"`
}

// GatewayConfig points at the API gateway.
type GatewayConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
}

// OAuthConfig contains the OAuth client registration used for the code flow.
type OAuthConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURL  string   `toml:"redirect_url"`
	PollInterval Duration `toml:"poll_interval"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	MutationReset Duration `toml:"mutation_reset"`
	LogFile       string   `toml:"log_file"`
}

// Duration is a [time.Duration] that decodes from strings like "2s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides gateway and OAuth client settings from the environment.
//
// getenv defaults to [os.Getenv].
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvGatewayURL)); v != "" {
		c.Gateway.BaseURL = v
	}
	if v := strings.TrimSpace(getenv(EnvGoogleClientID)); v != "" {
		c.OAuth.ClientID = v
	}
	if v := strings.TrimSpace(getenv(EnvGoogleClientSecret)); v != "" {
		c.OAuth.ClientSecret = v
	}
}

// Validate checks the settings every command needs.
//
// The OAuth client id is checked separately by [Config.ValidateOAuth] since public search works without it.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Gateway.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: gateway.base_url must be an absolute URL, got %q", ErrInvalidConfig, c.Gateway.BaseURL)
	}
	if c.Gateway.Timeout.Duration < 0 {
		return fmt.Errorf("%w: gateway.timeout must not be negative", ErrInvalidConfig)
	}
	if c.UI.MutationReset.Duration <= 0 {
		return fmt.Errorf("%w: ui.mutation_reset must be positive", ErrInvalidConfig)
	}
	return nil
}

// ValidateOAuth checks the settings needed to sign in.
func (c *Config) ValidateOAuth() error {
	if c.OAuth.ClientID == "" {
		return fmt.Errorf("%w: oauth.client_id is not set (config or %s)", ErrMissingConfig, EnvGoogleClientID)
	}
	u, err := url.Parse(c.OAuth.RedirectURL)
	if err != nil || u.Scheme != "http" || u.Host == "" {
		return fmt.Errorf("%w: oauth.redirect_url must be an http loopback URL, got %q", ErrInvalidConfig, c.OAuth.RedirectURL)
	}
	if c.OAuth.PollInterval.Duration <= 0 {
		return fmt.Errorf("%w: oauth.poll_interval must be positive", ErrInvalidConfig)
	}
	return nil
}
