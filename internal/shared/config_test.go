package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Gateway.BaseURL != "http://localhost:8080" {
			t.Errorf("expected gateway base URL http://localhost:8080, got %s", config.Gateway.BaseURL)
		}
		if config.Gateway.Timeout.Duration != 30*time.Second {
			t.Errorf("expected gateway timeout 30s, got %v", config.Gateway.Timeout)
		}
		if config.OAuth.ClientID != "" {
			t.Errorf("expected no OAuth client id to ship with the defaults, got %s", config.OAuth.ClientID)
		}
		if config.OAuth.PollInterval.Duration != 100*time.Millisecond {
			t.Errorf("expected poll interval 100ms, got %v", config.OAuth.PollInterval)
		}
		if config.UI.MutationReset.Duration != 2*time.Second {
			t.Errorf("expected mutation reset 2s, got %v", config.UI.MutationReset)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Gateway.BaseURL != DefaultConfig().Gateway.BaseURL {
			t.Errorf("created config gateway URL doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[gateway]
base_url = "https://gateway.example.com"

[oauth]
client_id = "test-client.apps.example.com"
redirect_url = "http://127.0.0.1:9999/callback"

[ui]
mutation_reset = "500ms"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Gateway.BaseURL != "https://gateway.example.com" {
			t.Errorf("expected gateway URL https://gateway.example.com, got %s", config.Gateway.BaseURL)
		}
		if config.Gateway.Timeout.Duration != 30*time.Second {
			t.Errorf("expected timeout to keep its default, got %v", config.Gateway.Timeout)
		}
		if config.OAuth.ClientID != "test-client.apps.example.com" {
			t.Errorf("expected client id test-client.apps.example.com, got %s", config.OAuth.ClientID)
		}
		if config.UI.MutationReset.Duration != 500*time.Millisecond {
			t.Errorf("expected mutation reset 500ms, got %v", config.UI.MutationReset)
		}
	})

	t.Run("LoadConfig rejects bad durations", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[ui]\nmutation_reset = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error for invalid duration")
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		config := DefaultConfig()
		env := map[string]string{
			EnvGatewayURL:         "https://gw.internal",
			EnvGoogleClientID:     " from-env ",
			EnvGoogleClientSecret: "",
		}

		config.ApplyEnv(func(k string) string { return env[k] })

		if config.Gateway.BaseURL != "https://gw.internal" {
			t.Errorf("expected env gateway URL, got %s", config.Gateway.BaseURL)
		}
		if config.OAuth.ClientID != "from-env" {
			t.Errorf("expected trimmed env client id, got %q", config.OAuth.ClientID)
		}
		if config.OAuth.ClientSecret != "" {
			t.Errorf("expected empty env value to leave secret alone, got %q", config.OAuth.ClientSecret)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name    string
			mutate  func(*Config)
			wantErr bool
		}{
			{name: "defaults", mutate: func(*Config) {}},
			{name: "relative gateway URL", mutate: func(c *Config) { c.Gateway.BaseURL = "/api" }, wantErr: true},
			{name: "negative timeout", mutate: func(c *Config) { c.Gateway.Timeout.Duration = -time.Second }, wantErr: true},
			{name: "zero mutation reset", mutate: func(c *Config) { c.UI.MutationReset.Duration = 0 }, wantErr: true},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)

				err := config.Validate()
				if (err != nil) != tt.wantErr {
					t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
				if err != nil && !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})

	t.Run("ValidateOAuth", func(t *testing.T) {
		config := DefaultConfig()
		if err := config.ValidateOAuth(); !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig without client id, got %v", err)
		}

		config.OAuth.ClientID = "client"
		if err := config.ValidateOAuth(); err != nil {
			t.Errorf("expected valid OAuth config, got %v", err)
		}

		config.OAuth.RedirectURL = "https://example.com/callback"
		if err := config.ValidateOAuth(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig for non-loopback redirect, got %v", err)
		}
	})
}
