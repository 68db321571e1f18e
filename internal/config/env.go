package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// loads configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	return Parse()
}

// parses the current process environment without touching .env files
func Parse() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.ProviderTimeout <= 0 {
		return nil, fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// true when the goth redirect flow has what it needs
func (c *Config) RedirectFlowEnabled() bool {
	return c.SessionSecret != ""
}

// OAuth2 credentials keyed by provider name
func (c *Config) OAuth2Credentials() map[string]Credentials {
	return map[string]Credentials{
		"google":     c.Google,
		"github":     c.GitHub,
		"linkedin":   c.LinkedIn,
		"facebook":   c.Facebook,
		"yahoo":      c.Yahoo,
		"foursquare": c.Foursquare,
		"twitch":     c.Twitch,
		"bitbucket":  c.Bitbucket,
		"spotify":    c.Spotify,
	}
}
