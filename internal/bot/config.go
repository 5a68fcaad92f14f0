package bot

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// ErrMissingToken is returned when the bot is started without a Discord token.
var ErrMissingToken = errors.New("DISCORD_TOKEN is required")

// Config holds the bot-wide configuration.
type Config struct {
	DiscordToken string `toml:"discord_token" env:"DISCORD_TOKEN"`
	LogLevel     string `toml:"log_level"     env:"LOG_LEVEL"`
	LogFormat    string `toml:"log_format"    env:"LOG_FORMAT"`
	MetricsAddr  string `toml:"metrics_addr"  env:"METRICS_ADDR"`

	// Path is the TOML file the configuration was read from, if any.
	// Modules decode their own tables from the same file.
	Path string `toml:"-"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// LoadConfig loads defaults, then the TOML file at path, then environment
// variables. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Path = path

	if err := Load(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load overlays the TOML file at path and then the environment onto v,
// which should already hold its defaults. An empty path skips the file.
func Load(path string, v any) error {
	if path != "" {
		if _, err := toml.DecodeFile(path, v); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := env.Parse(v); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Validate reports configuration the bot cannot start without.
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return ErrMissingToken
	}
	return nil
}
