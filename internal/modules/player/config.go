package player

import (
	"errors"
	"fmt"
	"time"

	"github.com/sglre6355/tunebot/internal/bot"
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
	"github.com/sglre6355/tunebot/internal/modules/player/infrastructure"
	"github.com/sglre6355/tunebot/internal/modules/player/infrastructure/tunehub"
)

// ErrMissingLavalink is returned when the bot runs without a Lavalink node.
var ErrMissingLavalink = errors.New("LAVALINK_ADDRESS and LAVALINK_PASSWORD are required")

// TunehubConfig configures the resolution API endpoints.
type TunehubConfig struct {
	PrimaryURL  string        `toml:"primary_url"  env:"PRIMARY_URL"`
	FallbackURL string        `toml:"fallback_url" env:"FALLBACK_URL"`
	Timeout     time.Duration `toml:"timeout"      env:"TIMEOUT"`
	RateLimit   float64       `toml:"rate_limit"   env:"RATE_LIMIT"`
	RateBurst   int           `toml:"rate_burst"   env:"RATE_BURST"`
}

// LavalinkConfig configures the media node.
type LavalinkConfig struct {
	Address  string `toml:"address"  env:"ADDRESS"`
	Password string `toml:"password" env:"PASSWORD"`
	Secure   bool   `toml:"secure"   env:"SECURE"`
}

// Config holds the player module configuration, read from the [player]
// table of the config file and then from the environment.
type Config struct {
	Tunehub       TunehubConfig  `toml:"tunehub"  envPrefix:"TUNEHUB_"`
	Lavalink      LavalinkConfig `toml:"lavalink" envPrefix:"LAVALINK_"`
	MaxRetry      int            `toml:"max_retry"      env:"PLAYER_MAX_RETRY"`
	DefaultVolume float64        `toml:"default_volume" env:"PLAYER_DEFAULT_VOLUME"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Tunehub: TunehubConfig{
			PrimaryURL: "http://localhost:3000/api",
			Timeout:    tunehub.DefaultTimeout,
			RateLimit:  10,
			RateBurst:  5,
		},
		MaxRetry:      domain.DefaultMaxRetry,
		DefaultVolume: 0.8,
	}
}

// LoadConfig loads the player configuration. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	file := struct {
		Player Config `toml:"player"`
	}{Player: *DefaultConfig()}

	if err := bot.Load(path, &file); err != nil {
		return nil, err
	}

	cfg := &file.Player
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports values the player cannot work with.
func (c *Config) Validate() error {
	if c.Tunehub.PrimaryURL == "" {
		return errors.New("tunehub primary URL is required")
	}
	if c.MaxRetry < 0 {
		return fmt.Errorf("max retry must not be negative, got %d", c.MaxRetry)
	}
	if c.DefaultVolume < 0 || c.DefaultVolume > 1 {
		return fmt.Errorf("default volume must be within [0, 1], got %g", c.DefaultVolume)
	}
	return nil
}

// ValidateLavalink reports whether a media node is configured.
func (c *Config) ValidateLavalink() error {
	if c.Lavalink.Address == "" || c.Lavalink.Password == "" {
		return ErrMissingLavalink
	}
	return nil
}

// TransportConfig returns the tunehub transport settings.
func (c *Config) TransportConfig() tunehub.Config {
	return tunehub.Config{
		PrimaryURL:  c.Tunehub.PrimaryURL,
		FallbackURL: c.Tunehub.FallbackURL,
		Timeout:     c.Tunehub.Timeout,
		RateLimit:   c.Tunehub.RateLimit,
		RateBurst:   c.Tunehub.RateBurst,
	}
}

func (c *Config) lavalinkConfig() infrastructure.LavalinkConfig {
	return infrastructure.LavalinkConfig{
		Address:  c.Lavalink.Address,
		Password: c.Lavalink.Password,
		Secure:   c.Lavalink.Secure,
	}
}
