package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the fleet configuration loaded from environment variables.
type Config struct {
	// DiscordAccounts maps account names to bot tokens, e.g. "main:xxx,backup:yyy".
	DiscordAccounts map[string]string `env:"DISCORD_ACCOUNTS,notEmpty"`

	JoinPollInterval time.Duration `env:"JOIN_POLL_INTERVAL" envDefault:"2s"`
	SendRate         float64       `env:"SEND_RATE"          envDefault:"5"`
	SendBurst        int           `env:"SEND_BURST"         envDefault:"5"`
	DiscordReconnect bool          `env:"DISCORD_RECONNECT"  envDefault:"true"`
	PrimeGuildCache  bool          `env:"PRIME_GUILD_CACHE"  envDefault:"true"`

	MetricsAddr string     `env:"METRICS_ADDR"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
}

// LoadConfig loads configuration from environment variables.
// Returns an error if required fields are missing or malformed.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	for name, token := range c.DiscordAccounts {
		if strings.TrimSpace(name) == "" {
			return errors.New("DISCORD_ACCOUNTS contains an entry without a name")
		}
		if strings.TrimSpace(token) == "" {
			return fmt.Errorf("DISCORD_ACCOUNTS entry %q has no token", name)
		}
	}
	if c.SendRate <= 0 {
		return fmt.Errorf("SEND_RATE must be positive, got %v", c.SendRate)
	}
	if c.SendBurst <= 0 {
		return fmt.Errorf("SEND_BURST must be positive, got %d", c.SendBurst)
	}
	return nil
}

// AccountNames returns the configured account names in sorted order.
func (c *Config) AccountNames() []string {
	names := make([]string, 0, len(c.DiscordAccounts))
	for name := range c.DiscordAccounts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
