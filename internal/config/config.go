package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "STOREFRONT"

// Config holds the service configuration read from STOREFRONT_* variables.
type Config struct {
	Addr        string `envconfig:"ADDR"`
	WidgetsFile string `envconfig:"WIDGETS_FILE" default:"widgets.yaml"`
	Dev         bool   `envconfig:"DEV" default:"false"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	CartAPIURL     string        `envconfig:"CART_API_URL"`
	CartAPITimeout time.Duration `envconfig:"CART_API_TIMEOUT" default:"8s"`
	PreviewLatency time.Duration `envconfig:"PREVIEW_CART_LATENCY" default:"300ms"`

	SessionSigningKey string `envconfig:"SESSION_SIGNING_KEY"`
	SecureCookies     bool   `envconfig:"SECURE_COOKIES" default:"false"`
	DefaultLocale     string `envconfig:"DEFAULT_LOCALE" default:"ar"`

	RevertDelay       time.Duration `envconfig:"REVERT_DELAY" default:"2s"`
	ControllerIdleTTL time.Duration `envconfig:"CONTROLLER_IDLE_TTL" default:"30m"`
}

// Load reads the environment. Port resolution: STOREFRONT_ADDR, then Cloud
// Run's PORT, else :8080.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Addr == "" {
		if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
			cfg.Addr = ":" + port
		} else {
			cfg.Addr = ":8080"
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.RevertDelay <= 0 {
		return fmt.Errorf("config: %s_REVERT_DELAY must be positive", envPrefix)
	}
	if c.ControllerIdleTTL < time.Minute {
		return fmt.Errorf("config: %s_CONTROLLER_IDLE_TTL must be at least 1m", envPrefix)
	}
	if !c.Dev && c.SessionSigningKey == "" {
		return fmt.Errorf("config: %s_SESSION_SIGNING_KEY is required outside dev mode", envPrefix)
	}
	if k := c.SessionSigningKey; k != "" && len(k) < 32 {
		return fmt.Errorf("config: %s_SESSION_SIGNING_KEY must be at least 32 bytes", envPrefix)
	}
	return nil
}
