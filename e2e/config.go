package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// CHAT_SERVER_URL points at a running chat server; the suite is skipped when empty
	ServerURL string        `envconfig:"CHAT_SERVER_URL"`
	Timeout   time.Duration `envconfig:"E2E_TIMEOUT" default:"5s"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_STALE_AFTER must match STALE_AFTER on the server to run the eviction scenario
	StaleAfter    time.Duration `envconfig:"E2E_STALE_AFTER" default:"0s"`
	SweepInterval time.Duration `envconfig:"E2E_SWEEP_INTERVAL" default:"15s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
