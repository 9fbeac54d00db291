package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	BadgerFilepath  string        `env:"BADGER_FILEPATH,default=./data/badger"`
	BadgerInMemory  bool          `env:"BADGER_IN_MEMORY,default=false"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
	Host            string        `env:"HOST,default=0.0.0.0"`
	Port            int           `env:"PORT,default=5000"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL,default=15s"`
	StaleAfter      time.Duration `env:"STALE_AFTER,default=10s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s"`
	RateLimitRPS    float64       `env:"RATE_LIMIT_RPS,default=5"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST,default=10"`
	AllowedOrigins  string        `env:"ALLOWED_ORIGINS,default=*"`
	CensoredWords   string        `env:"CENSORED_WORDS"`
	CharReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if c.StaleAfter <= 0 {
		return fmt.Errorf("STALE_AFTER must be positive, got %s", c.StaleAfter)
	}
	if c.RestartInterval <= 0 {
		return fmt.Errorf("RESTART_INTERVAL must be positive, got %s", c.RestartInterval)
	}
	if !c.BadgerInMemory && c.BadgerFilepath == "" {
		return fmt.Errorf("BADGER_FILEPATH is required unless BADGER_IN_MEMORY is set")
	}
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}

// SplitList turns a comma separated value into its trimmed, non-empty items.
func SplitList(str string) []string {
	items := lo.Map(strings.Split(str, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	})
	return lo.Compact(items)
}
