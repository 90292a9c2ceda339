package retry

import (
	"fmt"
	"time"
)

// Backoff selects how the delay grows between attempts.
type Backoff string

const (
	BackoffConstant    Backoff = "constant"
	BackoffLinear      Backoff = "linear"
	BackoffExponential Backoff = "exponential"
)

// Config controls a Retryer. The zero value performs a single attempt.
type Config struct {
	Enabled bool `yaml:"enabled"`

	// MaxAttempts counts the first attempt too.
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Backoff      Backoff       `yaml:"backoff"`
	Multiplier   float64       `yaml:"multiplier"` // exponential only
	Jitter       float64       `yaml:"jitter"`     // 0.0 - 1.0

	// Retryable lists error substrings worth another attempt. Empty retries
	// every error.
	Retryable []string `yaml:"retryable"`

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration) `yaml:"-"`
}

// DefaultConfig returns the values used for unset fields.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Backoff:      BackoffExponential,
		Multiplier:   2.0,
	}
}

// Enable returns an enabled configuration with defaults for the rest.
func Enable(maxAttempts int, initialDelay time.Duration) Config {
	c := DefaultConfig()
	c.Enabled = true
	c.MaxAttempts = maxAttempts
	c.InitialDelay = initialDelay
	return c
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts == 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = max(d.MaxDelay, c.InitialDelay)
	}
	if c.Backoff == "" {
		c.Backoff = d.Backoff
	}
	if c.Multiplier == 0 {
		c.Multiplier = d.Multiplier
	}
	return c
}

// Validate checks an enabled configuration.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch {
	case c.MaxAttempts < 1:
		return fmt.Errorf("max_attempts must be >= 1, got %d", c.MaxAttempts)
	case c.InitialDelay < 0:
		return fmt.Errorf("initial_delay must be >= 0")
	case c.MaxDelay < c.InitialDelay:
		return fmt.Errorf("max_delay (%v) must be >= initial_delay (%v)", c.MaxDelay, c.InitialDelay)
	case c.Multiplier <= 0:
		return fmt.Errorf("multiplier must be > 0, got %g", c.Multiplier)
	case c.Jitter < 0 || c.Jitter > 1.0:
		return fmt.Errorf("jitter must be between 0.0 and 1.0, got %g", c.Jitter)
	}
	switch c.Backoff {
	case BackoffConstant, BackoffLinear, BackoffExponential:
		return nil
	}
	return fmt.Errorf("invalid backoff strategy: %s", c.Backoff)
}
