package script

import (
	"errors"
	"time"

	"github.com/linsmod/webf/internal/infrastructure/config"
)

var (
	ErrPoolClosed = errors.New("script pool is closed")
	ErrTimeout    = errors.New("script runtime acquisition timeout")
	ErrClosed     = errors.New("script runtime is closed")
	// ErrUnsettled is returned when a script evaluates to a promise that can
	// no longer settle because nothing is left to run.
	ErrUnsettled = errors.New("script promise never settled")
)

// Config defines runtime limits and the bridge policy of each context.
type Config struct {
	Timeout          time.Duration // Execution timeout, including pending round trips
	AcquireTimeout   time.Duration // Pool acquisition timeout
	MaxCallStackSize int
	EnableConsole    bool
	Bridge           config.BridgeConfig
}

// Result holds execution result
type Result struct {
	Value    interface{}   // Exported completion value, or the promise result
	Console  []LogEntry    // Console output
	HTML     string        // Serialized document after the run
	Duration time.Duration // Execution time
	Error    error         // Execution error
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    // log, info, warn, error, debug
	Message string    // Log message
	Time    time.Time // Timestamp
}

// DefaultConfig returns limits suitable for tests and the runner.
func DefaultConfig() Config {
	return Config{
		Timeout:          5 * time.Second,
		AcquireTimeout:   5 * time.Second,
		MaxCallStackSize: 1024,
		EnableConsole:    true,
		Bridge:           config.Default().Bridge,
	}
}

// FromConfig derives a runtime config from the application config.
func FromConfig(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg.Script.Timeout > 0 {
		c.Timeout = cfg.Script.Timeout
	}
	c.Bridge = cfg.Bridge
	return c
}
