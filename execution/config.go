package execution

import (
	"log/slog"
	"time"

	"github.com/ericli/autotrader/common"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second

	// Dollar ceilings for the pre-trade risk checks.
	DefaultMaxPositionSize = 10000.0
	DefaultMaxSingleOrder  = 5000.0
)

// Config holds the executor's retry and risk parameters. Zero values fall
// back to the defaults above.
type Config struct {
	MaxRetries      int
	RetryDelay      time.Duration
	MaxPositionSize float64
	MaxSingleOrder  float64
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.MaxPositionSize <= 0 {
		c.MaxPositionSize = DefaultMaxPositionSize
	}
	if c.MaxSingleOrder <= 0 {
		c.MaxSingleOrder = DefaultMaxSingleOrder
	}
	return c
}

// ConfigFromEnv builds a Config from the environment, falling back to the
// defaults on missing or malformed variables.
func ConfigFromEnv() Config {
	maxRetries, err := common.GetEnv("ORDER_MAX_RETRIES", DefaultMaxRetries)
	if err != nil {
		slog.Warn("Failed to get ORDER_MAX_RETRIES from env, using default", "error", err)
	}

	retryDelay, err := common.GetEnv("ORDER_RETRY_DELAY", DefaultRetryDelay)
	if err != nil {
		slog.Warn("Failed to get ORDER_RETRY_DELAY from env, using default", "error", err)
	}

	maxPosition, err := common.GetEnv("ORDER_MAX_POSITION_SIZE", DefaultMaxPositionSize)
	if err != nil {
		slog.Warn("Failed to get ORDER_MAX_POSITION_SIZE from env, using default", "error", err)
	}

	maxSingle, err := common.GetEnv("ORDER_MAX_SINGLE_ORDER", DefaultMaxSingleOrder)
	if err != nil {
		slog.Warn("Failed to get ORDER_MAX_SINGLE_ORDER from env, using default", "error", err)
	}

	return Config{
		MaxRetries:      maxRetries,
		RetryDelay:      retryDelay,
		MaxPositionSize: maxPosition,
		MaxSingleOrder:  maxSingle,
	}
}
