package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnv reads key from the environment and parses it as T. Missing keys
// return defaultValue without error.
func GetEnv[T any](key string, defaultValue T) (T, error) {
	v, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}

	var err error
	var parsed any

	switch any(defaultValue).(type) {
	case string:
		return any(v).(T), nil
	case int:
		parsed, err = strconv.Atoi(v)
	case float64:
		parsed, err = strconv.ParseFloat(v, 64)
	case bool:
		parsed, err = strconv.ParseBool(v)
	case time.Duration:
		parsed, err = time.ParseDuration(v)
	default:
		return defaultValue, fmt.Errorf("unsupported type for env var %s: %T", key, defaultValue)
	}

	if err != nil {
		return defaultValue, fmt.Errorf("failed to parse env %s as %T: %w", key, defaultValue, err)
	}
	return parsed.(T), nil
}

// GetEnvList reads a comma-separated list from the environment. Blank
// entries are dropped; a missing or empty variable returns defaultValue.
func GetEnvList(key string, defaultValue []string) []string {
	v, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(v) == "" {
		return defaultValue
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
