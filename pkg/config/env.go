package config

import (
	"os"
	"strconv"
	"time"
)

// envString returns the environment variable's value, or fallback when the
// variable is unset or empty.
func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt returns the environment variable parsed as an int, or fallback
// when unset, empty, or not a valid integer.
func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envDuration returns the environment variable parsed as a duration
// ("250ms", "2s"), or fallback when unset, empty, or invalid.
func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
