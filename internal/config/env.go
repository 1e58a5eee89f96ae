// Package config provides environment helpers for go-proximity commands.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Prefix is prepended to the short names accepted by the helpers below.
const Prefix = "PROXIMITY_"

// Key returns the fully qualified environment variable name for name.
func Key(name string) string {
	return Prefix + strings.ToUpper(name)
}

// String returns the value of the env var key, or def if unset or empty.
func String(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Float returns the env var key parsed as a float64.
// Unparseable values fall back to def.
func Float(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// Int returns the env var key parsed as an int.
func Int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Bool returns the env var key parsed with strconv.ParseBool.
func Bool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Duration returns the env var key parsed with time.ParseDuration.
func Duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
