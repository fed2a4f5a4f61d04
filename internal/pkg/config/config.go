// Package config exposes typed configuration lookups over a key/value source.
//
// Keys are dotted paths ("modules.attendance.rotation.default_interval_seconds").
// Missing keys return the zero value of the requested type; callers that need
// a fallback use the *Or helpers.
package config

import (
	"io"
	"time"
)

// Config is the read side used by every component.
type Config interface {
	io.Closer

	// IsSet reports whether the key has a value from any source.
	IsSet(key string) bool

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetInt64(key string) int64
	GetFloat64(key string) float64

	// GetMillisecond, GetSecond and GetMinute read an integer and scale it.
	GetMillisecond(key string) time.Duration
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration

	// GetBinary decodes a base64 value. Invalid input yields nil.
	GetBinary(key string) []byte

	// GetArray splits "a,b,c" (or reads a native list), trimming blanks.
	GetArray(key string) []string

	// GetMap parses "k1:v1,k2:v2".
	GetMap(key string) map[string]string
}

// IntOr returns cfg.GetInt64(key) or def when the key is unset or not positive.
func IntOr(cfg Config, key string, def int64) int64 {
	if !cfg.IsSet(key) {
		return def
	}
	if v := cfg.GetInt64(key); v > 0 {
		return v
	}
	return def
}

// DurationOr is IntOr for durations already scaled by the getter.
func DurationOr(get func(string) time.Duration, cfg Config, key string, def time.Duration) time.Duration {
	if !cfg.IsSet(key) {
		return def
	}
	if v := get(key); v > 0 {
		return v
	}
	return def
}

// StringOr returns the string value or def when it is empty.
func StringOr(cfg Config, key, def string) string {
	if v := cfg.GetString(key); v != "" {
		return v
	}
	return def
}
