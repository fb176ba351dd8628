package env

import (
	"os"
	"strings"
)

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	return Lookup(fallback, key)
}

// Lookup returns the first non-blank value among keys, trimmed, or fallback.
// Platform variables such as PORT take priority over the NOTIFYD_ ones when
// listed first.
func Lookup(fallback string, keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return fallback
}
