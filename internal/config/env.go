package config

import (
	"os"
	"strconv"
	"strings"
)

// lookup resolves `key` from the environment, falling back to the contents of
// the file named by `key + "_FILE"`. The file form exists for secret mounts.
func lookup(key string) (string, bool) {
	if val := os.Getenv(key); val != "" {
		return val, true
	}
	if path := os.Getenv(key + "_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data)), true
		}
	}
	return "", false
}

// Get returns the value of the environment variable `key`, or def if unset.
func Get(key, def string) string {
	if val, ok := lookup(key); ok {
		return val
	}
	return def
}

// GetInt returns the integer value of the environment variable `key`.
// If the variable is unset or does not parse, def is returned.
func GetInt(key string, def int) int {
	if val, ok := lookup(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

// GetBool returns the boolean value of the environment variable `key`.
// Recognised true values are: 1, t, true, y, yes (case-insensitive).
// Recognised false values are: 0, f, false, n, no.
func GetBool(key string, def bool) bool {
	if val, ok := lookup(key); ok {
		switch strings.ToLower(val) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}
