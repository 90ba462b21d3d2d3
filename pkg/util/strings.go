package util

import (
	"strconv"
	"strings"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// StreamSymbol lowercases a trading pair for exchange stream names (BTCUSDT -> btcusdt).
func StreamSymbol(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}
