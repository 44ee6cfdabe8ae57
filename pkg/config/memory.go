package config

import (
	"fmt"
	"strconv"
	"strings"
)

// memoryMultipliers maps a unit suffix to its power-of-1024 multiplier.
// A suffix absent from this table defaults to a multiplier of 1, per the
// bespoke grammar this parser implements (deliberately not the general-
// purpose decimal/binary grammar docker/go-units understands).
var memoryMultipliers = map[string]int64{
	"K": 1024,
	"M": 1024 * 1024,
	"G": 1024 * 1024 * 1024,
}

// ParseMemory parses a leading integer followed by an optional K/M/G
// suffix (case-insensitive) into a byte count. An empty string parses to
// 0. A suffix not in the table above defaults to a multiplier of 1.
func ParseMemory(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9') {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("memory value %q has no leading integer", s)
	}

	n, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("memory value %q: %w", s, err)
	}

	suffix := strings.ToUpper(strings.TrimSpace(s[i:]))
	multiplier, ok := memoryMultipliers[suffix]
	if !ok {
		multiplier = 1
	}

	return n * multiplier, nil
}

// FormatMemoryMB renders a byte count as floor(bytes / 2^20) followed by
// the literal suffix "M". 0 bytes renders as "0M".
func FormatMemoryMB(bytes int64) string {
	mb := bytes / (1024 * 1024)
	return fmt.Sprintf("%dM", mb)
}
