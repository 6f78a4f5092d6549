package racetime

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDuration converts a human race-time string to whole seconds.
// Accepted shapes are "H:MM:SS" and "MM:SS", optionally followed by a
// centiseconds fragment ("1:21:37.45" or "21:37,4") which is truncated.
// A single bare number or any non-numeric part is an error, never zero.
func ParseDuration(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, fmt.Errorf("empty time value")
	}

	if idx := strings.IndexAny(value, ".,"); idx >= 0 {
		fraction := value[idx+1:]
		if fraction == "" || !isDigits(fraction) {
			return 0, fmt.Errorf("invalid fractional part in %q", raw)
		}
		value = value[:idx]
	}

	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q: expected MM:SS or H:MM:SS", raw)
	}

	total := 0
	for _, part := range parts {
		if part == "" || !isDigits(part) {
			return 0, fmt.Errorf("invalid time component %q in %q", part, raw)
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("invalid time component %q in %q: %w", part, raw, err)
		}
		total = total*60 + n
	}

	return total, nil
}

// FormatDuration renders whole seconds as "MM:SS" under one hour and
// "H:MM:SS" otherwise.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(value) > 0
}
