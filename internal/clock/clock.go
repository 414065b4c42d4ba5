// Package clock provides minutes-since-midnight arithmetic for "HH:MM"
// clock values used by time-targeted scoring rules.
package clock

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the size of the clock domain [0, 1440).
const MinutesPerDay = 24 * 60

// Parse converts an "HH:MM" string into minutes since midnight (0-1439).
func Parse(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q: expected HH:MM", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}

	if h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid clock value %q: hour out of range", s)
	}
	if m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock value %q: minute out of range", s)
	}

	return h*60 + m, nil
}

// Format converts minutes since midnight into an "HH:MM" string.
// The input is normalized into [0, 1440) first.
func Format(minutes int) string {
	minutes = Normalize(minutes)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Normalize wraps an arbitrary minute offset into [0, 1440).
func Normalize(minutes int) int {
	minutes %= MinutesPerDay
	if minutes < 0 {
		minutes += MinutesPerDay
	}
	return minutes
}

// Add shifts a clock value by delta minutes, wrapping across midnight in
// either direction.
func Add(minutes, delta int) int {
	return Normalize(minutes + delta)
}
