package utils

import (
	"strconv"
	"strings"
)

// Hours per unit for wait-time strings.
const (
	hoursPerDay   = 24
	hoursPerWeek  = 24 * 7
	hoursPerMonth = 24 * 30
)

// ParseWaitTime converts a free-text wait estimate ("2 hours", "3 days",
// "4-8 weeks", "90 minutes") into hours. Ranges resolve to their
// midpoint. The second return value is false when the text cannot be
// parsed; callers score unknown waits neutrally instead of failing.
func ParseWaitTime(waitTime string) (float64, bool) {
	text := strings.ToLower(strings.TrimSpace(waitTime))
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return 0, false
	}

	factor, ok := unitFactor(text)
	if !ok {
		return 0, false
	}

	value, ok := parseAmount(tokens[0])
	if !ok {
		return 0, false
	}

	return value * factor, true
}

// parseAmount parses "3", "2.5" or a range "2-4" (midpoint).
func parseAmount(token string) (float64, bool) {
	if low, high, found := strings.Cut(token, "-"); found {
		lowVal, errLow := strconv.ParseFloat(low, 64)
		highVal, errHigh := strconv.ParseFloat(high, 64)
		if errLow != nil || errHigh != nil {
			return 0, false
		}
		return (lowVal + highVal) / 2, true
	}
	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func unitFactor(text string) (float64, bool) {
	switch {
	case strings.Contains(text, "minute"):
		return 1.0 / 60, true
	case strings.Contains(text, "hour"):
		return 1, true
	case strings.Contains(text, "day"):
		return hoursPerDay, true
	case strings.Contains(text, "week"):
		return hoursPerWeek, true
	case strings.Contains(text, "month"):
		return hoursPerMonth, true
	}
	return 0, false
}
