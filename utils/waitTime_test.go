package utils

import (
	"math"
	"testing"
)

func TestParseWaitTime(t *testing.T) {
	tests := []struct {
		input string
		hours float64
		ok    bool
	}{
		{"2 hours", 2, true},
		{"90 minutes", 1.5, true},
		{"24 hours", 24, true},
		{"3 days", 72, true},
		{"1 week", 168, true},
		{"2 months", 1440, true},
		{"2-4 hours", 3, true},
		{"2-3 days", 60, true},
		{"4-8 weeks (referral required)", 1008, true},
		{"1-2 hours", 1.5, true},
		{"banana", 0, false},
		{"", 0, false},
		{"Check online for current wait times", 0, false},
		{"Same day - 2 days", 0, false},
	}

	for _, tt := range tests {
		hours, ok := ParseWaitTime(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseWaitTime(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && math.Abs(hours-tt.hours) > 0.001 {
			t.Errorf("ParseWaitTime(%q) = %v hours, want %v", tt.input, hours, tt.hours)
		}
	}
}
