package note

import (
	"math"
	"testing"
)

func TestFromFrequency(t *testing.T) {
	tests := []struct {
		freq float64
		want string
	}{
		{440, "A4"},
		{261.63, "C4"},
		{220, "A3"},
		{880, "A5"},
		{466.16, "A#4"},
		{27.5, "A0"},
		{0, Unknown},
		{-100, Unknown},
	}

	for _, tt := range tests {
		got := FromFrequency(tt.freq).String()
		if got != tt.want {
			t.Errorf("FromFrequency(%f) = %s, want %s", tt.freq, got, tt.want)
		}
	}
}

func TestFromFrequencyNearestNote(t *testing.T) {
	// Slightly sharp and flat A4 still map to A4.
	for _, freq := range []float64{435, 445} {
		got := FromFrequency(freq)
		if got.Name != "A" || got.Octave != 4 {
			t.Errorf("FromFrequency(%f) = %s, want A4", freq, got)
		}
	}
}

func TestSemitoneDeviation(t *testing.T) {
	tests := []struct {
		f1, f2 float64
		want   float64
	}{
		{440, 440, 0},
		{440, 880, 12},
		{880, 440, 12},
		{440, 466.16, 1},
		{0, 440, 10},
		{440, 0, 10},
		{-1, -1, 10},
	}

	for _, tt := range tests {
		got := SemitoneDeviation(tt.f1, tt.f2)
		if math.Abs(got-tt.want) > 0.01 {
			t.Errorf("SemitoneDeviation(%f, %f) = %f, want %f", tt.f1, tt.f2, got, tt.want)
		}
	}
}
