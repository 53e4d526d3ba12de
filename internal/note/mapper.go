package note

import (
	"fmt"
	"math"
)

// Unknown is the sentinel note for unvoiced or invalid frequencies.
const Unknown = "--"

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// c0 is the frequency of C0, the bottom of the note grid: 440 * 2^(-4.75).
var c0 = 440.0 * math.Pow(2, -4.75)

// Note is a named pitch with its octave.
type Note struct {
	Name   string `json:"name"`   // "C".."B" with sharps, or Unknown
	Octave int    `json:"octave"` // scientific pitch notation octave
}

// String renders the note as e.g. "A4", or the Unknown sentinel.
func (n Note) String() string {
	if n.Name == Unknown {
		return Unknown
	}
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}

// IsUnknown reports whether the note is the unvoiced sentinel.
func (n Note) IsUnknown() bool {
	return n.Name == Unknown
}

// FromFrequency maps a frequency in Hz to the nearest equal-tempered note.
// Non-positive frequencies map to the Unknown sentinel.
func FromFrequency(freq float64) Note {
	if freq <= 0 {
		return Note{Name: Unknown}
	}

	h := int(math.Round(12 * math.Log2(freq/c0)))
	if h < 0 {
		return Note{Name: Unknown}
	}

	return Note{
		Name:   noteNames[h%12],
		Octave: h / 12,
	}
}

// MaxDeviation is the semitone distance reported when a deviation cannot be
// computed. It sits past every scoring zone boundary.
const MaxDeviation = 10.0

// SemitoneDeviation returns the absolute pitch distance between two
// frequencies in semitones. Either frequency being non-positive yields
// MaxDeviation, matching the zone scorer's treatment of missing pitch.
func SemitoneDeviation(f1, f2 float64) float64 {
	if f1 <= 0 || f2 <= 0 {
		return MaxDeviation
	}
	return math.Abs(12 * math.Log2(f1/f2))
}
