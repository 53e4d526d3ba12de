package pose

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoMatch is returned when a reference lookup cannot produce an entry,
// i.e. the track is empty. Callers skip scoring for that tick.
var ErrNoMatch = errors.New("no reference entry found")

// TrackEntry is one timestamped angle set in a reference track.
type TrackEntry struct {
	TimestampMs int64    `json:"timestamp_ms"`
	Angles      AngleSet `json:"angles"`
}

// ReferenceTrack is the time-ordered ground-truth angle sequence extracted
// offline from a source video. It is immutable after construction and safe
// to share across goroutines.
type ReferenceTrack struct {
	entries []TrackEntry
}

// NewReferenceTrack copies and time-sorts the entries into an immutable
// track.
func NewReferenceTrack(entries []TrackEntry) (*ReferenceTrack, error) {
	for i, e := range entries {
		if e.TimestampMs < 0 {
			return nil, fmt.Errorf("entry %d has negative timestamp %d", i, e.TimestampMs)
		}
		for j, angle := range e.Angles {
			if angle < 0 || angle > 180 {
				return nil, fmt.Errorf("entry %d angle %s out of range: %f", i, AngleIndex(j), angle)
			}
		}
	}

	sorted := make([]TrackEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TimestampMs < sorted[j].TimestampMs
	})

	return &ReferenceTrack{entries: sorted}, nil
}

// Len returns the number of entries in the track.
func (t *ReferenceTrack) Len() int {
	return len(t.entries)
}

// EndMs returns the timestamp of the final entry, or 0 for an empty track.
func (t *ReferenceTrack) EndMs() int64 {
	if len(t.entries) == 0 {
		return 0
	}
	return t.entries[len(t.entries)-1].TimestampMs
}

// FindClosest returns the entry nearest currentMs+lookAheadMs. The look-ahead
// compensates for human reaction lag: the performer is compared against where
// the choreography is about to be, not where it was when they started moving.
// Returns ErrNoMatch on an empty track.
func (t *ReferenceTrack) FindClosest(currentMs, lookAheadMs int64) (TrackEntry, error) {
	if len(t.entries) == 0 {
		return TrackEntry{}, ErrNoMatch
	}

	target := currentMs + lookAheadMs

	// First entry with timestamp >= target.
	idx := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].TimestampMs >= target
	})

	if idx == 0 {
		return t.entries[0], nil
	}
	if idx == len(t.entries) {
		return t.entries[len(t.entries)-1], nil
	}

	before := t.entries[idx-1]
	after := t.entries[idx]
	if target-before.TimestampMs <= after.TimestampMs-target {
		return before, nil
	}
	return after, nil
}
