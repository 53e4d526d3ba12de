// Package scoring orchestrates the two scoring channels for a performance
// session. A Session owns the pitch detectors, the zone vocal scorer, and
// the pose comparison strategy for one performer, applies the streak
// multiplier and cooldown rules, and latches final results when the
// reference track ends. The Manager keeps the registry of live sessions and
// reaps idle ones.
package scoring
