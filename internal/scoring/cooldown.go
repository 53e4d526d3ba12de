package scoring

import "time"

// Cooldown admits at most one scoring event per interval. Without it a held
// pose would be scored on every tick and streaks would inflate at tick rate.
// The clock is injectable for tests; not safe for concurrent use on its own,
// callers hold the session lock.
type Cooldown struct {
	interval time.Duration
	now      func() time.Time
	last     time.Time
}

// NewCooldown creates a cooldown gate using the wall clock.
func NewCooldown(interval time.Duration) *Cooldown {
	return NewCooldownWithClock(interval, time.Now)
}

// NewCooldownWithClock creates a cooldown gate with an injected clock.
func NewCooldownWithClock(interval time.Duration, now func() time.Time) *Cooldown {
	return &Cooldown{interval: interval, now: now}
}

// CanScore reports whether a new scoring event may be admitted.
func (c *Cooldown) CanScore() bool {
	if c.last.IsZero() {
		return true
	}
	return c.now().Sub(c.last) >= c.interval
}

// RecordScore marks the current instant as the latest scoring event.
func (c *Cooldown) RecordScore() {
	c.last = c.now()
}

// Reset clears the gate so the next event is admitted immediately.
func (c *Cooldown) Reset() {
	c.last = time.Time{}
}
