package vocal

import (
	"math"
	"sync"
	"time"

	"github.com/Swaraag/JustIdol-sub000/internal/note"
)

// Zone classifies how far a sung pitch is from the reference melody.
type Zone int

const (
	ZonePerfect Zone = iota
	ZoneKeepTrying
	ZoneFarOff
	ZoneCompletelyOff
)

var zoneNames = map[Zone]string{
	ZonePerfect:       "perfect",
	ZoneKeepTrying:    "keep_trying",
	ZoneFarOff:        "far_off",
	ZoneCompletelyOff: "completely_off",
}

// String returns the snake_case zone label.
func (z Zone) String() string {
	if name, ok := zoneNames[z]; ok {
		return name
	}
	return "unknown"
}

// emptyScore is reported before any frame has been scored. A neutral-high
// starting value avoids greeting the player with a zero.
const emptyScore = 80.0

// baseScore is the raw-score ceiling before deductions.
const baseScore = 80.0

// Per-zone deduction weights, applied to the fraction of window time spent
// in that zone.
const (
	keepTryingPenalty    = 25.0
	farOffPenalty        = 50.0
	completelyOffPenalty = 80.0
)

// Trend labels for score movement over the recent history.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// trendDelta is the score movement needed before the trend leaves stable.
const trendDelta = 5.0

// Config tunes the zone scorer.
type Config struct {
	Window              time.Duration // trailing retention window for zone frames
	MinFrameMs          float64       // floor for per-frame elapsed time
	MinConfidence       float64       // pitch confidence below this skips the frame
	PerfectSemitones    float64
	KeepTryingSemitones float64
	FarOffSemitones     float64
	HistoryCap          int     // raw scores retained for smoothing and trend
	SmoothWindow        int     // raw scores averaged for the smoothed value
	RecentBlend         float64 // weight of the smoothed mean vs the last two raws
	TrendWindow         int     // frames per half when computing the trend
}

// DefaultConfig returns the tuning the service ships with.
func DefaultConfig() Config {
	return Config{
		Window:              10 * time.Second,
		MinFrameMs:          50,
		MinConfidence:       0.1,
		PerfectSemitones:    0.5,
		KeepTryingSemitones: 1.5,
		FarOffSemitones:     3.0,
		HistoryCap:          200,
		SmoothWindow:        5,
		RecentBlend:         0.4,
		TrendWindow:         50,
	}
}

// Frame is one classified pitch observation.
type Frame struct {
	At         time.Time
	Zone       Zone
	Deviation  float64 // semitones, sentinel when no target pitch
	DurationMs float64
}

// Observation is one pitch detector output paired with the reference pitch
// for the same instant. TargetFrequency <= 0 means the reference melody has
// no vocal at that moment.
type Observation struct {
	At              time.Time
	Frequency       float64
	Confidence      float64
	TargetFrequency float64
	Singing         bool // activity classification of the mic signal
}

// ZoneSnapshot summarizes the retained scoring window for live display: the
// fraction of sung time spent in each zone, the raw score those fractions
// produce, and the smoothed score. Recomputed on demand, never persisted.
type ZoneSnapshot struct {
	PerfectFraction       float64 `json:"perfect_fraction"`
	KeepTryingFraction    float64 `json:"keep_trying_fraction"`
	FarOffFraction        float64 `json:"far_off_fraction"`
	CompletelyOffFraction float64 `json:"completely_off_fraction"`
	RawScore              float64 `json:"raw_score"`
	Score                 float64 `json:"score"`
}

// Stats is a snapshot of the scorer's counters.
type Stats struct {
	FramesScored  int64   `json:"frames_scored"`
	FramesSkipped int64   `json:"frames_skipped"`
	CurrentScore  float64 `json:"current_score"`
	Trend         string  `json:"trend"`
}

// Scorer accumulates zone frames and produces a smoothed 0-100 vocal score.
// Safe for concurrent use.
type Scorer struct {
	mu sync.Mutex

	cfg    Config
	frames []Frame   // trailing window, oldest first
	raw    []float64 // raw score history, oldest first
	lastAt time.Time

	framesScored  int64
	framesSkipped int64
}

// NewScorer builds a zone scorer.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Observe classifies one pitch observation and returns the updated smoothed
// score. Unusable observations (unvoiced, low confidence) are skipped and
// the previous score is returned unchanged.
func (s *Scorer) Observe(obs Observation) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if obs.Confidence < s.cfg.MinConfidence || obs.Frequency <= 0 {
		s.framesSkipped++
		return s.scoreLocked()
	}

	// Elapsed time since the previous scored frame, floored so the first
	// frame and bursty ticks still carry weight.
	elapsedMs := s.cfg.MinFrameMs
	if !s.lastAt.IsZero() {
		if gap := float64(obs.At.Sub(s.lastAt)) / float64(time.Millisecond); gap > elapsedMs {
			elapsedMs = gap
		}
	}
	s.lastAt = obs.At

	frame := Frame{At: obs.At, DurationMs: elapsedMs}

	if obs.TargetFrequency > 0 {
		frame.Deviation = note.SemitoneDeviation(obs.Frequency, obs.TargetFrequency)
		frame.Zone = s.classify(frame.Deviation)
	} else {
		// No reference melody right now. Fall back to presence: singing
		// along during an instrumental break is not punished, staying
		// audible is all that counts.
		frame.Deviation = note.MaxDeviation
		if obs.Singing {
			frame.Zone = ZonePerfect
		} else {
			frame.Zone = ZoneKeepTrying
		}
	}

	s.frames = append(s.frames, frame)
	s.evictLocked(obs.At)
	s.framesScored++

	rawScore := s.rawLocked()
	s.raw = append(s.raw, rawScore)
	if len(s.raw) > s.cfg.HistoryCap {
		s.raw = s.raw[len(s.raw)-s.cfg.HistoryCap:]
	}

	return s.scoreLocked()
}

// Score returns the current smoothed score without recording anything.
func (s *Scorer) Score() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scoreLocked()
}

// Trend reports whether the score is improving, declining, or stable across
// the two most recent trend windows.
func (s *Scorer) Trend() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trendLocked()
}

// Snapshot returns the per-zone breakdown of the retained window alongside
// the raw and smoothed scores.
func (s *Scorer) Snapshot() ZoneSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := ZoneSnapshot{
		RawScore: s.rawLocked(),
		Score:    s.scoreLocked(),
	}

	d := s.tallyLocked()
	if d.total > 0 {
		snap.PerfectFraction = d.perfect / d.total
		snap.KeepTryingFraction = d.keepTrying / d.total
		snap.FarOffFraction = d.farOff / d.total
		snap.CompletelyOffFraction = d.completelyOff / d.total
	}

	return snap
}

// GetStats returns a snapshot of the scorer's counters.
func (s *Scorer) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		FramesScored:  s.framesScored,
		FramesSkipped: s.framesSkipped,
		CurrentScore:  s.scoreLocked(),
		Trend:         s.trendLocked(),
	}
}

// Reset clears all frames, history, and counters.
func (s *Scorer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
	s.raw = nil
	s.lastAt = time.Time{}
	s.framesScored = 0
	s.framesSkipped = 0
}

func (s *Scorer) classify(deviation float64) Zone {
	switch {
	case deviation <= s.cfg.PerfectSemitones:
		return ZonePerfect
	case deviation <= s.cfg.KeepTryingSemitones:
		return ZoneKeepTrying
	case deviation <= s.cfg.FarOffSemitones:
		return ZoneFarOff
	default:
		return ZoneCompletelyOff
	}
}

// evictLocked drops frames older than the retention window.
func (s *Scorer) evictLocked(now time.Time) {
	cutoff := now.Add(-s.cfg.Window)
	idx := 0
	for idx < len(s.frames) && s.frames[idx].At.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		s.frames = s.frames[idx:]
	}
}

// zoneDurations is the per-zone time tally over the retained frames, in
// milliseconds.
type zoneDurations struct {
	total         float64
	perfect       float64
	keepTrying    float64
	farOff        float64
	completelyOff float64
}

func (s *Scorer) tallyLocked() zoneDurations {
	var d zoneDurations
	for _, f := range s.frames {
		d.total += f.DurationMs
		switch f.Zone {
		case ZonePerfect:
			d.perfect += f.DurationMs
		case ZoneKeepTrying:
			d.keepTrying += f.DurationMs
		case ZoneFarOff:
			d.farOff += f.DurationMs
		case ZoneCompletelyOff:
			d.completelyOff += f.DurationMs
		}
	}
	return d
}

// rawLocked aggregates the trailing window into a raw score. Deductions are
// proportional to the fraction of sung time spent in each off-pitch zone.
func (s *Scorer) rawLocked() float64 {
	d := s.tallyLocked()
	if d.total == 0 {
		return emptyScore
	}

	deduction := d.keepTrying/d.total*keepTryingPenalty +
		d.farOff/d.total*farOffPenalty +
		d.completelyOff/d.total*completelyOffPenalty

	return clamp(baseScore-deduction, 0, 100)
}

// scoreLocked smooths the raw history: the mean of the trailing smooth
// window, blended with the two most recent raws once enough history exists so
// the display tracks the singer without jitter.
func (s *Scorer) scoreLocked() float64 {
	n := len(s.raw)
	if n == 0 {
		return emptyScore
	}

	window := s.cfg.SmoothWindow
	if window > n {
		window = n
	}
	var sum float64
	for _, v := range s.raw[n-window:] {
		sum += v
	}
	smoothed := sum / float64(window)

	if n <= 3 {
		return smoothed
	}

	recent := (s.raw[n-1] + s.raw[n-2]) / 2

	return s.cfg.RecentBlend*smoothed + (1-s.cfg.RecentBlend)*recent
}

// trendLocked compares the mean of the latest trend window against the one
// before it.
func (s *Scorer) trendLocked() string {
	w := s.cfg.TrendWindow
	if len(s.raw) < 2*w {
		return TrendStable
	}

	latest := s.raw[len(s.raw)-w:]
	previous := s.raw[len(s.raw)-2*w : len(s.raw)-w]

	diff := mean(latest) - mean(previous)
	switch {
	case diff > trendDelta:
		return TrendImproving
	case diff < -trendDelta:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
