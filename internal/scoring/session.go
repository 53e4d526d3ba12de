package scoring

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Swaraag/JustIdol-sub000/internal/audio"
	"github.com/Swaraag/JustIdol-sub000/internal/note"
	"github.com/Swaraag/JustIdol-sub000/internal/pitch"
	"github.com/Swaraag/JustIdol-sub000/internal/pose"
	"github.com/Swaraag/JustIdol-sub000/internal/vocal"
)

// Mode selects which scoring channels a session runs.
type Mode string

const (
	ModeDance Mode = "dance"
	ModeVocal Mode = "vocal"
	ModeDuet  Mode = "duet"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDance, ModeVocal, ModeDuet:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q, want dance, vocal, or duet", s)
	}
}

// ScoresDance reports whether the mode consumes pose ticks.
func (m Mode) ScoresDance() bool { return m == ModeDance || m == ModeDuet }

// ScoresVocal reports whether the mode consumes audio ticks.
func (m Mode) ScoresVocal() bool { return m == ModeVocal || m == ModeDuet }

// StreakMultiplier returns the score multiplier for a streak count.
func StreakMultiplier(streak int) float64 {
	switch {
	case streak < 5:
		return 1.0
	case streak < 10:
		return 1.5
	case streak < 20:
		return 2.0
	case streak < 50:
		return 2.5
	default:
		return 3.0
	}
}

// ScoreState is the accumulated scoring state for one session.
type ScoreState struct {
	Score     int64                  `json:"score"`
	Streak    int                    `json:"streak"`
	MaxStreak int                    `json:"max_streak"`
	Counts    [pose.NumRatings]int64 `json:"-"`
}

// CountsByRating returns the per-rating hit counts keyed by display label.
func (s *ScoreState) CountsByRating() map[string]int64 {
	out := make(map[string]int64, len(s.Counts))
	for r, n := range s.Counts {
		out[pose.HitRating(r).String()] = n
	}
	return out
}

// Snapshot is the live display state exposed after each tick.
type Snapshot struct {
	SessionID       string  `json:"session_id"`
	Mode            Mode    `json:"mode"`
	UserNote        string  `json:"user_note"`
	TargetNote      string  `json:"target_note"`
	UserPitchHz     float64 `json:"user_pitch_hz"`
	TargetPitchHz   float64 `json:"target_pitch_hz"`
	VocalScore      float64 `json:"vocal_score"`
	VocalTrend      string  `json:"vocal_trend"`
	DanceSimilarity float64 `json:"dance_similarity"`
	LastRating      string  `json:"last_rating"`
	Streak          int     `json:"streak"`
	Score           int64   `json:"score"`
	Finalized       bool    `json:"finalized"`

	VocalZones vocal.ZoneSnapshot `json:"vocal_zones"`
}

// FinalResult is the latched end-of-session outcome. Once latched it never
// changes, even if ticks keep arriving while the client tears down.
type FinalResult struct {
	SessionID   string           `json:"session_id"`
	Mode        Mode             `json:"mode"`
	DancePct    int              `json:"final_dance_score_pct"`
	VocalPct    int              `json:"final_vocal_score_pct"`
	CombinedPct int              `json:"final_combined_score_pct"`
	Score       int64            `json:"score"`
	MaxStreak   int              `json:"max_streak"`
	Counts      map[string]int64 `json:"hit_counts"`
	EndedAt     time.Time        `json:"ended_at"`
}

// SessionConfig bundles everything a session needs. Built by the Manager
// from the service configuration.
type SessionConfig struct {
	Mode            Mode
	SampleRate      int
	Pitch           pitch.Config
	Vocal           vocal.Config
	Movement        pose.MovementConfig
	Tolerance       float64
	Thresholds      pose.RatingThresholds
	LookAheadMs     int64
	Cooldown        time.Duration
	UseActivityGate bool
	Track           *pose.ReferenceTrack // nil for free-form movement matching
	Now             func() time.Time     // nil means time.Now
}

// PoseTick is one pose observation. Reference landmarks are only consulted
// in free-form mode; choreographed sessions use the reference track instead.
type PoseTick struct {
	TimestampMs int64
	Performer   []pose.Landmark
	Reference   []pose.Landmark
}

// Session scores one performance. The audio and pose tick sources are
// independently timed, so all state is guarded by one mutex.
type Session struct {
	ID        string
	Mode      Mode
	CreatedAt time.Time

	mu           sync.Mutex
	lastActivity time.Time
	now          func() time.Time
	logger       *slog.Logger

	// Audio channel.
	userDetector   *pitch.Detector
	targetDetector *pitch.Detector
	activity       *note.ActivityDetector
	useGate        bool
	vocalScorer    *vocal.Scorer

	// Pose channel.
	calc      *pose.Calculator
	comparer  *pose.AngleComparer
	movement  *pose.MovementComparer
	track     *pose.ReferenceTrack
	lookAhead int64
	cooldown  *Cooldown
	prevPerf  *pose.Pose
	prevRef   *pose.Pose

	// Display state.
	userNote   note.Note
	targetNote note.Note
	userPitch  pitch.Estimate
	targetHz   float64
	lastSim    float64
	lastRating pose.HitRating
	simSum     float64
	simCount   int64

	state ScoreState
	final *FinalResult
}

// NewSession builds a session from its config.
func NewSession(id string, cfg SessionConfig, logger *slog.Logger) (*Session, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	userDetector, err := pitch.NewDetector(cfg.Pitch)
	if err != nil {
		return nil, fmt.Errorf("failed to create user pitch detector: %w", err)
	}

	targetDetector, err := pitch.NewDetector(cfg.Pitch)
	if err != nil {
		return nil, fmt.Errorf("failed to create target pitch detector: %w", err)
	}

	s := &Session{
		ID:             id,
		Mode:           cfg.Mode,
		CreatedAt:      cfg.Now(),
		lastActivity:   cfg.Now(),
		now:            cfg.Now,
		logger:         logger,
		userDetector:   userDetector,
		targetDetector: targetDetector,
		activity:       note.NewActivityDetector(cfg.SampleRate),
		useGate:        cfg.UseActivityGate,
		vocalScorer:    vocal.NewScorer(cfg.Vocal),
		calc:           pose.NewCalculator(),
		comparer:       pose.NewAngleComparer(cfg.Tolerance, cfg.Thresholds),
		movement:       pose.NewMovementComparer(cfg.Movement),
		track:          cfg.Track,
		lookAhead:      cfg.LookAheadMs,
		cooldown:       NewCooldownWithClock(cfg.Cooldown, cfg.Now),
		userNote:       note.Note{Name: note.Unknown},
		targetNote:     note.Note{Name: note.Unknown},
		lastRating:     pose.RatingMiss,
	}

	return s, nil
}

// LastActivity returns the time of the most recent tick.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// ProcessAudioTick runs the vocal channel for one tick. The target frame may
// be nil when the reference track has no audio at this instant; the zone
// scorer then falls back to singing presence. A malformed frame leaves all
// state untouched.
func (s *Session) ProcessAudioTick(user, target *audio.Frame) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActivity = s.now()

	if s.final != nil || !s.Mode.ScoresVocal() {
		return s.snapshotLocked(), nil
	}

	if user == nil || len(user.Samples) == 0 {
		return s.snapshotLocked(), audio.ErrEmptyFrame
	}

	userEst, err := s.userDetector.Detect(user)
	if err != nil {
		return s.snapshotLocked(), fmt.Errorf("user pitch detection: %w", err)
	}

	var targetHz float64
	if target != nil && len(target.Samples) > 0 {
		targetEst, err := s.targetDetector.Detect(target)
		if err != nil {
			return s.snapshotLocked(), fmt.Errorf("target pitch detection: %w", err)
		}
		if targetEst.Voiced() {
			targetHz = targetEst.Frequency
		}
	}

	activity := s.activity.Classify(user)
	singing := activity == note.ActivitySinging

	// The activity detector is display-only unless the gate is switched on;
	// its instrumental calls are too coarse to drop scoring frames by
	// default.
	if s.useGate && activity == note.ActivityInstrumental {
		s.updateAudioDisplayLocked(userEst, targetHz)
		return s.snapshotLocked(), nil
	}

	s.vocalScorer.Observe(vocal.Observation{
		At:              user.CapturedAt,
		Frequency:       userEst.Frequency,
		Confidence:      userEst.Confidence,
		TargetFrequency: targetHz,
		Singing:         singing || user.RMS() > 0.01,
	})

	s.updateAudioDisplayLocked(userEst, targetHz)

	s.logger.Debug("audio tick scored",
		slog.String("session_id", s.ID),
		slog.Float64("user_hz", userEst.Frequency),
		slog.Float64("confidence", userEst.Confidence),
		slog.Float64("target_hz", targetHz),
		slog.Float64("vocal_score", s.vocalScorer.Score()),
	)

	return s.snapshotLocked(), nil
}

func (s *Session) updateAudioDisplayLocked(est pitch.Estimate, targetHz float64) {
	s.userPitch = est
	s.targetHz = targetHz
	if est.Voiced() {
		s.userNote = note.FromFrequency(est.Frequency)
	} else {
		s.userNote = note.Note{Name: note.Unknown}
	}
	s.targetNote = note.FromFrequency(targetHz)
}

// ProcessPoseTick runs the dance channel for one tick. Malformed landmark
// arrays return an error and leave all state untouched. When the tick
// timestamp reaches the end of the reference track the final result is
// latched.
func (s *Session) ProcessPoseTick(tick PoseTick) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActivity = s.now()

	if s.final != nil || !s.Mode.ScoresDance() {
		return s.snapshotLocked(), nil
	}

	perf, err := pose.FromSlice(tick.Performer)
	if err != nil {
		return s.snapshotLocked(), fmt.Errorf("performer landmarks: %w", err)
	}

	switch {
	case s.track != nil && s.track.Len() > 0:
		if err := s.scoreAgainstTrackLocked(perf, tick.TimestampMs); err != nil {
			return s.snapshotLocked(), err
		}
	case len(tick.Reference) > 0:
		if err := s.scoreFreeFormLocked(perf, tick.Reference); err != nil {
			return s.snapshotLocked(), err
		}
	default:
		// Nothing to compare against; tick is a no-op.
		return s.snapshotLocked(), nil
	}

	if s.track != nil && s.track.Len() > 0 && tick.TimestampMs >= s.track.EndMs() {
		s.finalizeLocked()
	}

	return s.snapshotLocked(), nil
}

func (s *Session) scoreAgainstTrackLocked(perf *pose.Pose, timestampMs int64) error {
	entry, err := s.track.FindClosest(timestampMs, s.lookAhead)
	if err != nil {
		return fmt.Errorf("reference lookup: %w", err)
	}

	angles := s.calc.FromPose(perf)
	cmp := s.comparer.Compare(angles, entry.Angles)

	s.lastSim = cmp.Similarity
	s.simSum += cmp.Similarity
	s.simCount++

	if s.cooldown.CanScore() {
		s.cooldown.RecordScore()
		s.recordHitLocked(cmp.Rating, cmp.Points)
	}

	return nil
}

func (s *Session) scoreFreeFormLocked(perf *pose.Pose, reference []pose.Landmark) error {
	ref, err := pose.FromSlice(reference)
	if err != nil {
		return fmt.Errorf("reference landmarks: %w", err)
	}

	prevPerf, prevRef := s.prevPerf, s.prevRef
	s.prevPerf, s.prevRef = perf, ref

	// The first tick has no previous frame; movement needs two.
	if prevPerf == nil || prevRef == nil {
		return nil
	}

	result := s.movement.Compare(perf, prevPerf, ref, prevRef)

	s.lastSim = result.Score
	s.simSum += result.Score
	s.simCount++

	if s.cooldown.CanScore() {
		s.cooldown.RecordScore()
		rating := s.comparer.Thresholds.Rate(result.Score)
		s.recordHitLocked(rating, rating.Points())
	}

	return nil
}

// recordHitLocked applies one scored event to the session state.
func (s *Session) recordHitLocked(rating pose.HitRating, basePoints int) {
	s.lastRating = rating
	s.state.Counts[rating]++

	if rating == pose.RatingMiss {
		s.state.Streak = 0
		return
	}

	s.state.Streak++
	if s.state.Streak > s.state.MaxStreak {
		s.state.MaxStreak = s.state.Streak
	}

	multiplier := StreakMultiplier(s.state.Streak)
	s.state.Score += int64(math.Round(float64(basePoints) * multiplier))
}

// Snapshot returns the current live display state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	zones := s.vocalScorer.Snapshot()
	return Snapshot{
		SessionID:       s.ID,
		Mode:            s.Mode,
		UserNote:        s.userNote.String(),
		TargetNote:      s.targetNote.String(),
		UserPitchHz:     s.userPitch.Frequency,
		TargetPitchHz:   s.targetHz,
		VocalScore:      zones.Score,
		VocalTrend:      s.vocalScorer.Trend(),
		DanceSimilarity: s.lastSim,
		LastRating:      s.lastRating.String(),
		Streak:          s.state.Streak,
		Score:           s.state.Score,
		Finalized:       s.final != nil,
		VocalZones:      zones,
	}
}

// State returns a copy of the accumulated score state.
func (s *Session) State() ScoreState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Finalize latches the final result. Idempotent: repeated calls return the
// copy captured by the first one.
func (s *Session) Finalize() FinalResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeLocked()
	return *s.final
}

// Result returns the latched final result, if any.
func (s *Session) Result() (FinalResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.final == nil {
		return FinalResult{}, false
	}
	return *s.final, true
}

func (s *Session) finalizeLocked() {
	if s.final != nil {
		return
	}

	danceAvg := 0.0
	if s.simCount > 0 {
		danceAvg = s.simSum / float64(s.simCount)
	}
	dancePct := int(math.Round(danceAvg * 100))
	vocalPct := int(math.Round(s.vocalScorer.Score()))

	var combined int
	switch s.Mode {
	case ModeDance:
		combined = dancePct
	case ModeVocal:
		combined = vocalPct
	default:
		combined = int(math.Round((danceAvg*100 + s.vocalScorer.Score()) / 2))
	}

	s.final = &FinalResult{
		SessionID:   s.ID,
		Mode:        s.Mode,
		DancePct:    dancePct,
		VocalPct:    vocalPct,
		CombinedPct: combined,
		Score:       s.state.Score,
		MaxStreak:   s.state.MaxStreak,
		Counts:      s.state.CountsByRating(),
		EndedAt:     s.now(),
	}

	s.logger.Info("session finalized",
		slog.String("session_id", s.ID),
		slog.String("mode", string(s.Mode)),
		slog.Int("dance_pct", dancePct),
		slog.Int("vocal_pct", vocalPct),
		slog.Int("combined_pct", combined),
		slog.Int("max_streak", s.state.MaxStreak),
		slog.Int64("score", s.state.Score),
	)
}

// Reset clears all scoring state for a retry on the same reference track.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = ScoreState{}
	s.final = nil
	s.lastSim = 0
	s.lastRating = pose.RatingMiss
	s.simSum = 0
	s.simCount = 0
	s.prevPerf = nil
	s.prevRef = nil
	s.userNote = note.Note{Name: note.Unknown}
	s.targetNote = note.Note{Name: note.Unknown}
	s.userPitch = pitch.Estimate{}
	s.targetHz = 0
	s.vocalScorer.Reset()
	s.userDetector.Reset()
	s.targetDetector.Reset()
	s.cooldown.Reset()
}
