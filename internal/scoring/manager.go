package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Swaraag/JustIdol-sub000/internal/config"
	"github.com/Swaraag/JustIdol-sub000/internal/metrics"
	"github.com/Swaraag/JustIdol-sub000/internal/pitch"
	"github.com/Swaraag/JustIdol-sub000/internal/pose"
	"github.com/Swaraag/JustIdol-sub000/internal/vocal"
)

// ResultPublisher receives latched session results. Implementations must
// tolerate being called once per session at most.
type ResultPublisher interface {
	Publish(ctx context.Context, result FinalResult) error
}

// Manager owns the registry of live scoring sessions and reaps idle ones.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	logger   *slog.Logger
	cfg      *config.Config
	metrics  *metrics.Metrics

	publisher ResultPublisher // nil when publishing is disabled

	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// NewManager creates a session manager and starts its cleanup routine.
func NewManager(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics, publisher ResultPublisher) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	mgr := &Manager{
		sessions:  make(map[string]*Session),
		logger:    logger,
		cfg:       cfg,
		metrics:   m,
		publisher: publisher,
		ctx:       ctx,
		cancel:    cancel,
		cleanup:   make(chan struct{}),
	}

	go mgr.startCleanupRoutine()

	return mgr
}

// CreateSession registers a new scoring session. The reference track may be
// empty for free-form movement sessions.
func (m *Manager) CreateSession(mode Mode, track []pose.TrackEntry) (*Session, error) {
	var refTrack *pose.ReferenceTrack
	if len(track) > 0 {
		var err error
		refTrack, err = pose.NewReferenceTrack(track)
		if err != nil {
			return nil, fmt.Errorf("invalid reference track: %w", err)
		}
	}

	id := uuid.New().String()
	session, err := NewSession(id, m.sessionConfig(mode, refTrack), m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	m.mu.Lock()
	m.sessions[id] = session
	count := len(m.sessions)
	m.mu.Unlock()

	m.metrics.RecordSessionCreated()
	m.metrics.SetActiveSessions(count)

	m.logger.Info("created scoring session",
		slog.String("session_id", id),
		slog.String("mode", string(mode)),
		slog.Int("track_entries", len(track)),
	)

	return session, nil
}

// sessionConfig assembles a SessionConfig from the service configuration.
func (m *Manager) sessionConfig(mode Mode, track *pose.ReferenceTrack) SessionConfig {
	cfg := m.cfg
	return SessionConfig{
		Mode:       mode,
		SampleRate: cfg.Audio.SampleRate,
		Pitch: pitch.Config{
			SampleRate:       cfg.Audio.SampleRate,
			Threshold:        cfg.Pitch.Threshold,
			MinFrequency:     cfg.Pitch.MinFrequency,
			MaxFrequency:     cfg.Pitch.MaxFrequency,
			ConfidenceWeight: cfg.Pitch.ConfidenceWeight,
			HarmonicWeight:   cfg.Pitch.HarmonicWeight,
			HighPassEnabled:  cfg.Pitch.HighPassEnabled,
			HighPassCutoff:   cfg.Audio.HighPassCutoff,
		},
		Vocal: vocal.Config{
			Window:              cfg.Vocal.GetWindow(),
			MinFrameMs:          cfg.Vocal.MinFrameMs,
			MinConfidence:       cfg.Vocal.MinConfidence,
			PerfectSemitones:    cfg.Vocal.PerfectSemitones,
			KeepTryingSemitones: cfg.Vocal.KeepTryingSemitones,
			FarOffSemitones:     cfg.Vocal.FarOffSemitones,
			HistoryCap:          cfg.Vocal.HistoryCap,
			SmoothWindow:        cfg.Vocal.SmoothWindow,
			RecentBlend:         cfg.Vocal.RecentBlend,
			TrendWindow:         cfg.Vocal.TrendWindow,
		},
		Movement: pose.MovementConfig{
			RefMovingFloor:     cfg.Pose.RefMovingFloor,
			IdleCeiling:        cfg.Pose.IdleCeiling,
			IdleVsMovingFactor: cfg.Pose.IdleVsMovingFactor,
			IdleFactor:         cfg.Pose.IdleFactor,
			MaxDegreesPerFrame: cfg.Pose.MaxDegreesPerFrame,
			MinVisibility:      0.5,
			MinVisibleArm:      4,
		},
		Tolerance: cfg.Pose.ToleranceDegrees,
		Thresholds: pose.RatingThresholds{
			Perfect: cfg.Pose.PerfectThreshold,
			Great:   cfg.Pose.GreatThreshold,
			Good:    cfg.Pose.GoodThreshold,
			OK:      cfg.Pose.OKThreshold,
		},
		LookAheadMs:     cfg.Pose.LookAheadMs,
		Cooldown:        cfg.Scoring.GetCooldown(),
		UseActivityGate: cfg.Scoring.UseActivityGate,
		Track:           track,
	}
}

// GetSession retrieves an existing session.
func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	return session, exists
}

// GetActiveSessionCount returns the number of currently active sessions.
func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetAllSessions returns a snapshot of all active sessions.
func (m *Manager) GetAllSessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// FinalizeSession latches a session's final result and hands it to the
// publisher. The session stays in the registry so clients can still fetch
// the result; the idle reaper removes it later.
func (m *Manager) FinalizeSession(id string) (FinalResult, error) {
	session, exists := m.GetSession(id)
	if !exists {
		return FinalResult{}, fmt.Errorf("session %s not found", id)
	}

	result := session.Finalize()
	m.metrics.RecordSessionFinalized(
		float64(result.DancePct), float64(result.VocalPct), float64(result.CombinedPct))

	m.publishResult(result)

	return result, nil
}

// publishResult hands a result to the publisher, fire and forget. A publish
// failure is logged and dropped; it must never affect scoring state.
func (m *Manager) publishResult(result FinalResult) {
	if m.publisher == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := m.publisher.Publish(ctx, result); err != nil {
			m.metrics.RecordPublishFailure()
			m.logger.Error("failed to publish session result",
				slog.String("session_id", result.SessionID),
				slog.String("error", err.Error()),
			)
			return
		}

		m.metrics.RecordResultPublished()
		m.logger.Debug("published session result",
			slog.String("session_id", result.SessionID),
		)
	}()
}

// RemoveSession removes a session from the registry.
func (m *Manager) RemoveSession(id string) bool {
	return m.removeSession(id, false)
}

func (m *Manager) removeSession(id string, expired bool) bool {
	m.mu.Lock()
	session, exists := m.sessions[id]
	if !exists {
		m.mu.Unlock()
		return false
	}
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	duration := time.Since(session.CreatedAt)
	m.metrics.SetActiveSessions(count)
	m.metrics.RecordSessionRemoved(duration.Seconds(), expired)

	m.logger.Info("removed scoring session",
		slog.String("session_id", id),
		slog.Duration("duration", duration),
		slog.Bool("expired", expired),
	)

	return true
}

// Stop gracefully stops the manager.
func (m *Manager) Stop() {
	m.logger.Info("stopping session manager")

	m.cancel()
	<-m.cleanup

	m.logger.Info("session manager stopped",
		slog.Int("remaining_sessions", m.GetActiveSessionCount()),
	)
}

// startCleanupRoutine reaps idle sessions in the background.
func (m *Manager) startCleanupRoutine() {
	defer close(m.cleanup)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	timeout := m.cfg.Scoring.GetSessionTimeout()
	m.logger.Info("session cleanup routine started",
		slog.Duration("timeout", timeout),
	)

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Info("session cleanup routine stopping")
			return

		case <-ticker.C:
			m.cleanupExpiredSessions(timeout)
		}
	}
}

// cleanupExpiredSessions removes sessions that have been idle for too long.
func (m *Manager) cleanupExpiredSessions(timeout time.Duration) {
	now := time.Now()
	expired := make([]string, 0)

	m.mu.RLock()
	for id, session := range m.sessions {
		if now.Sub(session.LastActivity()) > timeout {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	if len(expired) == 0 {
		return
	}

	m.logger.Info("cleaning up expired sessions",
		slog.Int("expired_count", len(expired)),
	)

	for _, id := range expired {
		m.removeSession(id, true)
	}
}
