package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the duet scoring service
type Metrics struct {
	// Audio channel metrics
	AudioTicksProcessed prometheus.Counter
	AudioTickErrors     prometheus.Counter
	PitchDetections     prometheus.Counter
	VoicedFrames        prometheus.Counter
	AudioTickDuration   prometheus.Histogram
	VocalScore          prometheus.Histogram

	// Pose channel metrics
	PoseTicksProcessed prometheus.Counter
	PoseTickErrors     prometheus.Counter
	HitRatings         *prometheus.CounterVec
	PoseSimilarity     prometheus.Histogram
	PoseTickDuration   prometheus.Histogram

	// Session metrics
	ActiveSessions    prometheus.Gauge
	SessionsCreated   prometheus.Counter
	SessionsFinalized prometheus.Counter
	SessionsExpired   prometheus.Counter
	SessionDuration   prometheus.Histogram
	FinalScore        *prometheus.HistogramVec

	// Publisher metrics
	ResultsPublished prometheus.Counter
	PublishFailures  prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	WebsocketSessions   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Audio channel metrics
		AudioTicksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "duet_audio_ticks_processed_total",
			Help: "Total number of audio ticks processed",
		}),
		AudioTickErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "duet_audio_tick_errors_total",
			Help: "Total number of audio ticks rejected as malformed",
		}),
		PitchDetections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "duet_pitch_detections_total",
			Help: "Total number of pitch detector runs",
		}),
		VoicedFrames: promauto.NewCounter(prometheus.CounterOpts{
			Name: "duet_voiced_frames_total",
			Help: "Total number of frames with a voiced pitch estimate",
		}),
		AudioTickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "duet_audio_tick_duration_seconds",
			Help:    "Time spent processing one audio tick",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~400ms
		}),
		VocalScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "duet_vocal_score",
			Help:    "Smoothed vocal score after each audio tick",
			Buckets: prometheus.LinearBuckets(0, 10, 11), // 0 to 100
		}),

		// Pose channel metrics
		PoseTicksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "duet_pose_ticks_processed_total",
			Help: "Total number of pose ticks processed",
		}),
		PoseTickErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "duet_pose_tick_errors_total",
			Help: "Total number of pose ticks rejected as malformed",
		}),
		HitRatings: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "duet_hit_ratings_total",
			Help: "Total number of scored pose events by rating",
		}, []string{"rating"}),
		PoseSimilarity: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "duet_pose_similarity",
			Help:    "Pose similarity of scored events",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 to 1.0
		}),
		PoseTickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "duet_pose_tick_duration_seconds",
			Help:    "Time spent processing one pose tick",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),

		// Session metrics
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "duet_active_sessions",
			Help: "Current number of active scoring sessions",
		}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "duet_sessions_created_total",
			Help: "Total number of scoring sessions created",
		}),
		SessionsFinalized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "duet_sessions_finalized_total",
			Help: "Total number of sessions with latched final results",
		}),
		SessionsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "duet_sessions_expired_total",
			Help: "Total number of sessions removed by the idle reaper",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "duet_session_duration_seconds",
			Help:    "Lifetime of scoring sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),
		FinalScore: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "duet_final_score_percent",
			Help:    "Final percentage scores at session end",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}, []string{"channel"}),

		// Publisher metrics
		ResultsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "duet_results_published_total",
			Help: "Total number of session results published to the broker",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "duet_publish_failures_total",
			Help: "Total number of failed result publishes",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "duet_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "duet_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		WebsocketSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "duet_websocket_connections",
			Help: "Current number of live websocket tick connections",
		}),
	}
}

// RecordAudioTick records one processed audio tick
func (m *Metrics) RecordAudioTick(durationSeconds float64, voiced bool, vocalScore float64) {
	m.AudioTicksProcessed.Inc()
	m.PitchDetections.Inc()
	if voiced {
		m.VoicedFrames.Inc()
	}
	m.AudioTickDuration.Observe(durationSeconds)
	m.VocalScore.Observe(vocalScore)
}

// RecordAudioTickError increments the malformed audio tick counter
func (m *Metrics) RecordAudioTickError() {
	m.AudioTickErrors.Inc()
}

// RecordPoseTick records one processed pose tick
func (m *Metrics) RecordPoseTick(durationSeconds, similarity float64) {
	m.PoseTicksProcessed.Inc()
	m.PoseTickDuration.Observe(durationSeconds)
	m.PoseSimilarity.Observe(similarity)
}

// RecordPoseTickError increments the malformed pose tick counter
func (m *Metrics) RecordPoseTickError() {
	m.PoseTickErrors.Inc()
}

// RecordHitRating increments the per-rating hit counter
func (m *Metrics) RecordHitRating(rating string) {
	m.HitRatings.WithLabelValues(rating).Inc()
}

// SetActiveSessions sets the current number of active sessions
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordSessionCreated increments the sessions created counter
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
}

// RecordSessionFinalized records final scores for a finished session
func (m *Metrics) RecordSessionFinalized(dancePct, vocalPct, combinedPct float64) {
	m.SessionsFinalized.Inc()
	m.FinalScore.WithLabelValues("dance").Observe(dancePct)
	m.FinalScore.WithLabelValues("vocal").Observe(vocalPct)
	m.FinalScore.WithLabelValues("combined").Observe(combinedPct)
}

// RecordSessionRemoved records a session leaving the registry
func (m *Metrics) RecordSessionRemoved(durationSeconds float64, expired bool) {
	m.SessionDuration.Observe(durationSeconds)
	if expired {
		m.SessionsExpired.Inc()
	}
}

// RecordResultPublished increments the published results counter
func (m *Metrics) RecordResultPublished() {
	m.ResultsPublished.Inc()
}

// RecordPublishFailure increments the failed publish counter
func (m *Metrics) RecordPublishFailure() {
	m.PublishFailures.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
