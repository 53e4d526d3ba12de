package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Swaraag/JustIdol-sub000/internal/config"
	"github.com/Swaraag/JustIdol-sub000/internal/metrics"
	"github.com/Swaraag/JustIdol-sub000/internal/pose"
	"github.com/Swaraag/JustIdol-sub000/internal/scoring"
)

// HTTPServer provides the REST and websocket API for scoring sessions
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	sessionMgr *scoring.Manager
	metrics    *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates the API server with all routes registered
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, sessionMgr *scoring.Manager, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:     logger,
		config:     appConfig,
		sessionMgr: sessionMgr,
		metrics:    m,
		startTime:  time.Now(),
	}

	router := mux.NewRouter()
	h.setupRoutes(router)

	var handler http.Handler = router
	handler = handlers.CombinedLoggingHandler(os.Stdout, handler)
	handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(&recoveryLogger{logger: logger}),
	)(handler)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// recoveryLogger adapts slog to the gorilla recovery middleware.
type recoveryLogger struct {
	logger *slog.Logger
}

func (l *recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("panic in HTTP handler", slog.String("detail", fmt.Sprint(v...)))
}

// setupRoutes configures the API routes
func (h *HTTPServer) setupRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.withMetrics("/health", h.handleHealth)).Methods(http.MethodGet)
	router.HandleFunc("/config", h.withMetrics("/config", h.handleConfig)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.HandleFunc("/sessions", h.withMetrics("/sessions", h.handleCreateSession)).Methods(http.MethodPost)
	router.HandleFunc("/sessions", h.withMetrics("/sessions", h.handleListSessions)).Methods(http.MethodGet)
	router.HandleFunc("/sessions/{id}", h.withMetrics("/sessions/{id}", h.handleGetSession)).Methods(http.MethodGet)
	router.HandleFunc("/sessions/{id}", h.withMetrics("/sessions/{id}", h.handleDeleteSession)).Methods(http.MethodDelete)
	router.HandleFunc("/sessions/{id}/results", h.withMetrics("/sessions/{id}/results", h.handleResults)).Methods(http.MethodGet)
	router.HandleFunc("/sessions/{id}/finalize", h.withMetrics("/sessions/{id}/finalize", h.handleFinalize)).Methods(http.MethodPost)

	// Tick traffic; upgraded to a websocket, so no metrics wrapper.
	router.HandleFunc("/sessions/{id}/live", h.handleLive).Methods(http.MethodGet)
}

// withMetrics wraps a handler with request metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(ww, r)

		h.metrics.RecordHTTPRequest(r.Method, endpoint,
			fmt.Sprintf("%d", ww.statusCode), time.Since(startTime).Seconds())
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("stopping HTTP API server")
	return h.server.Shutdown(ctx)
}

// createSessionRequest is the POST /sessions payload. The reference track
// is optional; without one, dance scoring runs in free-form movement mode
// against reference landmarks supplied per tick.
type createSessionRequest struct {
	Mode           string            `json:"mode"`
	ReferenceTrack []pose.TrackEntry `json:"reference_track,omitempty"`
}

func (h *HTTPServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	mode, err := scoring.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.sessionMgr.CreateSession(mode, req.ReferenceTrack)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, session.Snapshot())
}

func (h *HTTPServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionMgr.GetAllSessions()
	snapshots := make([]scoring.Snapshot, 0, len(sessions))
	for _, session := range sessions {
		snapshots = append(snapshots, session.Snapshot())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_sessions": len(snapshots),
		"timestamp":      time.Now().UTC(),
		"sessions":       snapshots,
	})
}

func (h *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (h *HTTPServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.sessionMgr.RemoveSession(id) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPServer) handleResults(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	result, finalized := session.Result()
	if !finalized {
		writeError(w, http.StatusNotFound, "session not finalized yet")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *HTTPServer) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := h.sessionMgr.FinalizeSession(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"components": map[string]interface{}{
			"session_manager": map[string]interface{}{
				"status":          "running",
				"active_sessions": h.sessionMgr.GetActiveSessionCount(),
			},
		},
	})
}

func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.config
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"audio": map[string]interface{}{
			"sample_rate":      cfg.Audio.SampleRate,
			"tick_interval_ms": cfg.Audio.TickIntervalMs,
			"high_pass_cutoff": cfg.Audio.HighPassCutoff,
		},
		"pitch": map[string]interface{}{
			"threshold":     cfg.Pitch.Threshold,
			"min_frequency": cfg.Pitch.MinFrequency,
			"max_frequency": cfg.Pitch.MaxFrequency,
		},
		"vocal": map[string]interface{}{
			"window_ms":             cfg.Vocal.WindowMs,
			"perfect_semitones":     cfg.Vocal.PerfectSemitones,
			"keep_trying_semitones": cfg.Vocal.KeepTryingSemitones,
			"far_off_semitones":     cfg.Vocal.FarOffSemitones,
		},
		"pose": map[string]interface{}{
			"tolerance_degrees": cfg.Pose.ToleranceDegrees,
			"look_ahead_ms":     cfg.Pose.LookAheadMs,
			"perfect_threshold": cfg.Pose.PerfectThreshold,
			"great_threshold":   cfg.Pose.GreatThreshold,
			"good_threshold":    cfg.Pose.GoodThreshold,
			"ok_threshold":      cfg.Pose.OKThreshold,
		},
		"scoring": map[string]interface{}{
			"cooldown_ms":     cfg.Scoring.CooldownMs,
			"session_timeout": cfg.Scoring.SessionTimeout,
		},
		"logging": map[string]interface{}{
			"level":  cfg.Logging.Level,
			"format": cfg.Logging.Format,
		},
	})
}

// session resolves the {id} path variable, writing a 404 on a miss.
func (h *HTTPServer) session(w http.ResponseWriter, r *http.Request) (*scoring.Session, bool) {
	id := mux.Vars(r)["id"]
	session, exists := h.sessionMgr.GetSession(id)
	if !exists {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return session, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
