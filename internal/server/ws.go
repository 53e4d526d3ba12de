package server

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/Swaraag/JustIdol-sub000/internal/audio"
	"github.com/Swaraag/JustIdol-sub000/internal/pose"
	"github.com/Swaraag/JustIdol-sub000/internal/scoring"
)

const (
	tickTypeAudio = "audio"
	tickTypePose  = "pose"

	frameTypeSnapshot = "snapshot"
	frameTypeError    = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 8 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// tickMessage is one inbound frame on the live socket. Audio ticks carry
// base64-encoded PCM16 little-endian buffers; pose ticks carry 33 landmarks
// per body.
type tickMessage struct {
	Type        string `json:"type"`
	TimestampMs int64  `json:"timestamp_ms"`

	// Audio ticks.
	UserPCM    string `json:"user_pcm,omitempty"`
	TargetPCM  string `json:"target_pcm,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`

	// Pose ticks.
	Performer []pose.Landmark `json:"performer,omitempty"`
	Reference []pose.Landmark `json:"reference,omitempty"`
}

// snapshotFrame is the reply after each processed tick.
type snapshotFrame struct {
	Type     string           `json:"type"`
	Snapshot scoring.Snapshot `json:"snapshot"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// handleLive upgrades to a websocket and pumps tick messages into the
// session. Every processed tick is answered with a snapshot; malformed ticks
// get an error frame and leave the session untouched.
func (h *HTTPServer) handleLive(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	session, exists := h.sessionMgr.GetSession(id)
	if !exists {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	defer conn.Close()

	h.metrics.WebsocketSessions.Inc()
	defer h.metrics.WebsocketSessions.Dec()

	logger := h.logger.With(
		slog.String("session_id", id),
		slog.String("remote_addr", r.RemoteAddr),
	)
	logger.Info("live stream connected")

	for {
		var tick tickMessage
		if err := conn.ReadJSON(&tick); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("live stream read error", slog.String("error", err.Error()))
			} else {
				logger.Info("live stream disconnected")
			}
			return
		}

		snapshot, err := h.processTick(session, tick)
		if err != nil {
			if werr := conn.WriteJSON(errorFrame{Type: frameTypeError, Error: err.Error()}); werr != nil {
				return
			}
			continue
		}

		if err := conn.WriteJSON(snapshotFrame{Type: frameTypeSnapshot, Snapshot: snapshot}); err != nil {
			return
		}
	}
}

// processTick dispatches one tick message to the right session channel.
func (h *HTTPServer) processTick(session *scoring.Session, tick tickMessage) (scoring.Snapshot, error) {
	switch tick.Type {
	case tickTypeAudio:
		return h.processAudioTick(session, tick)
	case tickTypePose:
		return h.processPoseTick(session, tick)
	default:
		return scoring.Snapshot{}, fmt.Errorf("unknown tick type %q", tick.Type)
	}
}

func (h *HTTPServer) processAudioTick(session *scoring.Session, tick tickMessage) (scoring.Snapshot, error) {
	startTime := time.Now()

	sampleRate := tick.SampleRate
	if sampleRate <= 0 {
		sampleRate = h.config.Audio.SampleRate
	}

	userFrame, err := decodeFrame(tick.UserPCM, sampleRate)
	if err != nil {
		h.metrics.RecordAudioTickError()
		return scoring.Snapshot{}, fmt.Errorf("user buffer: %w", err)
	}

	var targetFrame *audio.Frame
	if tick.TargetPCM != "" {
		targetFrame, err = decodeFrame(tick.TargetPCM, sampleRate)
		if err != nil {
			h.metrics.RecordAudioTickError()
			return scoring.Snapshot{}, fmt.Errorf("target buffer: %w", err)
		}
	}

	snapshot, err := session.ProcessAudioTick(userFrame, targetFrame)
	if err != nil {
		h.metrics.RecordAudioTickError()
		return scoring.Snapshot{}, err
	}

	h.metrics.RecordAudioTick(time.Since(startTime).Seconds(),
		snapshot.UserPitchHz > 0, snapshot.VocalScore)
	return snapshot, nil
}

func (h *HTTPServer) processPoseTick(session *scoring.Session, tick tickMessage) (scoring.Snapshot, error) {
	startTime := time.Now()
	before := totalHits(session.State())

	snapshot, err := session.ProcessPoseTick(scoring.PoseTick{
		TimestampMs: tick.TimestampMs,
		Performer:   tick.Performer,
		Reference:   tick.Reference,
	})
	if err != nil {
		h.metrics.RecordPoseTickError()
		return scoring.Snapshot{}, err
	}

	h.metrics.RecordPoseTick(time.Since(startTime).Seconds(), snapshot.DanceSimilarity)

	// The cooldown drops most ticks, so only count actual scored hits.
	if totalHits(session.State()) > before {
		h.metrics.RecordHitRating(snapshot.LastRating)
	}
	return snapshot, nil
}

func totalHits(state scoring.ScoreState) int64 {
	var total int64
	for _, count := range state.Counts {
		total += count
	}
	return total
}

// decodeFrame turns a base64 PCM16 payload into an audio frame.
func decodeFrame(encoded string, sampleRate int) (*audio.Frame, error) {
	if encoded == "" {
		return nil, fmt.Errorf("empty PCM buffer")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}

	samples, err := audio.DecodePCM16(raw)
	if err != nil {
		return nil, err
	}

	return audio.NewFrame(samples, sampleRate, time.Now())
}
