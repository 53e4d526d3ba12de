package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Swaraag/JustIdol-sub000/internal/config"
	"github.com/Swaraag/JustIdol-sub000/internal/scoring"
)

// messageWriter is the slice of kafka.Writer the publisher needs; tests
// substitute a capture.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// record is the wire shape of one published result.
type record struct {
	SessionID   string           `json:"session_id"`
	Mode        string           `json:"mode"`
	DancePct    int              `json:"final_dance_score_pct"`
	VocalPct    int              `json:"final_vocal_score_pct"`
	CombinedPct int              `json:"final_combined_score_pct"`
	Score       int64            `json:"score"`
	MaxStreak   int              `json:"max_streak"`
	Counts      map[string]int64 `json:"hit_counts"`
	EndedAt     time.Time        `json:"ended_at"`
}

// Publisher writes session results to a Kafka topic, keyed by session ID so
// per-session ordering holds under partitioning.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
	topic  string
}

// NewPublisher creates a Kafka-backed result publisher. The configuration
// must already be validated; callers skip construction entirely when
// publishing is disabled.
func NewPublisher(cfg config.PublishConfig, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic must not be empty")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}

	return &Publisher{
		writer: writer,
		logger: logger.With(slog.String("component", "result_publisher")),
		topic:  cfg.Topic,
	}, nil
}

// Publish writes one finalized result.
func (p *Publisher) Publish(ctx context.Context, result scoring.FinalResult) error {
	value, err := json.Marshal(record{
		SessionID:   result.SessionID,
		Mode:        string(result.Mode),
		DancePct:    result.DancePct,
		VocalPct:    result.VocalPct,
		CombinedPct: result.CombinedPct,
		Score:       result.Score,
		MaxStreak:   result.MaxStreak,
		Counts:      result.Counts,
		EndedAt:     result.EndedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(result.SessionID),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write result to %s: %w", p.topic, err)
	}

	p.logger.Debug("published session result",
		slog.String("session_id", result.SessionID),
		slog.String("topic", p.topic),
	)

	return nil
}

// Close releases the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
