package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Audio   AudioConfig   `yaml:"audio"`
	Pitch   PitchConfig   `yaml:"pitch"`
	Vocal   VocalConfig   `yaml:"vocal"`
	Pose    PoseConfig    `yaml:"pose"`
	Scoring ScoringConfig `yaml:"scoring"`
	Publish PublishConfig `yaml:"publish"`
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
}

// AudioConfig contains audio ingest parameters
type AudioConfig struct {
	SampleRate     int     `yaml:"sample_rate"`      // Hz, applies to both mic and reference buffers
	TickIntervalMs int     `yaml:"tick_interval_ms"` // expected spacing of audio ticks
	HighPassCutoff float64 `yaml:"high_pass_cutoff"` // Hz, pre-filter before pitch detection
}

// PitchConfig contains YIN pitch detector configuration
type PitchConfig struct {
	Threshold        float64 `yaml:"threshold"`         // CMNDF candidate threshold (0.1 - 0.15)
	MinFrequency     float64 `yaml:"min_frequency"`     // Hz, lowest detectable fundamental
	MaxFrequency     float64 `yaml:"max_frequency"`     // Hz, highest detectable fundamental
	ConfidenceWeight float64 `yaml:"confidence_weight"` // weight of CMNDF confidence in candidate selection
	HarmonicWeight   float64 `yaml:"harmonic_weight"`   // weight of harmonic energy score in candidate selection
	HighPassEnabled  bool    `yaml:"high_pass_enabled"` // apply one-pole high-pass before analysis
}

// VocalConfig contains zone-based vocal scorer configuration
type VocalConfig struct {
	WindowMs            int     `yaml:"window_ms"`             // trailing retention window for zone frames
	MinFrameMs          float64 `yaml:"min_frame_ms"`          // floor for per-frame elapsed time
	MinConfidence       float64 `yaml:"min_confidence"`        // frames below this pitch confidence are skipped
	PerfectSemitones    float64 `yaml:"perfect_semitones"`     // deviation boundary for the Perfect zone
	KeepTryingSemitones float64 `yaml:"keep_trying_semitones"` // deviation boundary for the KeepTrying zone
	FarOffSemitones     float64 `yaml:"far_off_semitones"`     // deviation boundary for the FarOff zone
	HistoryCap          int     `yaml:"history_cap"`           // max retained raw scores for smoothing
	SmoothWindow        int     `yaml:"smooth_window"`         // raw scores averaged for the smoothed value
	RecentBlend         float64 `yaml:"recent_blend"`          // weight of the smoothed mean vs the last two raws
	TrendWindow         int     `yaml:"trend_window"`          // frames per half when computing the trend
}

// PoseConfig contains pose comparison configuration
type PoseConfig struct {
	ToleranceDegrees   float64 `yaml:"tolerance_degrees"`     // angle diff treated as a full miss for one joint
	LookAheadMs        int64   `yaml:"look_ahead_ms"`         // reference lookup offset compensating reaction lag
	PerfectThreshold   float64 `yaml:"perfect_threshold"`     // similarity floor for PERFECT
	GreatThreshold     float64 `yaml:"great_threshold"`       // similarity floor for GREAT
	GoodThreshold      float64 `yaml:"good_threshold"`        // similarity floor for GOOD
	OKThreshold        float64 `yaml:"ok_threshold"`          // similarity floor for OK
	RefMovingFloor     float64 `yaml:"ref_moving_floor"`      // reference intensity above which idling is penalized
	IdleCeiling        float64 `yaml:"idle_ceiling"`          // performer intensity below which they count as idle
	IdleVsMovingFactor float64 `yaml:"idle_vs_moving_factor"` // multiplier when reference moves and performer idles
	IdleFactor         float64 `yaml:"idle_factor"`           // multiplier when the performer idles regardless
	MaxDegreesPerFrame float64 `yaml:"max_degrees_per_frame"` // angular velocity mapped to movement intensity 1.0
}

// ScoringConfig contains orchestrator configuration
type ScoringConfig struct {
	CooldownMs      int  `yaml:"cooldown_ms"`       // minimum spacing between scored pose events
	SessionTimeout  int  `yaml:"session_timeout"`   // seconds of inactivity before a session is reaped
	UseActivityGate bool `yaml:"use_activity_gate"` // gate vocal scoring on the singing/instrumental detector
}

// PublishConfig contains the optional Kafka results publisher configuration
type PublishConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration the service ships with. All tuned
// constants (zone boundaries, similarity thresholds, penalties) live here
// rather than being hard-coded at their point of use.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:    8080,
			Address: "0.0.0.0",
		},
		Audio: AudioConfig{
			SampleRate:     44100,
			TickIntervalMs: 100,
			HighPassCutoff: 200,
		},
		Pitch: PitchConfig{
			Threshold:        0.12,
			MinFrequency:     80,
			MaxFrequency:     2000,
			ConfidenceWeight: 0.7,
			HarmonicWeight:   0.3,
			HighPassEnabled:  true,
		},
		Vocal: VocalConfig{
			WindowMs:            10000,
			MinFrameMs:          50,
			MinConfidence:       0.1,
			PerfectSemitones:    0.5,
			KeepTryingSemitones: 1.5,
			FarOffSemitones:     3.0,
			HistoryCap:          200,
			SmoothWindow:        5,
			RecentBlend:         0.4,
			TrendWindow:         50,
		},
		Pose: PoseConfig{
			ToleranceDegrees:   30,
			LookAheadMs:        200,
			PerfectThreshold:   0.9,
			GreatThreshold:     0.8,
			GoodThreshold:      0.7,
			OKThreshold:        0.6,
			RefMovingFloor:     0.15,
			IdleCeiling:        0.05,
			IdleVsMovingFactor: 0.2,
			IdleFactor:         0.3,
			MaxDegreesPerFrame: 10,
		},
		Scoring: ScoringConfig{
			CooldownMs:      200,
			SessionTimeout:  300,
			UseActivityGate: false,
		},
		Publish: PublishConfig{
			Enabled: false,
			Topic:   "session-results",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file, overlaying it on defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Pitch.Validate(); err != nil {
		return fmt.Errorf("pitch config: %w", err)
	}

	if err := c.Vocal.Validate(); err != nil {
		return fmt.Errorf("vocal config: %w", err)
	}

	if err := c.Pose.Validate(); err != nil {
		return fmt.Errorf("pose config: %w", err)
	}

	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring config: %w", err)
	}

	if err := c.Publish.Validate(); err != nil {
		return fmt.Errorf("publish config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", a.SampleRate)
	}

	if a.TickIntervalMs < 10 {
		return fmt.Errorf("tick_interval_ms must be at least 10, got %d", a.TickIntervalMs)
	}

	if a.HighPassCutoff <= 0 {
		return fmt.Errorf("high_pass_cutoff must be positive, got %f", a.HighPassCutoff)
	}

	return nil
}

// Validate validates pitch detector configuration
func (p *PitchConfig) Validate() error {
	if p.Threshold <= 0 || p.Threshold >= 1 {
		return fmt.Errorf("threshold must be between 0 and 1 (exclusive), got %f", p.Threshold)
	}

	if p.MinFrequency <= 0 {
		return fmt.Errorf("min_frequency must be positive, got %f", p.MinFrequency)
	}

	if p.MaxFrequency <= p.MinFrequency {
		return fmt.Errorf("max_frequency (%f) must be greater than min_frequency (%f)",
			p.MaxFrequency, p.MinFrequency)
	}

	if p.ConfidenceWeight < 0 || p.HarmonicWeight < 0 {
		return fmt.Errorf("selection weights cannot be negative")
	}

	if p.ConfidenceWeight+p.HarmonicWeight == 0 {
		return fmt.Errorf("at least one selection weight must be positive")
	}

	return nil
}

// Validate validates vocal scorer configuration
func (v *VocalConfig) Validate() error {
	if v.WindowMs < 1000 {
		return fmt.Errorf("window_ms must be at least 1000, got %d", v.WindowMs)
	}

	if v.MinFrameMs <= 0 {
		return fmt.Errorf("min_frame_ms must be positive, got %f", v.MinFrameMs)
	}

	if v.MinConfidence < 0 || v.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be between 0 and 1, got %f", v.MinConfidence)
	}

	if v.PerfectSemitones <= 0 {
		return fmt.Errorf("perfect_semitones must be positive, got %f", v.PerfectSemitones)
	}

	if v.KeepTryingSemitones <= v.PerfectSemitones {
		return fmt.Errorf("keep_trying_semitones (%f) must be greater than perfect_semitones (%f)",
			v.KeepTryingSemitones, v.PerfectSemitones)
	}

	if v.FarOffSemitones <= v.KeepTryingSemitones {
		return fmt.Errorf("far_off_semitones (%f) must be greater than keep_trying_semitones (%f)",
			v.FarOffSemitones, v.KeepTryingSemitones)
	}

	if v.HistoryCap < 10 {
		return fmt.Errorf("history_cap must be at least 10, got %d", v.HistoryCap)
	}

	if v.SmoothWindow < 1 {
		return fmt.Errorf("smooth_window must be at least 1, got %d", v.SmoothWindow)
	}

	if v.RecentBlend < 0 || v.RecentBlend > 1 {
		return fmt.Errorf("recent_blend must be between 0 and 1, got %f", v.RecentBlend)
	}

	if v.TrendWindow < 2 {
		return fmt.Errorf("trend_window must be at least 2, got %d", v.TrendWindow)
	}

	return nil
}

// Validate validates pose comparison configuration
func (p *PoseConfig) Validate() error {
	if p.ToleranceDegrees <= 0 || p.ToleranceDegrees > 180 {
		return fmt.Errorf("tolerance_degrees must be between 0 and 180, got %f", p.ToleranceDegrees)
	}

	if p.LookAheadMs < 0 {
		return fmt.Errorf("look_ahead_ms cannot be negative, got %d", p.LookAheadMs)
	}

	// Rating thresholds must stay strictly decreasing so every similarity
	// value maps to exactly one rating.
	if !(p.PerfectThreshold > p.GreatThreshold &&
		p.GreatThreshold > p.GoodThreshold &&
		p.GoodThreshold > p.OKThreshold &&
		p.OKThreshold > 0) {
		return fmt.Errorf("rating thresholds must be strictly decreasing and positive, got %f/%f/%f/%f",
			p.PerfectThreshold, p.GreatThreshold, p.GoodThreshold, p.OKThreshold)
	}

	if p.PerfectThreshold > 1 {
		return fmt.Errorf("perfect_threshold cannot exceed 1, got %f", p.PerfectThreshold)
	}

	if p.IdleCeiling >= p.RefMovingFloor {
		return fmt.Errorf("idle_ceiling (%f) must be below ref_moving_floor (%f)",
			p.IdleCeiling, p.RefMovingFloor)
	}

	if p.IdleVsMovingFactor < 0 || p.IdleVsMovingFactor > 1 {
		return fmt.Errorf("idle_vs_moving_factor must be between 0 and 1, got %f", p.IdleVsMovingFactor)
	}

	if p.IdleFactor < 0 || p.IdleFactor > 1 {
		return fmt.Errorf("idle_factor must be between 0 and 1, got %f", p.IdleFactor)
	}

	if p.MaxDegreesPerFrame <= 0 {
		return fmt.Errorf("max_degrees_per_frame must be positive, got %f", p.MaxDegreesPerFrame)
	}

	return nil
}

// Validate validates scoring configuration
func (s *ScoringConfig) Validate() error {
	if s.CooldownMs < 0 {
		return fmt.Errorf("cooldown_ms cannot be negative, got %d", s.CooldownMs)
	}

	if s.SessionTimeout < 1 {
		return fmt.Errorf("session_timeout must be at least 1 second, got %d", s.SessionTimeout)
	}

	return nil
}

// Validate validates publisher configuration
func (p *PublishConfig) Validate() error {
	if !p.Enabled {
		return nil
	}

	if len(p.Brokers) == 0 {
		return fmt.Errorf("brokers cannot be empty when publishing is enabled")
	}

	if p.Topic == "" {
		return fmt.Errorf("topic cannot be empty when publishing is enabled")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetCooldown returns the scoring cooldown as a time.Duration
func (s *ScoringConfig) GetCooldown() time.Duration {
	return time.Duration(s.CooldownMs) * time.Millisecond
}

// GetSessionTimeout returns the session timeout as a time.Duration
func (s *ScoringConfig) GetSessionTimeout() time.Duration {
	return time.Duration(s.SessionTimeout) * time.Second
}

// GetWindow returns the zone frame retention window as a time.Duration
func (v *VocalConfig) GetWindow() time.Duration {
	return time.Duration(v.WindowMs) * time.Millisecond
}

// GetTickInterval returns the expected audio tick interval as a time.Duration
func (a *AudioConfig) GetTickInterval() time.Duration {
	return time.Duration(a.TickIntervalMs) * time.Millisecond
}
