package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration failed validation: %v", err)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	content := `
http:
  port: 9090
pitch:
  threshold: 0.15
vocal:
  perfect_semitones: 0.4
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}

	if cfg.Pitch.Threshold != 0.15 {
		t.Errorf("expected threshold 0.15, got %f", cfg.Pitch.Threshold)
	}

	if cfg.Vocal.PerfectSemitones != 0.4 {
		t.Errorf("expected perfect_semitones 0.4, got %f", cfg.Vocal.PerfectSemitones)
	}

	// Untouched fields keep defaults.
	if cfg.Pose.LookAheadMs != 200 {
		t.Errorf("expected default look_ahead_ms 200, got %d", cfg.Pose.LookAheadMs)
	}

	if cfg.Scoring.CooldownMs != 200 {
		t.Errorf("expected default cooldown_ms 200, got %d", cfg.Scoring.CooldownMs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("http: [not a map"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestPitchConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*PitchConfig)
		expectErr bool
	}{
		{
			name:      "defaults",
			mutate:    func(p *PitchConfig) {},
			expectErr: false,
		},
		{
			name:      "zero threshold",
			mutate:    func(p *PitchConfig) { p.Threshold = 0 },
			expectErr: true,
		},
		{
			name:      "threshold at 1",
			mutate:    func(p *PitchConfig) { p.Threshold = 1 },
			expectErr: true,
		},
		{
			name:      "negative min frequency",
			mutate:    func(p *PitchConfig) { p.MinFrequency = -80 },
			expectErr: true,
		},
		{
			name:      "max below min",
			mutate:    func(p *PitchConfig) { p.MaxFrequency = 50 },
			expectErr: true,
		},
		{
			name:      "zero weights",
			mutate:    func(p *PitchConfig) { p.ConfidenceWeight = 0; p.HarmonicWeight = 0 },
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default().Pitch
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("expected no error but got: %v", err)
			}
		})
	}
}

func TestVocalConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*VocalConfig)
		expectErr bool
	}{
		{
			name:      "defaults",
			mutate:    func(v *VocalConfig) {},
			expectErr: false,
		},
		{
			name:      "window too small",
			mutate:    func(v *VocalConfig) { v.WindowMs = 500 },
			expectErr: true,
		},
		{
			name:      "zone boundaries out of order",
			mutate:    func(v *VocalConfig) { v.KeepTryingSemitones = 0.3 },
			expectErr: true,
		},
		{
			name:      "far off below keep trying",
			mutate:    func(v *VocalConfig) { v.FarOffSemitones = 1.0 },
			expectErr: true,
		},
		{
			name:      "blend above one",
			mutate:    func(v *VocalConfig) { v.RecentBlend = 1.5 },
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default().Vocal
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("expected no error but got: %v", err)
			}
		})
	}
}

func TestPoseConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*PoseConfig)
		expectErr bool
	}{
		{
			name:      "defaults",
			mutate:    func(p *PoseConfig) {},
			expectErr: false,
		},
		{
			name:      "non-monotonic rating thresholds",
			mutate:    func(p *PoseConfig) { p.GreatThreshold = 0.95 },
			expectErr: true,
		},
		{
			name:      "idle ceiling above moving floor",
			mutate:    func(p *PoseConfig) { p.IdleCeiling = 0.2 },
			expectErr: true,
		},
		{
			name:      "tolerance above 180",
			mutate:    func(p *PoseConfig) { p.ToleranceDegrees = 200 },
			expectErr: true,
		},
		{
			name:      "negative look ahead",
			mutate:    func(p *PoseConfig) { p.LookAheadMs = -1 },
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default().Pose
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("expected no error but got: %v", err)
			}
		})
	}
}

func TestPublishConfigValidation(t *testing.T) {
	cfg := PublishConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled publisher should not require brokers: %v", err)
	}

	cfg = PublishConfig{Enabled: true, Topic: "session-results"}
	if err := cfg.Validate(); err == nil {
		t.Error("enabled publisher without brokers should fail validation")
	}

	cfg = PublishConfig{Enabled: true, Brokers: []string{"localhost:9092"}}
	if err := cfg.Validate(); err == nil {
		t.Error("enabled publisher without topic should fail validation")
	}
}

func TestDurationGetters(t *testing.T) {
	cfg := Default()

	if got := cfg.Scoring.GetCooldown(); got != 200*time.Millisecond {
		t.Errorf("expected cooldown 200ms, got %v", got)
	}

	if got := cfg.Vocal.GetWindow(); got != 10*time.Second {
		t.Errorf("expected window 10s, got %v", got)
	}

	if got := cfg.Audio.GetTickInterval(); got != 100*time.Millisecond {
		t.Errorf("expected tick interval 100ms, got %v", got)
	}

	if got := cfg.Scoring.GetSessionTimeout(); got != 300*time.Second {
		t.Errorf("expected session timeout 300s, got %v", got)
	}
}
