package audio

import (
	"math"
	"testing"
	"time"
)

func TestNewFrameValidation(t *testing.T) {
	_, err := NewFrame(nil, 44100, time.Now())
	if err != ErrEmptyFrame {
		t.Errorf("expected ErrEmptyFrame for nil samples, got %v", err)
	}

	_, err = NewFrame([]float32{0.5}, 0, time.Now())
	if err == nil {
		t.Error("expected error for zero sample rate")
	}

	frame, err := NewFrame([]float32{0.5, -0.5}, 44100, time.Now())
	if err != nil {
		t.Fatalf("failed to create frame: %v", err)
	}
	if frame.SampleRate != 44100 {
		t.Errorf("expected sample rate 44100, got %d", frame.SampleRate)
	}
}

func TestFrameDuration(t *testing.T) {
	samples := make([]float32, 4410)
	frame, err := NewFrame(samples, 44100, time.Now())
	if err != nil {
		t.Fatalf("failed to create frame: %v", err)
	}

	if got := frame.Duration(); got != 100*time.Millisecond {
		t.Errorf("expected duration 100ms, got %v", got)
	}
}

func TestFrameRMS(t *testing.T) {
	// Silence has zero RMS.
	silence := make([]float32, 1024)
	frame, _ := NewFrame(silence, 44100, time.Now())
	if got := frame.RMS(); got != 0 {
		t.Errorf("expected RMS 0 for silence, got %f", got)
	}

	// Full-scale sine has RMS 1/sqrt(2).
	sine := make([]float32, 4410)
	for i := range sine {
		sine[i] = float32(math.Sin(2 * math.Pi * 441 * float64(i) / 44100))
	}
	frame, _ = NewFrame(sine, 44100, time.Now())
	want := 1 / math.Sqrt2
	if got := frame.RMS(); math.Abs(got-want) > 0.01 {
		t.Errorf("expected RMS ~%f for full-scale sine, got %f", want, got)
	}
}

func TestDecodePCM16(t *testing.T) {
	// 0x0000 = 0, 0x7FFF ~= 1.0, 0x8000 = -1.0 (little-endian)
	data := []byte{0x00, 0x00, 0xFF, 0x7F, 0x00, 0x80}

	samples, err := DecodePCM16(data)
	if err != nil {
		t.Fatalf("failed to decode PCM16: %v", err)
	}

	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}

	if samples[0] != 0 {
		t.Errorf("expected sample 0 to be 0, got %f", samples[0])
	}

	if math.Abs(float64(samples[1])-1.0) > 0.001 {
		t.Errorf("expected sample 1 near 1.0, got %f", samples[1])
	}

	if samples[2] != -1.0 {
		t.Errorf("expected sample 2 to be -1.0, got %f", samples[2])
	}
}

func TestDecodePCM16OddLength(t *testing.T) {
	_, err := DecodePCM16([]byte{0x00, 0x01, 0x02})
	if err == nil {
		t.Error("expected error for odd byte length")
	}
}

func TestHighPassFilterRemovesDC(t *testing.T) {
	filter := NewHighPassFilter(200, 44100)

	// Constant (DC) input should decay towards zero.
	dc := make([]float32, 44100)
	for i := range dc {
		dc[i] = 0.8
	}

	out := filter.Apply(dc)

	var tail float64
	for _, s := range out[len(out)-1000:] {
		tail += math.Abs(float64(s))
	}
	tail /= 1000

	if tail > 0.01 {
		t.Errorf("expected DC component to decay below 0.01, got mean %f", tail)
	}
}

func TestHighPassFilterPassesHighFrequency(t *testing.T) {
	filter := NewHighPassFilter(200, 44100)

	// 1 kHz sine is well above the cutoff and should come through mostly intact.
	in := make([]float32, 44100)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 1000 * float64(i) / 44100))
	}

	out := filter.Apply(in)

	var inRMS, outRMS float64
	for i := range in {
		inRMS += float64(in[i]) * float64(in[i])
		outRMS += float64(out[i]) * float64(out[i])
	}
	ratio := math.Sqrt(outRMS) / math.Sqrt(inRMS)

	if ratio < 0.8 {
		t.Errorf("expected 1kHz to pass with ratio > 0.8, got %f", ratio)
	}
}

func TestHighPassFilterReset(t *testing.T) {
	filter := NewHighPassFilter(200, 44100)

	filter.Apply([]float32{0.5, 0.7, 0.2})
	filter.Reset()

	// After a reset the first sample primes the state, so output starts at 0.
	out := filter.Apply([]float32{0.9})
	if out[0] != 0 {
		t.Errorf("expected first output after reset to be 0, got %f", out[0])
	}
}
