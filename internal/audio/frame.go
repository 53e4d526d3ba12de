package audio

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrEmptyFrame indicates an audio tick arrived with no samples.
// Callers treat the tick as a no-op and keep their previous values.
var ErrEmptyFrame = errors.New("audio frame has no samples")

// Frame is one tick's worth of mono PCM audio. Frames are produced once per
// tick and never mutated afterwards; every consumer reads the same slice.
type Frame struct {
	Samples    []float32 // mono PCM in [-1, 1]
	SampleRate int       // Hz
	CapturedAt time.Time
}

// NewFrame validates and wraps a sample buffer into an immutable Frame.
func NewFrame(samples []float32, sampleRate int, capturedAt time.Time) (*Frame, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyFrame
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	return &Frame{
		Samples:    samples,
		SampleRate: sampleRate,
		CapturedAt: capturedAt,
	}, nil
}

// Duration returns the playback duration covered by the frame.
func (f *Frame) Duration() time.Duration {
	return time.Duration(float64(len(f.Samples)) / float64(f.SampleRate) * float64(time.Second))
}

// RMS returns the root-mean-square amplitude of the frame in [0, 1].
// It feeds the volume field of zone frames.
func (f *Frame) RMS() float64 {
	if len(f.Samples) == 0 {
		return 0
	}

	var energy float64
	for _, s := range f.Samples {
		energy += float64(s) * float64(s)
	}

	return math.Sqrt(energy / float64(len(f.Samples)))
}

// DecodePCM16 converts little-endian 16-bit PCM bytes into float32 samples
// in [-1, 1]. The byte length must be even.
func DecodePCM16(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("PCM16 data length must be even, got %d bytes", len(data))
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(data[i*2]) | int16(data[i*2+1])<<8
		samples[i] = float32(v) / 32768.0
	}

	return samples, nil
}
