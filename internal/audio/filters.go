package audio

import "math"

// HighPassFilter is a first-order IIR high-pass filter. It removes DC offset
// and low-frequency leakage (bass, percussion) before pitch analysis.
// The filter keeps state across calls, so one instance serves one stream.
type HighPassFilter struct {
	alpha      float64
	prevInput  float64
	prevOutput float64
	primed     bool
}

// NewHighPassFilter creates a high-pass filter with the given cutoff.
func NewHighPassFilter(cutoffHz float64, sampleRate int) *HighPassFilter {
	// alpha = RC / (RC + dt), RC = 1 / (2*pi*cutoff)
	rc := 1.0 / (2.0 * math.Pi * cutoffHz)
	dt := 1.0 / float64(sampleRate)

	return &HighPassFilter{alpha: rc / (rc + dt)}
}

// Apply filters the samples and returns a new slice. The input is not
// modified.
func (h *HighPassFilter) Apply(samples []float32) []float32 {
	if len(samples) == 0 {
		return samples
	}

	out := make([]float32, len(samples))

	if !h.primed {
		// Prime on the first sample so the filter does not see the initial
		// value as a step edge.
		h.prevInput = float64(samples[0])
		h.prevOutput = 0
		h.primed = true
	}

	for i, s := range samples {
		// y[i] = alpha * (y[i-1] + x[i] - x[i-1])
		y := h.alpha * (h.prevOutput + float64(s) - h.prevInput)
		h.prevInput = float64(s)
		h.prevOutput = y
		out[i] = float32(y)
	}

	return out
}

// Reset clears the filter state, e.g. between sessions.
func (h *HighPassFilter) Reset() {
	h.prevInput = 0
	h.prevOutput = 0
	h.primed = false
}
