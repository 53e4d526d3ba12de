package pitch

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// harmonicAnalyzer scores pitch candidates by how much spectral energy sits
// at integer multiples of the candidate frequency. Sung notes carry strong
// harmonics; a spurious CMNDF dip usually does not.
type harmonicAnalyzer struct {
	sampleRate int
	fftSize    int
	fft        *fourier.FFT
	window     []float64
	scratch    []float64
}

func newHarmonicAnalyzer(sampleRate int) *harmonicAnalyzer {
	return &harmonicAnalyzer{sampleRate: sampleRate}
}

// spectrum computes the power spectrum of the samples, zero-padded to the
// next power of two. The FFT plan and Hann window are cached per size.
func (h *harmonicAnalyzer) spectrum(samples []float32) []float64 {
	size := nextPow2(len(samples))

	if h.fft == nil || h.fftSize != size {
		h.fftSize = size
		h.fft = fourier.NewFFT(size)
		h.window = hannWindow(len(samples))
		h.scratch = make([]float64, size)
	}

	if len(h.window) != len(samples) {
		h.window = hannWindow(len(samples))
	}

	for i := range h.scratch {
		h.scratch[i] = 0
	}
	for i, s := range samples {
		h.scratch[i] = float64(s) * h.window[i]
	}

	coeffs := h.fft.Coefficients(nil, h.scratch)

	power := make([]float64, len(coeffs))
	for i, c := range coeffs {
		re := real(c)
		im := imag(c)
		power[i] = re*re + im*im
	}

	return power
}

// score returns the harmonic energy score for a candidate frequency in [0, 1].
// A candidate with no energy at its own fundamental scores 0 regardless of
// what sits at its multiples; this keeps octave-down candidates from claiming
// the true fundamental as their "second harmonic".
func (h *harmonicAnalyzer) score(power []float64, freq float64) float64 {
	if len(power) == 0 || freq <= 0 {
		return 0
	}

	var total float64
	for _, p := range power {
		total += p
	}
	if total == 0 {
		return 0
	}

	fundamental := h.bandEnergy(power, freq)
	if fundamental < 0.01*total {
		return 0
	}

	var harmonic float64
	nyquist := float64(h.sampleRate) / 2
	for k := 2; k <= 6; k++ {
		hf := freq * float64(k)
		if hf >= nyquist {
			break
		}
		harmonic += h.bandEnergy(power, hf)
	}

	score := harmonic / total
	if score > 1 {
		score = 1
	}
	return score
}

// bandEnergy sums the power bins within ±3% of the target frequency.
func (h *harmonicAnalyzer) bandEnergy(power []float64, freq float64) float64 {
	binWidth := float64(h.sampleRate) / float64(h.fftSize)

	lo := int(math.Floor(freq * 0.97 / binWidth))
	hi := int(math.Ceil(freq * 1.03 / binWidth))

	if lo < 0 {
		lo = 0
	}
	if hi >= len(power) {
		hi = len(power) - 1
	}

	var sum float64
	for i := lo; i <= hi; i++ {
		sum += power[i]
	}
	return sum
}

func hannWindow(size int) []float64 {
	w := make([]float64, size)
	if size == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return w
}

func nextPow2(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}
