package note

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/Swaraag/JustIdol-sub000/internal/audio"
)

// Activity classifies what a buffer most likely contains.
type Activity int

const (
	// ActivitySilence means the buffer has no meaningful energy.
	ActivitySilence Activity = iota
	// ActivitySinging means vocal-formant bands dominate.
	ActivitySinging
	// ActivityInstrumental means energy sits mostly outside formant bands.
	ActivityInstrumental
)

// String returns the lowercase label used in snapshots and logs.
func (a Activity) String() string {
	switch a {
	case ActivitySinging:
		return "singing"
	case ActivityInstrumental:
		return "instrumental"
	default:
		return "silence"
	}
}

// ActivityDetector buckets spectral energy into vocal-formant versus
// instrument bands. It is a blunt instrument: reverb-heavy mixes and
// harmonically rich instruments routinely land in the wrong bucket, which is
// why the orchestrator scores every frame by default instead of gating on it.
type ActivityDetector struct {
	sampleRate    int
	silenceRMS    float64
	vocalRatioMin float64
	fftSize       int
	fft           *fourier.FFT
	scratch       []float64
}

// NewActivityDetector creates a detector for the given sample rate.
func NewActivityDetector(sampleRate int) *ActivityDetector {
	return &ActivityDetector{
		sampleRate:    sampleRate,
		silenceRMS:    0.01,
		vocalRatioMin: 0.45,
	}
}

// Classify analyzes one frame. Empty frames classify as silence.
func (d *ActivityDetector) Classify(frame *audio.Frame) Activity {
	if frame == nil || len(frame.Samples) == 0 {
		return ActivitySilence
	}

	if frame.RMS() < d.silenceRMS {
		return ActivitySilence
	}

	power := d.powerSpectrum(frame.Samples)

	// Formant region of the singing voice versus everything else above
	// the rumble floor.
	vocal := d.bandPower(power, 300, 3400)
	total := d.bandPower(power, 60, float64(d.sampleRate)/2)

	if total == 0 {
		return ActivitySilence
	}

	if vocal/total >= d.vocalRatioMin {
		return ActivitySinging
	}

	return ActivityInstrumental
}

func (d *ActivityDetector) powerSpectrum(samples []float32) []float64 {
	size := 1
	for size < len(samples) {
		size <<= 1
	}

	if d.fft == nil || d.fftSize != size {
		d.fftSize = size
		d.fft = fourier.NewFFT(size)
		d.scratch = make([]float64, size)
	}

	for i := range d.scratch {
		d.scratch[i] = 0
	}
	for i, s := range samples {
		d.scratch[i] = float64(s)
	}

	coeffs := d.fft.Coefficients(nil, d.scratch)

	power := make([]float64, len(coeffs))
	for i, c := range coeffs {
		re := real(c)
		im := imag(c)
		power[i] = re*re + im*im
	}
	return power
}

func (d *ActivityDetector) bandPower(power []float64, lowHz, highHz float64) float64 {
	binWidth := float64(d.sampleRate) / float64(d.fftSize)

	lo := int(math.Ceil(lowHz / binWidth))
	hi := int(math.Floor(highHz / binWidth))

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
