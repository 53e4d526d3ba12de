package pitch

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Swaraag/JustIdol-sub000/internal/audio"
)

// DefaultFrequency is reported when no candidate survives selection.
// A4 keeps downstream note mapping sane; the zero confidence tells callers
// to ignore the value.
const DefaultFrequency = 440.0

// Config holds detector tuning. Zero values are invalid; build it from the
// service configuration.
type Config struct {
	SampleRate       int
	Threshold        float64 // CMNDF candidate threshold
	MinFrequency     float64 // Hz
	MaxFrequency     float64 // Hz
	ConfidenceWeight float64 // candidate selection weight for CMNDF confidence
	HarmonicWeight   float64 // candidate selection weight for harmonic energy
	HighPassEnabled  bool
	HighPassCutoff   float64 // Hz
}

// Estimate is one pitch reading for a single audio frame.
type Estimate struct {
	Frequency  float64 `json:"frequency_hz"` // 0 is never reported; unvoiced frames carry confidence 0
	Confidence float64 `json:"confidence"`   // [0, 1]
}

// Voiced reports whether the estimate is trustworthy enough to score against.
func (e Estimate) Voiced() bool {
	return e.Confidence > 0
}

// DetectorStats captures detector counters for monitoring.
type DetectorStats struct {
	TotalFrames   uint64    `json:"total_frames"`
	VoicedFrames  uint64    `json:"voiced_frames"`
	VoicedPercent float64   `json:"voiced_percent"`
	LastProcessed time.Time `json:"last_processed"`
}

// vocalBand boosts candidates whose implied frequency falls inside a range
// where sung fundamentals and their strong low harmonics concentrate.
type vocalBand struct {
	low, high float64 // Hz
	weight    float64
}

var vocalBands = []vocalBand{
	{200, 400, 1.2},   // baritone
	{400, 800, 1.5},   // tenor
	{800, 1200, 1.3},  // alto
	{1200, 2000, 1.1}, // soprano
}

// Detector estimates the fundamental frequency of successive audio frames.
// It is owned by a single session; Detect is safe to call from one goroutine
// at a time per instance.
type Detector struct {
	cfg      Config
	highPass *audio.HighPassFilter

	// Scratch buffers reused across frames to keep the per-tick path
	// allocation-light.
	diff  []float64
	cmndf []float64

	harmonics *harmonicAnalyzer

	totalFrames   uint64
	voicedFrames  uint64
	lastProcessed time.Time

	mu sync.Mutex
}

// candidate is one CMNDF dip under the threshold.
type candidate struct {
	tau        int
	confidence float64 // 1 - cmndf, band-weighted
	frequency  float64
}

// NewDetector creates a pitch detector for the given configuration.
func NewDetector(cfg Config) (*Detector, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}

	if cfg.Threshold <= 0 || cfg.Threshold >= 1 {
		return nil, fmt.Errorf("threshold must be between 0 and 1 (exclusive), got %f", cfg.Threshold)
	}

	if cfg.MinFrequency <= 0 || cfg.MaxFrequency <= cfg.MinFrequency {
		return nil, fmt.Errorf("invalid frequency range [%f, %f]", cfg.MinFrequency, cfg.MaxFrequency)
	}

	if cfg.ConfidenceWeight+cfg.HarmonicWeight <= 0 {
		return nil, fmt.Errorf("selection weights must sum to a positive value")
	}

	d := &Detector{
		cfg:       cfg,
		harmonics: newHarmonicAnalyzer(cfg.SampleRate),
	}

	if cfg.HighPassEnabled {
		cutoff := cfg.HighPassCutoff
		if cutoff <= 0 {
			cutoff = 200
		}
		d.highPass = audio.NewHighPassFilter(cutoff, cfg.SampleRate)
	}

	return d, nil
}

// Detect returns the best fundamental-frequency estimate for one frame.
// Frames too short for the configured frequency range degrade to a narrower
// search rather than failing; a frame with no credible candidate returns
// DefaultFrequency at confidence 0.
func (d *Detector) Detect(frame *audio.Frame) (Estimate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil || len(frame.Samples) == 0 {
		return Estimate{}, audio.ErrEmptyFrame
	}

	if frame.SampleRate != d.cfg.SampleRate {
		return Estimate{}, fmt.Errorf("frame sample rate %d does not match detector rate %d",
			frame.SampleRate, d.cfg.SampleRate)
	}

	d.totalFrames++
	d.lastProcessed = time.Now()

	samples := frame.Samples
	if d.highPass != nil {
		samples = d.highPass.Apply(samples)
	}

	est := d.analyze(samples)
	if est.Voiced() {
		d.voicedFrames++
	}

	return est, nil
}

// analyze runs the YIN pipeline on a pre-filtered buffer.
func (d *Detector) analyze(samples []float32) Estimate {
	sr := float64(d.cfg.SampleRate)

	minPeriod := int(sr / d.cfg.MaxFrequency)
	if minPeriod < 2 {
		minPeriod = 2
	}

	maxPeriod := int(sr / d.cfg.MinFrequency)

	// Short buffers shrink the search range instead of reading out of
	// bounds; estimates degrade gracefully.
	if maxPeriod > len(samples)/2 {
		maxPeriod = len(samples) / 2
	}

	if maxPeriod <= minPeriod+2 {
		return Estimate{Frequency: DefaultFrequency, Confidence: 0}
	}

	d.computeDifference(samples, maxPeriod)
	d.computeCMNDF(minPeriod, maxPeriod)

	candidates := d.collectCandidates(minPeriod, maxPeriod)
	if len(candidates) == 0 {
		return Estimate{Frequency: DefaultFrequency, Confidence: 0}
	}

	spectrum := d.harmonics.spectrum(samples)

	best := candidates[0]
	bestScore := math.Inf(-1)
	for _, c := range candidates {
		harmonic := d.harmonics.score(spectrum, c.frequency)
		score := d.cfg.ConfidenceWeight*c.confidence + d.cfg.HarmonicWeight*harmonic
		if score > bestScore {
			bestScore = score
			best = c
		}
	}

	period := d.interpolatePeriod(best.tau, maxPeriod)
	frequency := sr / period

	frequency = clamp(frequency, d.cfg.MinFrequency, d.cfg.MaxFrequency)
	confidence := clamp(1-d.cmndf[best.tau], 0, 1)

	return Estimate{Frequency: frequency, Confidence: confidence}
}

// computeDifference fills d.diff with the YIN difference function
// d(tau) = sum_i (x_i - x_{i+tau})^2 over a window that keeps i+tau in range.
func (d *Detector) computeDifference(samples []float32, maxPeriod int) {
	if cap(d.diff) < maxPeriod {
		d.diff = make([]float64, maxPeriod)
	}
	d.diff = d.diff[:maxPeriod]

	window := len(samples) - maxPeriod

	for tau := 0; tau < maxPeriod; tau++ {
		var sum float64
		for i := 0; i < window; i++ {
			delta := float64(samples[i]) - float64(samples[i+tau])
			sum += delta * delta
		}
		d.diff[tau] = sum
	}
}

// computeCMNDF fills d.cmndf with the cumulative mean normalized difference.
// Lags below minPeriod are forced to 1 so they can never become candidates.
func (d *Detector) computeCMNDF(minPeriod, maxPeriod int) {
	if cap(d.cmndf) < maxPeriod {
		d.cmndf = make([]float64, maxPeriod)
	}
	d.cmndf = d.cmndf[:maxPeriod]

	d.cmndf[0] = 1
	var runningSum float64

	for tau := 1; tau < maxPeriod; tau++ {
		runningSum += d.diff[tau]
		if tau < minPeriod || runningSum == 0 {
			d.cmndf[tau] = 1
			continue
		}
		d.cmndf[tau] = d.diff[tau] * float64(tau) / runningSum
	}
}

// collectCandidates returns up to five CMNDF dips under the threshold,
// strongest first, with vocal band weighting applied.
func (d *Detector) collectCandidates(minPeriod, maxPeriod int) []candidate {
	sr := float64(d.cfg.SampleRate)
	var out []candidate

	for tau := minPeriod; tau < maxPeriod-1; tau++ {
		if d.cmndf[tau] >= d.cfg.Threshold {
			continue
		}

		// Local minimum only; skip the falling edge of a dip.
		if d.cmndf[tau] > d.cmndf[tau+1] {
			continue
		}

		freq := sr / float64(tau)
		if freq < d.cfg.MinFrequency || freq > d.cfg.MaxFrequency {
			continue
		}

		conf := (1 - d.cmndf[tau]) * bandWeight(freq)
		out = append(out, candidate{tau: tau, confidence: conf, frequency: freq})
	}

	// Keep the top five by confidence. The list is tiny, selection sort is fine.
	for i := 0; i < len(out); i++ {
		maxIdx := i
		for j := i + 1; j < len(out); j++ {
			if out[j].confidence > out[maxIdx].confidence {
				maxIdx = j
			}
		}
		out[i], out[maxIdx] = out[maxIdx], out[i]
	}

	if len(out) > 5 {
		out = out[:5]
	}

	return out
}

// interpolatePeriod refines the winning lag with parabolic interpolation over
// the CMNDF neighborhood for sub-sample accuracy.
func (d *Detector) interpolatePeriod(tau, maxPeriod int) float64 {
	if tau <= 0 || tau >= maxPeriod-1 {
		return float64(tau)
	}

	s0 := d.cmndf[tau-1]
	s1 := d.cmndf[tau]
	s2 := d.cmndf[tau+1]

	denom := 2 * (2*s1 - s0 - s2)
	if denom == 0 {
		return float64(tau)
	}

	shift := (s2 - s0) / denom
	if shift < -1 || shift > 1 {
		return float64(tau)
	}

	return float64(tau) + shift
}

// GetStats returns current detector counters.
func (d *Detector) GetStats() DetectorStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	voicedPercent := float64(0)
	if d.totalFrames > 0 {
		voicedPercent = float64(d.voicedFrames) / float64(d.totalFrames) * 100
	}

	return DetectorStats{
		TotalFrames:   d.totalFrames,
		VoicedFrames:  d.voicedFrames,
		VoicedPercent: voicedPercent,
		LastProcessed: d.lastProcessed,
	}
}

// Reset clears counters and filter state, e.g. on session retry.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.totalFrames = 0
	d.voicedFrames = 0
	d.lastProcessed = time.Time{}
	if d.highPass != nil {
		d.highPass.Reset()
	}
}

// bandWeight returns the vocal band multiplier for a frequency, 1.0 outside
// all bands.
func bandWeight(freq float64) float64 {
	for _, b := range vocalBands {
		if freq >= b.low && freq < b.high {
			return b.weight
		}
	}
	return 1.0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
