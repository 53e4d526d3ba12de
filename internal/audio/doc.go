// Package audio provides the PCM frame type shared by both scoring channels
// and the lightweight DSP helpers that run before pitch analysis: PCM16
// decoding, one-pole high-pass filtering, and RMS volume measurement.
package audio
