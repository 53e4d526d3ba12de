// Package pitch implements monophonic fundamental-frequency estimation using
// the YIN cumulative mean normalized difference method, hardened against
// background-music leakage with a high-pass pre-filter, vocal band weighting,
// and an FFT-based harmonic energy check on candidate frequencies.
package pitch
