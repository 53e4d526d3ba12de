// Package note maps detected frequencies to musical note names and provides
// a coarse spectral classifier distinguishing singing from instrumental
// passages. The classifier is advisory: the scoring path does not gate on it
// by default because formant-band heuristics misfire on dense mixes.
package note
