// Package vocal scores singing accuracy with a zone-based model.
//
// Each pitch estimate is classified into a deviation zone relative to the
// reference melody. A trailing window of zone frames is aggregated into a
// raw score that starts from a generous baseline and deducts for time spent
// off pitch, then smoothed so the on-screen number does not jitter.
package vocal
