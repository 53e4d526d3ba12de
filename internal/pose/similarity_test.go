package pose

import (
	"math"
	"testing"
)

func defaultThresholds() RatingThresholds {
	return RatingThresholds{Perfect: 0.9, Great: 0.8, Good: 0.7, OK: 0.6}
}

func TestRatingThresholdBoundaries(t *testing.T) {
	th := defaultThresholds()

	tests := []struct {
		similarity float64
		want       HitRating
	}{
		{1.0, RatingPerfect},
		{0.9, RatingPerfect},
		{0.8999, RatingGreat},
		{0.8, RatingGreat},
		{0.7999, RatingGood},
		{0.7, RatingGood},
		{0.6999, RatingOK},
		{0.6, RatingOK},
		{0.5999, RatingMiss},
		{0.0, RatingMiss},
	}

	for _, tt := range tests {
		if got := th.Rate(tt.similarity); got != tt.want {
			t.Errorf("Rate(%f) = %s, want %s", tt.similarity, got, tt.want)
		}
	}
}

func TestRatingPoints(t *testing.T) {
	tests := []struct {
		rating HitRating
		want   int
	}{
		{RatingPerfect, 100},
		{RatingGreat, 80},
		{RatingGood, 60},
		{RatingOK, 40},
		{RatingMiss, 0},
	}

	for _, tt := range tests {
		if got := tt.rating.Points(); got != tt.want {
			t.Errorf("%s.Points() = %d, want %d", tt.rating, got, tt.want)
		}
	}
}

func TestAngleComparerIdenticalSets(t *testing.T) {
	cmp := NewAngleComparer(30, defaultThresholds())

	var set AngleSet
	for i := range set {
		set[i] = float64(10 * i)
	}

	result := cmp.Compare(set, set)
	if result.Similarity != 1 {
		t.Errorf("identical sets: similarity = %f, want 1", result.Similarity)
	}
	if result.Rating != RatingPerfect {
		t.Errorf("identical sets: rating = %s, want PERFECT", result.Rating)
	}
	if result.Points != 100 {
		t.Errorf("identical sets: points = %d, want 100", result.Points)
	}
}

func TestAngleComparerAllBeyondTolerance(t *testing.T) {
	cmp := NewAngleComparer(30, defaultThresholds())

	var user, ref AngleSet
	for i := range ref {
		ref[i] = 150 // every joint off by 150 degrees, far past tolerance
	}

	result := cmp.Compare(user, ref)
	if result.Similarity != 0 {
		t.Errorf("all joints beyond tolerance: similarity = %f, want 0", result.Similarity)
	}
	if result.Rating != RatingMiss {
		t.Errorf("rating = %s, want MISS", result.Rating)
	}
}

func TestAngleComparerPartialDeviation(t *testing.T) {
	cmp := NewAngleComparer(30, defaultThresholds())

	// Every joint off by half the tolerance: similarity is exactly 0.5
	// regardless of weights.
	var user, ref AngleSet
	for i := range ref {
		user[i] = 90
		ref[i] = 105
	}

	result := cmp.Compare(user, ref)
	if math.Abs(result.Similarity-0.5) > 1e-9 {
		t.Errorf("uniform half-tolerance deviation: similarity = %f, want 0.5", result.Similarity)
	}
}

func TestAngleComparerWeighting(t *testing.T) {
	cmp := NewAngleComparer(30, defaultThresholds())

	var base AngleSet
	for i := range base {
		base[i] = 90
	}

	// Same 30-degree miss costs more on a heavy joint than on the neck.
	elbowOff := base
	elbowOff[AngleLeftElbow] += 30
	neckOff := base
	neckOff[AngleNeck] += 30

	elbowResult := cmp.Compare(elbowOff, base)
	neckResult := cmp.Compare(neckOff, base)

	if elbowResult.Similarity >= neckResult.Similarity {
		t.Errorf("elbow miss (%f) should cost more than neck miss (%f)",
			elbowResult.Similarity, neckResult.Similarity)
	}
}
