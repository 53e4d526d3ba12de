package pose

// HitRating grades one scored pose event.
type HitRating int

const (
	RatingMiss HitRating = iota
	RatingOK
	RatingGood
	RatingGreat
	RatingPerfect
	NumRatings
)

var ratingNames = map[HitRating]string{
	RatingMiss:    "MISS",
	RatingOK:      "OK",
	RatingGood:    "GOOD",
	RatingGreat:   "GREAT",
	RatingPerfect: "PERFECT",
}

var ratingPoints = map[HitRating]int{
	RatingMiss:    0,
	RatingOK:      40,
	RatingGood:    60,
	RatingGreat:   80,
	RatingPerfect: 100,
}

// String returns the uppercase display label for the rating.
func (r HitRating) String() string {
	if name, ok := ratingNames[r]; ok {
		return name
	}
	return "MISS"
}

// Points returns the base points awarded for the rating, before any streak
// multiplier.
func (r HitRating) Points() int {
	return ratingPoints[r]
}

// RatingThresholds maps a similarity value onto a rating. Thresholds are
// tuned constants surfaced through configuration; they must be strictly
// decreasing.
type RatingThresholds struct {
	Perfect float64
	Great   float64
	Good    float64
	OK      float64
}

// Rate buckets a similarity value in [0, 1] into a rating. The buckets are
// exhaustive: anything below the OK floor is a MISS.
func (t RatingThresholds) Rate(similarity float64) HitRating {
	switch {
	case similarity >= t.Perfect:
		return RatingPerfect
	case similarity >= t.Great:
		return RatingGreat
	case similarity >= t.Good:
		return RatingGood
	case similarity >= t.OK:
		return RatingOK
	default:
		return RatingMiss
	}
}

// Comparison is the outcome of scoring one pose against the reference.
type Comparison struct {
	Similarity float64   `json:"similarity"` // [0, 1]
	Rating     HitRating `json:"rating"`
	Points     int       `json:"points"`
}

// angleWeights biases the similarity towards the joints an audience actually
// watches: arms and legs carry the choreography, torso and neck mostly
// follow.
var angleWeights = [NumAngles]float64{
	AngleLeftElbow:     1.5,
	AngleRightElbow:    1.5,
	AngleLeftShoulder:  1.5,
	AngleRightShoulder: 1.5,
	AngleLeftKnee:      1.5,
	AngleRightKnee:     1.5,
	AngleLeftHip:       1.2,
	AngleRightHip:      1.2,
	AngleLeftAnkle:     1.2,
	AngleRightAnkle:    1.2,
	AngleLeftArmRaise:  1.5,
	AngleRightArmRaise: 1.5,
	AngleTorsoLean:     1.0,
	AngleNeck:          0.5,
}

// AngleComparer scores a performer's angle set against a reference entry.
// It is the strategy used for choreographed routines with a pre-computed
// reference track.
type AngleComparer struct {
	// Tolerance is the per-joint difference in degrees treated as a
	// complete miss for that joint.
	Tolerance  float64
	Thresholds RatingThresholds
}

// NewAngleComparer builds the angle-set comparison strategy.
func NewAngleComparer(tolerance float64, thresholds RatingThresholds) *AngleComparer {
	return &AngleComparer{Tolerance: tolerance, Thresholds: thresholds}
}

// Compare computes the weighted similarity between two angle sets and grades
// it.
func (c *AngleComparer) Compare(user, reference AngleSet) Comparison {
	var weightedDiff, totalWeight float64

	for i := 0; i < int(NumAngles); i++ {
		normalized := AngleDifference(user[i], reference[i]) / c.Tolerance
		if normalized > 1 {
			normalized = 1
		}
		weightedDiff += normalized * angleWeights[i]
		totalWeight += angleWeights[i]
	}

	similarity := 1 - weightedDiff/totalWeight
	rating := c.Thresholds.Rate(similarity)

	return Comparison{
		Similarity: similarity,
		Rating:     rating,
		Points:     rating.Points(),
	}
}
