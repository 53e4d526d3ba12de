package pose

import "math"

// MovementConfig tunes the movement-aware comparison strategy.
type MovementConfig struct {
	RefMovingFloor     float64 // reference intensity above which idling is penalized
	IdleCeiling        float64 // performer intensity below which they count as idle
	IdleVsMovingFactor float64 // multiplier when the reference moves and the performer idles
	IdleFactor         float64 // multiplier whenever the performer idles
	MaxDegreesPerFrame float64 // angular velocity mapped to intensity 1.0
	MinVisibility      float64 // landmark visibility floor for the presence check
	MinVisibleArm      int     // arm landmarks that must pass the floor
}

// DefaultMovementConfig returns the tuning the live free-form mode ships
// with.
func DefaultMovementConfig() MovementConfig {
	return MovementConfig{
		RefMovingFloor:     0.15,
		IdleCeiling:        0.05,
		IdleVsMovingFactor: 0.2,
		IdleFactor:         0.3,
		MaxDegreesPerFrame: 10,
		MinVisibility:      0.5,
		MinVisibleArm:      4,
	}
}

// MovementResult breaks down one movement-aware comparison. Score already
// includes any anti-idle penalty.
type MovementResult struct {
	Score              float64 `json:"score"`               // [0, 1], post-penalty
	PoseSimilarity     float64 `json:"pose_similarity"`     // [0, 1]
	Synchrony          float64 `json:"synchrony"`           // [0, 1]
	PerformerIntensity float64 `json:"performer_intensity"` // [0, 1]
	ReferenceIntensity float64 `json:"reference_intensity"` // [0, 1]
	Penalized          bool    `json:"penalized"`
}

// MovementComparer scores live free-form matching. Unlike the angle-set
// strategy it needs the previous frame for both performer and reference, so
// it can compare how much each is actually moving. Matching the average pose
// while standing still is the classic exploit this strategy exists to kill.
type MovementComparer struct {
	cfg MovementConfig
}

// NewMovementComparer builds the movement-aware comparison strategy.
func NewMovementComparer(cfg MovementConfig) *MovementComparer {
	return &MovementComparer{cfg: cfg}
}

// armLandmarks are the joints the presence check inspects.
var armLandmarks = [6]int{
	LeftShoulder, RightShoulder,
	LeftElbow, RightElbow,
	LeftWrist, RightWrist,
}

// Compare scores the performer's current movement against the reference's.
// A performer with too few visible arm landmarks scores 0; this is the
// normal no-signal steady state, not an error.
func (m *MovementComparer) Compare(perfCurr, perfPrev, refCurr, refPrev *Pose) MovementResult {
	if perfCurr == nil || perfPrev == nil || refCurr == nil || refPrev == nil {
		return MovementResult{}
	}

	if !m.armPresent(perfCurr) {
		return MovementResult{}
	}

	perfAngles := armAngles(perfCurr)
	perfPrevAngles := armAngles(perfPrev)
	refAngles := armAngles(refCurr)
	refPrevAngles := armAngles(refPrev)

	// Static pose match on the current frame.
	var diffSum float64
	for i := range perfAngles {
		diffSum += AngleDifference(perfAngles[i], refAngles[i])
	}
	poseSimilarity := 1 - diffSum/float64(len(perfAngles))/180

	perfIntensity := m.intensity(perfAngles, perfPrevAngles)
	refIntensity := m.intensity(refAngles, refPrevAngles)

	synchrony := 1 - math.Abs(perfIntensity-refIntensity)

	score := 0.5*poseSimilarity + 0.5*synchrony
	penalized := false

	// Anti-idle: holding a statue pose while the choreography moves is
	// crushed, and barely moving at all is still discounted.
	if refIntensity > m.cfg.RefMovingFloor && perfIntensity < m.cfg.IdleCeiling {
		score *= m.cfg.IdleVsMovingFactor
		penalized = true
	}
	if perfIntensity < m.cfg.IdleCeiling {
		score *= m.cfg.IdleFactor
		penalized = true
	}

	if score < 0 {
		score = 0
	}

	return MovementResult{
		Score:              score,
		PoseSimilarity:     poseSimilarity,
		Synchrony:          synchrony,
		PerformerIntensity: perfIntensity,
		ReferenceIntensity: refIntensity,
		Penalized:          penalized,
	}
}

// armPresent checks that enough arm landmarks are visible to trust the
// comparison.
func (m *MovementComparer) armPresent(p *Pose) bool {
	visible := 0
	for _, idx := range armLandmarks {
		if p[idx].Visibility > m.cfg.MinVisibility {
			visible++
		}
	}
	return visible >= m.cfg.MinVisibleArm
}

// intensity maps the average inter-frame angular velocity onto [0, 1].
func (m *MovementComparer) intensity(curr, prev [8]float64) float64 {
	var sum float64
	for i := range curr {
		sum += AngleDifference(curr[i], prev[i])
	}
	avg := sum / float64(len(curr))

	normalized := avg / m.cfg.MaxDegreesPerFrame
	if normalized > 1 {
		normalized = 1
	}
	return normalized
}

// armAngles computes the four tracked angles per side: shoulder, elbow,
// arm raise, and wrist.
func armAngles(p *Pose) [8]float64 {
	leftDown := offsetY(p[LeftShoulder], syntheticOffset)
	rightDown := offsetY(p[RightShoulder], syntheticOffset)

	return [8]float64{
		VertexAngle(p[LeftElbow], p[LeftShoulder], p[LeftHip]),
		VertexAngle(p[LeftShoulder], p[LeftElbow], p[LeftWrist]),
		VertexAngle(leftDown, p[LeftShoulder], p[LeftElbow]),
		VertexAngle(p[LeftElbow], p[LeftWrist], p[LeftIndex]),
		VertexAngle(p[RightElbow], p[RightShoulder], p[RightHip]),
		VertexAngle(p[RightShoulder], p[RightElbow], p[RightWrist]),
		VertexAngle(rightDown, p[RightShoulder], p[RightElbow]),
		VertexAngle(p[RightElbow], p[RightWrist], p[RightIndex]),
	}
}
