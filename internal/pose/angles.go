package pose

import (
	"math"
)

// AngleIndex names one of the joint angles derived from a pose.
type AngleIndex int

const (
	AngleLeftElbow AngleIndex = iota
	AngleRightElbow
	AngleLeftShoulder
	AngleRightShoulder
	AngleLeftKnee
	AngleRightKnee
	AngleLeftHip
	AngleRightHip
	AngleLeftAnkle
	AngleRightAnkle
	AngleLeftArmRaise
	AngleRightArmRaise
	AngleTorsoLean
	AngleNeck
	NumAngles
)

var angleNames = [NumAngles]string{
	"left_elbow",
	"right_elbow",
	"left_shoulder",
	"right_shoulder",
	"left_knee",
	"right_knee",
	"left_hip",
	"right_hip",
	"left_ankle",
	"right_ankle",
	"left_arm_raise",
	"right_arm_raise",
	"torso_lean",
	"neck",
}

// String returns the snake_case name of the angle.
func (a AngleIndex) String() string {
	if a < 0 || a >= NumAngles {
		return "unknown"
	}
	return angleNames[a]
}

// AngleSet holds every derived joint angle in degrees [0, 180].
type AngleSet [NumAngles]float64

// syntheticOffset is how far the synthetic reference points sit from their
// anchor landmark along the vertical axis, in normalized coordinates.
const syntheticOffset = 0.5

// Calculator derives joint angles from poses. It is stateless and safe for
// concurrent use.
type Calculator struct{}

// NewCalculator returns a joint angle calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// FromLandmarks validates a raw landmark slice and computes its angle set.
func (c *Calculator) FromLandmarks(landmarks []Landmark) (AngleSet, error) {
	p, err := FromSlice(landmarks)
	if err != nil {
		return AngleSet{}, err
	}
	return c.FromPose(p), nil
}

// FromPose computes the full angle set for a pose. Deterministic and
// side-effect free.
func (c *Calculator) FromPose(p *Pose) AngleSet {
	var out AngleSet

	out[AngleLeftElbow] = VertexAngle(p[LeftShoulder], p[LeftElbow], p[LeftWrist])
	out[AngleRightElbow] = VertexAngle(p[RightShoulder], p[RightElbow], p[RightWrist])

	out[AngleLeftShoulder] = VertexAngle(p[LeftElbow], p[LeftShoulder], p[LeftHip])
	out[AngleRightShoulder] = VertexAngle(p[RightElbow], p[RightShoulder], p[RightHip])

	out[AngleLeftKnee] = VertexAngle(p[LeftHip], p[LeftKnee], p[LeftAnkle])
	out[AngleRightKnee] = VertexAngle(p[RightHip], p[RightKnee], p[RightAnkle])

	out[AngleLeftHip] = VertexAngle(p[LeftShoulder], p[LeftHip], p[LeftKnee])
	out[AngleRightHip] = VertexAngle(p[RightShoulder], p[RightHip], p[RightKnee])

	out[AngleLeftAnkle] = VertexAngle(p[LeftKnee], p[LeftAnkle], p[LeftFootIndex])
	out[AngleRightAnkle] = VertexAngle(p[RightKnee], p[RightAnkle], p[RightFootIndex])

	// Arm raise is measured against a synthetic point straight below the
	// shoulder rather than a third body landmark, so raising one arm reads
	// the same regardless of what the other limb is doing. Image-space Y
	// grows downward.
	leftDown := offsetY(p[LeftShoulder], syntheticOffset)
	rightDown := offsetY(p[RightShoulder], syntheticOffset)
	out[AngleLeftArmRaise] = VertexAngle(leftDown, p[LeftShoulder], p[LeftElbow])
	out[AngleRightArmRaise] = VertexAngle(rightDown, p[RightShoulder], p[RightElbow])

	// Torso lean compares the hip-to-shoulder line against a synthetic
	// point straight above the hip midpoint.
	hipMid := midpoint(p[LeftHip], p[RightHip])
	shoulderMid := midpoint(p[LeftShoulder], p[RightShoulder])
	up := offsetY(hipMid, -syntheticOffset)
	out[AngleTorsoLean] = VertexAngle(up, hipMid, shoulderMid)

	out[AngleNeck] = VertexAngle(p[Nose], shoulderMid, hipMid)

	return out
}

// VertexAngle returns the angle at vertex b between rays b->a and b->c, in
// degrees [0, 180]. Degenerate rays (zero length) yield 0.
func VertexAngle(a, b, c Landmark) float64 {
	abx, aby, abz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	cbx, cby, cbz := c.X-b.X, c.Y-b.Y, c.Z-b.Z

	dot := abx*cbx + aby*cby + abz*cbz
	magAB := math.Sqrt(abx*abx + aby*aby + abz*abz)
	magCB := math.Sqrt(cbx*cbx + cby*cby + cbz*cbz)

	if magAB == 0 || magCB == 0 {
		return 0
	}

	cos := dot / (magAB * magCB)

	// Floating-point rounding can push the cosine a hair outside [-1, 1],
	// which would make Acos return NaN.
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}

	return math.Acos(cos) * 180 / math.Pi
}

// AngleDifference returns the circular distance between two angles in
// degrees, in [0, 180]. Wrap-around is respected: 5 and 355 differ by 10.
func AngleDifference(a, b float64) float64 {
	diff := math.Abs(a - b)
	if diff > 360 {
		diff = math.Mod(diff, 360)
	}
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

func offsetY(l Landmark, dy float64) Landmark {
	return Landmark{X: l.X, Y: l.Y + dy, Z: l.Z, Visibility: l.Visibility}
}
