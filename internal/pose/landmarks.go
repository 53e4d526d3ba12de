package pose

import (
	"fmt"
)

// Body landmark indices following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// Landmark is one tracked body keypoint in normalized coordinates.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"` // [0, 1], 0 when the detector omits it
}

// Pose is a full set of body landmarks for one frame. Using a fixed-length
// array makes a wrong-sized detection unrepresentable past the ingest
// boundary.
type Pose [NumLandmarks]Landmark

// InputShapeError reports a landmark array of the wrong length at the ingest
// boundary. Callers treat the tick as a no-op.
type InputShapeError struct {
	Got int
}

func (e *InputShapeError) Error() string {
	return fmt.Sprintf("expected %d landmarks, got %d", NumLandmarks, e.Got)
}

// FromSlice validates a raw landmark slice and converts it into a Pose.
// Visibility values are clamped to [0, 1].
func FromSlice(landmarks []Landmark) (*Pose, error) {
	if len(landmarks) != NumLandmarks {
		return nil, &InputShapeError{Got: len(landmarks)}
	}

	var p Pose
	copy(p[:], landmarks)

	for i := range p {
		if p[i].Visibility < 0 {
			p[i].Visibility = 0
		} else if p[i].Visibility > 1 {
			p[i].Visibility = 1
		}
	}

	return &p, nil
}

// midpoint returns the point halfway between two landmarks. Visibility is the
// lower of the two.
func midpoint(a, b Landmark) Landmark {
	vis := a.Visibility
	if b.Visibility < vis {
		vis = b.Visibility
	}
	return Landmark{
		X:          (a.X + b.X) / 2,
		Y:          (a.Y + b.Y) / 2,
		Z:          (a.Z + b.Z) / 2,
		Visibility: vis,
	}
}
