package pose

import (
	"errors"
	"math"
	"testing"
)

// standingPose returns a plausible upright figure in normalized image
// coordinates (Y grows downward), fully visible.
func standingPose() []Landmark {
	lm := make([]Landmark, NumLandmarks)
	set := func(idx int, x, y float64) {
		lm[idx] = Landmark{X: x, Y: y, Visibility: 1}
	}

	set(Nose, 0.50, 0.10)
	set(LeftShoulder, 0.60, 0.25)
	set(RightShoulder, 0.40, 0.25)
	set(LeftElbow, 0.63, 0.40)
	set(RightElbow, 0.37, 0.40)
	set(LeftWrist, 0.65, 0.55)
	set(RightWrist, 0.35, 0.55)
	set(LeftIndex, 0.66, 0.58)
	set(RightIndex, 0.34, 0.58)
	set(LeftHip, 0.57, 0.55)
	set(RightHip, 0.43, 0.55)
	set(LeftKnee, 0.57, 0.75)
	set(RightKnee, 0.43, 0.75)
	set(LeftAnkle, 0.57, 0.92)
	set(RightAnkle, 0.43, 0.92)
	set(LeftFootIndex, 0.60, 0.96)
	set(RightFootIndex, 0.40, 0.96)

	return lm
}

func TestFromLandmarksWrongCount(t *testing.T) {
	calc := NewCalculator()

	for _, n := range []int{0, 10, 32, 34} {
		_, err := calc.FromLandmarks(make([]Landmark, n))
		if err == nil {
			t.Fatalf("expected error for %d landmarks", n)
		}
		var shapeErr *InputShapeError
		if !errors.As(err, &shapeErr) {
			t.Fatalf("expected InputShapeError, got %T", err)
		}
		if shapeErr.Got != n {
			t.Errorf("InputShapeError.Got = %d, want %d", shapeErr.Got, n)
		}
	}
}

func TestAnglesInRange(t *testing.T) {
	calc := NewCalculator()

	angles, err := calc.FromLandmarks(standingPose())
	if err != nil {
		t.Fatalf("FromLandmarks: %v", err)
	}

	for i := 0; i < int(NumAngles); i++ {
		a := angles[i]
		if math.IsNaN(a) || a < 0 || a > 180 {
			t.Errorf("angle %s = %f, want [0, 180]", AngleIndex(i), a)
		}
	}
}

func TestAnglesDeterministic(t *testing.T) {
	calc := NewCalculator()
	lm := standingPose()

	first, err := calc.FromLandmarks(lm)
	if err != nil {
		t.Fatalf("FromLandmarks: %v", err)
	}
	second, err := calc.FromLandmarks(lm)
	if err != nil {
		t.Fatalf("FromLandmarks: %v", err)
	}

	if first != second {
		t.Errorf("same input produced different angle sets:\n%v\n%v", first, second)
	}
}

func TestVertexAngle(t *testing.T) {
	origin := Landmark{}
	tests := []struct {
		name string
		a, c Landmark
		want float64
	}{
		{"right angle", Landmark{X: 1}, Landmark{Y: 1}, 90},
		{"straight line", Landmark{X: 1}, Landmark{X: -1}, 180},
		{"same direction", Landmark{X: 1}, Landmark{X: 2}, 0},
		{"forty five", Landmark{X: 1}, Landmark{X: 1, Y: 1}, 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VertexAngle(tt.a, origin, tt.c)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("VertexAngle = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestVertexAngleDegenerate(t *testing.T) {
	origin := Landmark{}
	if got := VertexAngle(origin, origin, Landmark{X: 1}); got != 0 {
		t.Errorf("degenerate ray: got %f, want 0", got)
	}
}

func TestAngleDifference(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{0, 0, 0},
		{90, 45, 45},
		{5, 355, 10},
		{355, 5, 10},
		{0, 180, 180},
		{170, 190, 20},
		{359, 1, 2},
	}

	for _, tt := range tests {
		got := AngleDifference(tt.a, tt.b)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("AngleDifference(%f, %f) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
		// Symmetric by definition.
		if rev := AngleDifference(tt.b, tt.a); math.Abs(rev-got) > 1e-9 {
			t.Errorf("AngleDifference not symmetric: %f vs %f", got, rev)
		}
	}
}

func TestArmRaiseTracksElevation(t *testing.T) {
	calc := NewCalculator()

	down := standingPose()
	downAngles, err := calc.FromLandmarks(down)
	if err != nil {
		t.Fatalf("FromLandmarks: %v", err)
	}

	// Raise the left arm straight overhead.
	raised := standingPose()
	raised[LeftElbow] = Landmark{X: 0.60, Y: 0.10, Visibility: 1}
	raised[LeftWrist] = Landmark{X: 0.60, Y: 0.00, Visibility: 1}
	raisedAngles, err := calc.FromLandmarks(raised)
	if err != nil {
		t.Fatalf("FromLandmarks: %v", err)
	}

	if raisedAngles[AngleLeftArmRaise] <= downAngles[AngleLeftArmRaise]+90 {
		t.Errorf("arm raise barely moved: down=%f raised=%f",
			downAngles[AngleLeftArmRaise], raisedAngles[AngleLeftArmRaise])
	}
}

func TestVisibilityClamped(t *testing.T) {
	lm := standingPose()
	lm[Nose].Visibility = 1.7
	lm[LeftWrist].Visibility = -0.3

	p, err := FromSlice(lm)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	if p[Nose].Visibility != 1 {
		t.Errorf("visibility not clamped high: %f", p[Nose].Visibility)
	}
	if p[LeftWrist].Visibility != 0 {
		t.Errorf("visibility not clamped low: %f", p[LeftWrist].Visibility)
	}
}

func TestAngleIndexString(t *testing.T) {
	if got := AngleLeftElbow.String(); got != "left_elbow" {
		t.Errorf("String() = %q, want left_elbow", got)
	}
	if got := AngleIndex(99).String(); got != "unknown" {
		t.Errorf("out of range String() = %q, want unknown", got)
	}
}
