package repair

import (
	"errors"
	"math"
	"testing"
)

func TestCentroid(t *testing.T) {
	tests := []struct {
		name   string
		points []Vec3
		want   Vec3
	}{
		{
			name:   "empty slice",
			points: []Vec3{},
			want:   Vec3{},
		},
		{
			name:   "single point",
			points: []Vec3{{X: 1, Y: 2, Z: 3}},
			want:   Vec3{X: 1, Y: 2, Z: 3},
		},
		{
			name:   "symmetric pair cancels",
			points: []Vec3{{X: 1, Y: -2, Z: 0.5}, {X: -1, Y: 2, Z: -0.5}},
			want:   Vec3{},
		},
		{
			name:   "mean of axis unit vectors",
			points: []Vec3{{X: 3, Y: 0, Z: 0}, {X: 0, Y: 3, Z: 0}, {X: 0, Y: 0, Z: 3}},
			want:   Vec3{X: 1, Y: 1, Z: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Centroid(tt.points)
			if !vecsEqual(got, tt.want) {
				t.Errorf("Centroid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProjectToSphere(t *testing.T) {
	points := []Vec3{
		{X: 0.08, Y: 0, Z: 0.02},
		{X: 0, Y: -0.05, Z: 0.09},
		{X: -0.03, Y: 0.03, Z: -0.04},
	}
	origin := Vec3{Z: 0.02}

	unit, err := ProjectToSphere(points, origin)
	if err != nil {
		t.Fatalf("ProjectToSphere: %v", err)
	}
	if len(unit) != len(points) {
		t.Fatalf("len = %d, want %d", len(unit), len(points))
	}
	for i, u := range unit {
		if !almostEqual(u.Norm(), 1) {
			t.Errorf("point %d norm = %g, want 1", i, u.Norm())
		}
		// Projection must preserve the direction from the origin.
		dir := points[i].Sub(origin)
		if u.Dot(dir) <= 0 {
			t.Errorf("point %d projected opposite its direction", i)
		}
	}
}

func TestProjectToSphereDegenerate(t *testing.T) {
	points := []Vec3{
		{X: 0.08, Y: 0, Z: 0},
		{}, // unplaced sensor at the origin
	}

	_, err := ProjectToSphere(points, Vec3{})
	if !errors.Is(err, ErrGeometry) {
		t.Fatalf("expected ErrGeometry, got %v", err)
	}
}

func TestCheckPlaced(t *testing.T) {
	if err := CheckPlaced([]Vec3{{X: 0.1}, {Y: -0.1}}); err != nil {
		t.Fatalf("expected placed positions to pass, got %v", err)
	}
	err := CheckPlaced([]Vec3{{X: 0.1}, {X: 1e-9}})
	if !errors.Is(err, ErrGeometry) {
		t.Fatalf("expected ErrGeometry for near-zero norm, got %v", err)
	}
}

func TestPairwiseCosines(t *testing.T) {
	a := []Vec3{{X: 1}, {Y: 1}}
	b := []Vec3{{X: 1}, {X: -1}, {Z: 1}}

	cos := PairwiseCosines(a, b)

	rows, cols := cos.Dims()
	if rows != 2 || cols != 3 {
		t.Fatalf("dims = (%d, %d), want (2, 3)", rows, cols)
	}

	want := [][]float64{
		{1, -1, 0},
		{0, 0, 0},
	}
	for i := range want {
		for j := range want[i] {
			if !almostEqual(cos.At(i, j), want[i][j]) {
				t.Errorf("cos[%d][%d] = %g, want %g", i, j, cos.At(i, j), want[i][j])
			}
		}
	}
}

func TestPairwiseCosinesClamped(t *testing.T) {
	// Accumulated rounding can push dot products of unit vectors just past
	// 1; the matrix must stay inside [-1, 1].
	v := Vec3{X: 1 / math.Sqrt(3), Y: 1 / math.Sqrt(3), Z: 1 / math.Sqrt(3)}
	cos := PairwiseCosines([]Vec3{v}, []Vec3{v})
	if c := cos.At(0, 0); c > 1 || c < -1 {
		t.Fatalf("cosine %g outside [-1, 1]", c)
	}
}
