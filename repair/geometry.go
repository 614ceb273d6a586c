package repair

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// degenerateNorm is the smallest position/orientation norm (meters) treated
// as placed. Unplaced sensors are conventionally left at the origin, so any
// norm below this is a digitization failure rather than a real location.
const degenerateNorm = 1e-6

// Vec3 is a 3D vector in head coordinates (meters).
type Vec3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Centroid returns the arithmetic mean of the given points, or the zero
// vector for an empty slice.
func Centroid(points []Vec3) Vec3 {
	if len(points) == 0 {
		return Vec3{}
	}
	var sum Vec3
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(points)))
}

// CheckPlaced verifies that every position has a usable norm, failing fast
// with ErrGeometry on unplaced sensors so a solve never produces NaNs.
func CheckPlaced(points []Vec3) error {
	for i, p := range points {
		if p.Norm() < degenerateNorm {
			return fmt.Errorf("position %d has near-zero norm: %w", i, ErrGeometry)
		}
	}
	return nil
}

// ProjectToSphere re-centers the points on origin and projects each onto the
// unit sphere. Points that collapse onto the origin after centering cannot
// be projected and yield ErrGeometry.
func ProjectToSphere(points []Vec3, origin Vec3) ([]Vec3, error) {
	unit := make([]Vec3, len(points))
	for i, p := range points {
		c := p.Sub(origin)
		n := c.Norm()
		if n < degenerateNorm {
			return nil, fmt.Errorf("position %d coincides with the projection origin: %w", i, ErrGeometry)
		}
		unit[i] = c.Scale(1 / n)
	}
	return unit, nil
}

// PairwiseCosines returns the (len(a) x len(b)) matrix of cosines of the
// angle between every pair of unit vectors in a and b. Values are clamped to
// [-1, 1] so downstream basis evaluations stay in their defined domain.
func PairwiseCosines(a, b []Vec3) *mat.Dense {
	cos := mat.NewDense(len(a), len(b), nil)
	for i, p := range a {
		for j, q := range b {
			cos.Set(i, j, clampCosine(p.Dot(q)))
		}
	}
	return cos
}

func clampCosine(c float64) float64 {
	if c > 1 {
		return 1
	}
	if c < -1 {
		return -1
	}
	return c
}
