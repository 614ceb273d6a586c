package repair

import (
	"math"
)

const epsilon = 1e-9

// almostEqual checks if two floats are equal within epsilon tolerance
func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// vecsEqual checks if two vectors are equal within epsilon tolerance
func vecsEqual(a, b Vec3) bool {
	return almostEqual(a.X, b.X) && almostEqual(a.Y, b.Y) && almostEqual(a.Z, b.Z)
}

// fibonacciSphere generates n deterministic, roughly uniform positions on a
// sphere of the given radius (golden-angle spiral). Used as a synthetic
// sensor array layout.
func fibonacciSphere(n int, radius float64) []Vec3 {
	golden := math.Pi * (3 - math.Sqrt(5))
	points := make([]Vec3, n)
	for i := 0; i < n; i++ {
		z := 1 - 2*(float64(i)+0.5)/float64(n)
		r := math.Sqrt(1 - z*z)
		phi := golden * float64(i)
		points[i] = Vec3{
			X: radius * r * math.Cos(phi),
			Y: radius * r * math.Sin(phi),
			Z: radius * z,
		}
	}
	return points
}

// pearson computes the Pearson correlation coefficient of two equal-length
// sample vectors.
func pearson(a, b []float64) float64 {
	n := float64(len(a))
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= n
	meanB /= n

	var cov, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// dipoleFieldAt returns the field of a magnetic dipole with the given moment
// at source, evaluated at the point at (constant factors dropped).
func dipoleFieldAt(moment, source, at Vec3) Vec3 {
	r := at.Sub(source)
	rn := r.Norm()
	rhat := r.Scale(1 / rn)
	return rhat.Scale(3 * moment.Dot(rhat)).Sub(moment).Scale(1 / (rn * rn * rn))
}

// allFinite reports whether every entry of the slice is a finite number.
func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
