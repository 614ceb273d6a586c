package repair

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// fdStepFraction scales the central-difference step used to evaluate the
// directional field derivative, relative to each sensor's distance from the
// expansion origin.
const fdStepFraction = 1e-4

// HarmonicSolver builds interpolation matrices for magnetic field sensors by
// regressing the measured field onto a truncated internal spherical-harmonic
// expansion and evaluating that expansion's forward model at the bad
// sensors' geometry.
//
// The scalar potential basis is v_lm(r) = Y_lm(theta, phi) / |r|^(l+1) for
// l = 1..Degree, m = -l..l, valid in the source-free region outside the
// head. A sensor measures the field component along its orientation, i.e.
// -d v/dn, evaluated here by central finite differences.
type HarmonicSolver struct {
	Degree int   // maximum expansion degree (default 4)
	Origin *Vec3 // fixed expansion origin; nil = donor centroid
}

// NewHarmonicSolver returns a solver with the default truncation degree.
func NewHarmonicSolver() *HarmonicSolver {
	return &HarmonicSolver{Degree: DefaultHarmonicDegree}
}

// Terms returns the number of basis functions for the configured degree.
func (h *HarmonicSolver) Terms() int {
	return h.Degree * (h.Degree + 2)
}

// Solve computes the (len(bad) x len(good)) interpolation matrix as
// B * pinv(A), where A and B are the forward-model design matrices at the
// good and bad sensors' geometry. The pseudo-inverse is computed by thin
// SVD, so a rank-deficient A (fewer donors than basis terms, colinear
// geometry) still yields a well-defined least-squares mapping.
func (h *HarmonicSolver) Solve(good, bad []OrientedPoint) (*mat.Dense, []Notice, error) {
	nGood, nBad := len(good), len(bad)
	if nGood < 1 {
		return nil, nil, fmt.Errorf("harmonic mapping needs at least 1 good sensor: %w", ErrInsufficientData)
	}

	goodPos := positions(good)
	if err := CheckPlaced(goodPos); err != nil {
		return nil, nil, fmt.Errorf("good sensors: %w", err)
	}
	if err := CheckPlaced(positions(bad)); err != nil {
		return nil, nil, fmt.Errorf("bad sensors: %w", err)
	}

	origin := Centroid(goodPos)
	if h.Origin != nil {
		origin = *h.Origin
	}

	a, err := h.designMatrix(good, origin)
	if err != nil {
		return nil, nil, fmt.Errorf("good sensors: %w", err)
	}
	b, err := h.designMatrix(bad, origin)
	if err != nil {
		return nil, nil, fmt.Errorf("bad sensors: %w", err)
	}

	aPinv, rank, err := pseudoInverse(a)
	if err != nil {
		return nil, nil, fmt.Errorf("inverting design matrix: %w", err)
	}

	var notices []Notice
	if rank < h.Terms() && nGood >= h.Terms() {
		notices = append(notices, Notice{
			Kind:     NoticeConditioning,
			Modality: Magnetic,
			Message:  fmt.Sprintf("design matrix rank %d below basis size %d; degenerate donor geometry", rank, h.Terms()),
		})
	}

	weights := mat.NewDense(nBad, nGood, nil)
	weights.Mul(b, aPinv)
	return weights, notices, nil
}

// designMatrix evaluates the forward model at each sensor: row i, column k
// is the field component along sensor i's orientation produced by a unit
// coefficient on basis function k.
func (h *HarmonicSolver) designMatrix(sensors []OrientedPoint, origin Vec3) (*mat.Dense, error) {
	design := mat.NewDense(len(sensors), h.Terms(), nil)
	for i, s := range sensors {
		rel := s.Position.Sub(origin)
		rad := rel.Norm()
		if rad < degenerateNorm {
			return nil, fmt.Errorf("position %d coincides with the expansion origin: %w", i, ErrGeometry)
		}
		oriNorm := s.Orientation.Norm()
		if oriNorm < degenerateNorm {
			return nil, fmt.Errorf("sensor %d has a zero orientation vector: %w", i, ErrGeometry)
		}
		ori := s.Orientation.Scale(1 / oriNorm)

		step := fdStepFraction * rad
		fwd := rel.Add(ori.Scale(step))
		bwd := rel.Sub(ori.Scale(step))

		k := 0
		for l := 1; l <= h.Degree; l++ {
			for m := -l; m <= l; m++ {
				// B_n = -d v/dn by central difference.
				vp := potentialBasis(l, m, fwd)
				vm := potentialBasis(l, m, bwd)
				design.Set(i, k, -(vp-vm)/(2*step))
				k++
			}
		}
	}
	return design, nil
}

// potentialBasis evaluates v_lm(r) = Y_lm(theta, phi) / |r|^(l+1) with real
// spherical harmonics.
func potentialBasis(l, m int, r Vec3) float64 {
	rad := r.Norm()
	theta := math.Acos(clampCosine(r.Z / rad))
	phi := math.Atan2(r.Y, r.X)
	return realSphericalHarmonic(l, m, theta, phi) / math.Pow(rad, float64(l+1))
}

// realSphericalHarmonic evaluates the real-valued, orthonormal spherical
// harmonic of degree l and order m at colatitude theta and azimuth phi.
func realSphericalHarmonic(l, m int, theta, phi float64) float64 {
	am := m
	if am < 0 {
		am = -am
	}
	p := assocLegendre(l, am, math.Cos(theta))
	norm := math.Sqrt((2*float64(l) + 1) / (4 * math.Pi) * factorialRatio(l, am))
	switch {
	case m > 0:
		return math.Sqrt2 * norm * p * math.Cos(float64(m)*phi)
	case m < 0:
		return math.Sqrt2 * norm * p * math.Sin(float64(am)*phi)
	default:
		return norm * p
	}
}

// factorialRatio returns (l-m)! / (l+m)! computed as a running product to
// avoid overflowing intermediate factorials.
func factorialRatio(l, m int) float64 {
	ratio := 1.0
	for k := l - m + 1; k <= l+m; k++ {
		ratio /= float64(k)
	}
	return ratio
}

// assocLegendre evaluates the associated Legendre function P_l^m(x) for
// m >= 0 with the standard upward recurrences (Condon-Shortley phase).
func assocLegendre(l, m int, x float64) float64 {
	pmm := 1.0
	if m > 0 {
		somx2 := math.Sqrt((1 - x) * (1 + x))
		f := 1.0
		for i := 1; i <= m; i++ {
			pmm *= -f * somx2
			f += 2
		}
	}
	if l == m {
		return pmm
	}
	pmm1 := x * float64(2*m+1) * pmm
	if l == m+1 {
		return pmm1
	}
	var pll float64
	for ll := m + 2; ll <= l; ll++ {
		pll = (x*float64(2*ll-1)*pmm1 - float64(ll+m-1)*pmm) / float64(ll-m)
		pmm, pmm1 = pmm1, pll
	}
	return pll
}

// pseudoInverse computes the Moore-Penrose pseudo-inverse via thin SVD,
// dropping singular values below max(m, n) * eps * sigma_max. It returns the
// pseudo-inverse and the effective rank.
func pseudoInverse(a *mat.Dense) (*mat.Dense, int, error) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, 0, fmt.Errorf("SVD factorization did not converge")
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sigma := svd.Values(nil)

	rows, cols := a.Dims()
	longest := rows
	if cols > longest {
		longest = cols
	}
	tol := 0.0
	if len(sigma) > 0 {
		tol = float64(longest) * machineEpsilon * sigma[0]
	}

	rank := 0
	sigmaInv := make([]float64, len(sigma))
	for i, s := range sigma {
		if s > tol && s > 0 {
			sigmaInv[i] = 1 / s
			rank++
		}
	}

	// pinv = V * Sigma^+ * U^T, assembled by scaling V's columns.
	var scaled mat.Dense
	scaled.Mul(&v, mat.NewDiagDense(len(sigmaInv), sigmaInv))
	pinv := mat.NewDense(cols, rows, nil)
	pinv.Mul(&scaled, u.T())
	return pinv, rank, nil
}

const machineEpsilon = 2.220446049250313e-16
