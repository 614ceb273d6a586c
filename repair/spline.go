package repair

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// coincidentCosine is the cosine above which two distinct donors are treated
// as sharing a position (about 14 microradians apart on the unit sphere).
const coincidentCosine = 1 - 1e-10

// SplineSolver builds spherical-spline interpolation matrices for electric
// (potential) sensors. The basis is a truncated Legendre series in the
// cosine of the inter-sensor angle:
//
//	g(x) = 1/(4pi) * sum_{n=1..Terms} (2n+1) / (n(n+1))^Stiffness * P_n(x)
//
// The donor-donor system is augmented with a ones row/column enforcing the
// zero-sum constraint, so a constant potential is reproduced exactly.
type SplineSolver struct {
	Stiffness int     // smoothness order of the basis (default 4)
	Terms     int     // Legendre series truncation (default 50)
	Alpha     float64 // diagonal regularization (default 1e-5)
	Origin    *Vec3   // fixed projection origin; nil = donor centroid
}

// NewSplineSolver returns a solver with the default tuning constants.
func NewSplineSolver() *SplineSolver {
	return &SplineSolver{
		Stiffness: DefaultSplineStiffness,
		Terms:     DefaultSplineTerms,
		Alpha:     DefaultSplineAlpha,
	}
}

// Solve computes the (len(bad) x len(good)) interpolation matrix mapping
// good-sensor potentials to estimated potentials at the bad sensors.
// Orientations are ignored; only positions matter for potentials.
//
// The augmented system is solved as a linear system (LU), never by explicit
// inversion. An ill-conditioned system downgrades to a NoticeConditioning
// because the Alpha regularization keeps the solution usable.
func (s *SplineSolver) Solve(good, bad []OrientedPoint) (*mat.Dense, []Notice, error) {
	nGood, nBad := len(good), len(bad)
	if nGood < 2 {
		return nil, nil, fmt.Errorf("spherical spline needs at least 2 good sensors, have %d: %w",
			nGood, ErrInsufficientData)
	}

	goodPos := positions(good)
	badPos := positions(bad)
	if err := CheckPlaced(goodPos); err != nil {
		return nil, nil, fmt.Errorf("good sensors: %w", err)
	}
	if err := CheckPlaced(badPos); err != nil {
		return nil, nil, fmt.Errorf("bad sensors: %w", err)
	}

	origin := Centroid(goodPos)
	if s.Origin != nil {
		origin = *s.Origin
	}
	goodUnit, err := ProjectToSphere(goodPos, origin)
	if err != nil {
		return nil, nil, fmt.Errorf("good sensors: %w", err)
	}
	badUnit, err := ProjectToSphere(badPos, origin)
	if err != nil {
		return nil, nil, fmt.Errorf("bad sensors: %w", err)
	}

	var notices []Notice
	cosGG := PairwiseCosines(goodUnit, goodUnit)
	if hasCoincidentPair(cosGG) {
		notices = append(notices, Notice{
			Kind:     NoticeCoincidentSensors,
			Modality: Electric,
			Message:  "coincident donor positions detected; relying on regularization",
		})
	}

	factors := s.basisFactors()

	// Augmented donor-donor system: basis matrix with Alpha on the diagonal,
	// bordered by a ones row/column and a zero corner for the zero-sum
	// constraint.
	c := mat.NewDense(nGood+1, nGood+1, nil)
	for i := 0; i < nGood; i++ {
		for j := 0; j < nGood; j++ {
			v := legendreSeries(cosGG.At(i, j), factors)
			if i == j {
				v += s.Alpha
			}
			c.Set(i, j, v)
		}
		c.Set(i, nGood, 1)
		c.Set(nGood, i, 1)
	}

	// Right-hand side: one augmented cross-basis column per bad sensor.
	cosBG := PairwiseCosines(badUnit, goodUnit)
	rhs := mat.NewDense(nGood+1, nBad, nil)
	for k := 0; k < nBad; k++ {
		for j := 0; j < nGood; j++ {
			rhs.Set(j, k, legendreSeries(cosBG.At(k, j), factors))
		}
		rhs.Set(nGood, k, 1)
	}

	var coeffs mat.Dense
	if err := coeffs.Solve(c, rhs); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil, nil, fmt.Errorf("solving spline system: %w", err)
		}
		notices = append(notices, Notice{
			Kind:     NoticeConditioning,
			Modality: Electric,
			Message:  fmt.Sprintf("spline system ill-conditioned (%v); solution depends on regularization", err),
		})
	}

	// The solved coefficients are the transposed weight matrix; the final
	// constraint row is dropped.
	weights := mat.NewDense(nBad, nGood, nil)
	for k := 0; k < nBad; k++ {
		for j := 0; j < nGood; j++ {
			weights.Set(k, j, coeffs.At(j, k))
		}
	}
	return weights, notices, nil
}

// basisFactors precomputes the Legendre series coefficients. Index n holds
// the coefficient of P_n; index 0 is unused.
func (s *SplineSolver) basisFactors() []float64 {
	factors := make([]float64, s.Terms+1)
	for n := 1; n <= s.Terms; n++ {
		nf := float64(n)
		factors[n] = (2*nf + 1) /
			(math.Pow(nf, float64(s.Stiffness)) * math.Pow(nf+1, float64(s.Stiffness)) * 4 * math.Pi)
	}
	return factors
}

// legendreSeries evaluates sum_n factors[n] * P_n(x) with the three-term
// Legendre recurrence (n+1)P_{n+1} = (2n+1)x P_n - n P_{n-1}.
func legendreSeries(x float64, factors []float64) float64 {
	sum := 0.0
	pPrev, p := 1.0, x
	for n := 1; n < len(factors); n++ {
		sum += factors[n] * p
		nf := float64(n)
		pPrev, p = p, ((2*nf+1)*x*p-nf*pPrev)/(nf+1)
	}
	return sum
}

func hasCoincidentPair(cos *mat.Dense) bool {
	n, _ := cos.Dims()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if cos.At(i, j) >= coincidentCosine {
				return true
			}
		}
	}
	return false
}

func positions(points []OrientedPoint) []Vec3 {
	pos := make([]Vec3, len(points))
	for i, p := range points {
		pos[i] = p.Position
	}
	return pos
}
