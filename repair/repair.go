package repair

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"
)

// Solver produces the interpolation matrix mapping good-sensor samples to
// estimated samples at the bad sensors for one modality. The matrix has one
// row per bad sensor and one column per good sensor. Notices report
// non-fatal precision concerns.
type Solver interface {
	Solve(good, bad []OrientedPoint) (*mat.Dense, []Notice, error)
}

// Recording is the minimal container the repair core operates on: an ordered
// channel list plus the in-memory data buffer whose rows correspond 1:1, in
// order, to the sensors. Preloaded must be true before repair can run; the
// flag models the caller's lazy-loading state and is not inferred.
type Recording struct {
	Sensors   []Sensor
	Data      *mat.Dense // (n_sensors x n_samples)
	Preloaded bool
}

// NewRecording assembles a Recording and marks it preloaded when a buffer is
// present.
func NewRecording(sensors []Sensor, data *mat.Dense) *Recording {
	return &Recording{Sensors: sensors, Data: data, Preloaded: data != nil}
}

// BadNames returns the names of all channels currently flagged bad.
func (r *Recording) BadNames() []string {
	var names []string
	for _, s := range r.Sensors {
		if s.Bad {
			names = append(names, s.Name)
		}
	}
	return names
}

// partition returns the good and bad sensor indices of one modality. It is
// recomputed on every call so status changes are always reflected.
func (r *Recording) partition(m Modality) (good, bad []int) {
	for i, s := range r.Sensors {
		if s.Modality != m {
			continue
		}
		if s.Bad {
			bad = append(bad, i)
		} else {
			good = append(good, i)
		}
	}
	return good, bad
}

// Options controls a repair call.
type Options struct {
	// ResetBads clears the Bad flag of every repaired channel. Disable it to
	// keep the bookkeeping while still correcting the data, e.g. when
	// chaining further modality-specific processing.
	ResetBads bool

	// Config overrides the solver tuning constants; nil uses the defaults.
	Config *Config
}

// DefaultOptions returns the standard repair behavior: repaired channels are
// reclassified as good.
func DefaultOptions() Options {
	return Options{ResetBads: true}
}

// repairableModalities is the closed set of modalities with a solver. The
// dispatch below is a switch, not a registry: the two models are fixed by
// the physics, not extensible at runtime.
var repairableModalities = [...]Modality{Electric, Magnetic}

func solverFor(m Modality, cfg *Config) Solver {
	switch m {
	case Electric:
		return &SplineSolver{
			Stiffness: cfg.Spline.Stiffness,
			Terms:     cfg.Spline.Terms,
			Alpha:     cfg.Spline.Alpha,
			Origin:    cfg.Origin,
		}
	case Magnetic:
		return &HarmonicSolver{
			Degree: cfg.Harmonic.Degree,
			Origin: cfg.Origin,
		}
	default:
		return nil
	}
}

// RepairBads reconstructs the data of every bad channel from the good
// channels of the same modality and overwrites the bad rows of the buffer in
// place. Good rows are never modified.
//
// All interpolation matrices are computed before any row is written, so a
// solver failure aborts the whole call with the buffer untouched and the
// caller never receives silently partially-repaired data. Per-modality
// conditions that can be isolated safely (no donors at all) are reported as
// notices instead.
func RepairBads(rec *Recording, opts Options) (*Report, error) {
	if rec == nil {
		return nil, fmt.Errorf("nil recording")
	}
	if !rec.Preloaded || rec.Data == nil {
		return nil, fmt.Errorf("cannot repair bad channels: %w", ErrNotPreloaded)
	}
	rows, nSamples := rec.Data.Dims()
	if rows != len(rec.Sensors) {
		return nil, fmt.Errorf("data buffer has %d rows for %d sensors", rows, len(rec.Sensors))
	}

	cfg := DefaultConfig()
	if opts.Config != nil {
		c := *opts.Config
		cfg = &c
	}
	cfg.applyDefaults()

	report := &Report{Outcome: OutcomeNoOp}

	if len(rec.BadNames()) == 0 {
		log.Printf("[REPAIR] no bad channels, doing nothing")
		report.Notices = append(report.Notices, Notice{
			Kind:    NoticeNoBadChannels,
			Message: "no bad channels to repair",
		})
		return report, nil
	}

	// Solve phase: build every interpolation matrix before touching data.
	type modalityPlan struct {
		modality Modality
		good     []int
		bad      []int
		weights  *mat.Dense
	}
	var plans []modalityPlan
	for _, m := range repairableModalities {
		good, bad := rec.partition(m)
		if len(bad) == 0 {
			continue
		}
		if len(good) == 0 {
			log.Printf("[REPAIR] %s: %d bad channels but no good donors, leaving them untouched", m, len(bad))
			report.Notices = append(report.Notices, Notice{
				Kind:     NoticeNoDonors,
				Modality: m,
				Message:  fmt.Sprintf("no good %s channels available to repair %d bad ones", m, len(bad)),
			})
			continue
		}

		weights, notices, err := solverFor(m, cfg).Solve(rec.orientedPoints(good), rec.orientedPoints(bad))
		if err != nil {
			return nil, fmt.Errorf("solving %s interpolation: %w", m, err)
		}
		report.Notices = append(report.Notices, notices...)
		plans = append(plans, modalityPlan{modality: m, good: good, bad: bad, weights: weights})
	}

	// Apply phase: replacement rows are the weight matrix times the good
	// sub-block, broadcast across all samples.
	for _, p := range plans {
		goodBlock := mat.NewDense(len(p.good), nSamples, nil)
		for r, idx := range p.good {
			goodBlock.SetRow(r, rec.Data.RawRowView(idx))
		}

		var replacement mat.Dense
		replacement.Mul(p.weights, goodBlock)

		for r, idx := range p.bad {
			rec.Data.SetRow(idx, replacement.RawRowView(r))
			report.Repaired = append(report.Repaired, rec.Sensors[idx].Name)
			if opts.ResetBads {
				rec.Sensors[idx].Bad = false
			}
		}
		report.Outcome = OutcomeRepaired
		log.Printf("[REPAIR] %s: repaired %d bad channels from %d donors", p.modality, len(p.bad), len(p.good))
	}

	return report, nil
}

func (r *Recording) orientedPoints(idx []int) []OrientedPoint {
	points := make([]OrientedPoint, len(idx))
	for i, j := range idx {
		points[i] = OrientedPoint{
			Position:    r.Sensors[j].Position,
			Orientation: r.Sensors[j].Orientation,
		}
	}
	return points
}
