package repair

// Modality identifies the physical measurement model of a sensor and selects
// the interpolation solver used to repair it.
type Modality int

const (
	// Electric sensors measure scalar potentials (EEG-style electrodes).
	// Their geometry is a 3D position only.
	Electric Modality = iota

	// Magnetic sensors measure one field component along their orientation
	// (MEG-style magnetometers). Their geometry is a position plus a unit
	// orientation vector.
	Magnetic

	// Other marks channels outside the repairable modalities (trigger,
	// stimulus, reference lines). They are never repaired and never used
	// as donors.
	Other
)

// String returns the lowercase modality name.
func (m Modality) String() string {
	switch m {
	case Electric:
		return "electric"
	case Magnetic:
		return "magnetic"
	default:
		return "other"
	}
}

// Sensor describes one channel of a recording: identity, measurement model,
// fixed geometry and its current good/bad status. Position and Orientation
// are in meters in head coordinates and are treated as immutable once a
// Recording is assembled; only the Bad flag changes.
type Sensor struct {
	Name        string
	Modality    Modality
	Position    Vec3
	Orientation Vec3 // unit measurement direction, magnetic sensors only
	Bad         bool
}

// OrientedPoint is the geometry handed to a solver: a sensor location with
// its unit measurement orientation. Electric solvers ignore the orientation.
type OrientedPoint struct {
	Position    Vec3
	Orientation Vec3
}

// Outcome tags the overall result of a repair call so callers can branch on
// it instead of matching log text.
type Outcome int

const (
	// OutcomeNoOp means no channel data was modified (no bad channels, or
	// none of the bad channels had donors).
	OutcomeNoOp Outcome = iota

	// OutcomeRepaired means at least one bad channel's data was replaced.
	OutcomeRepaired
)

// NoticeKind classifies a non-fatal quality notice emitted during repair.
type NoticeKind int

const (
	// NoticeNoBadChannels: the bad set was empty, nothing to do.
	NoticeNoBadChannels NoticeKind = iota

	// NoticeNoDonors: a modality had bad channels but zero good channels,
	// so its bad channels were left untouched.
	NoticeNoDonors

	// NoticeCoincidentSensors: two donor sensors share (nearly) the same
	// position; regularization keeps the solve stable but precision may
	// degrade.
	NoticeCoincidentSensors

	// NoticeConditioning: the interpolation system was ill-conditioned and
	// the solution relies on the regularization term.
	NoticeConditioning
)

// Notice is a structured non-fatal warning. Message is operator-facing text;
// tests and callers should branch on Kind and Modality.
type Notice struct {
	Kind     NoticeKind
	Modality Modality
	Message  string
}

// Report summarizes a repair call: the tagged outcome, any quality notices,
// and the names of the channels whose data was replaced.
type Report struct {
	Outcome  Outcome
	Notices  []Notice
	Repaired []string
}

// HasNotice reports whether a notice of the given kind was emitted.
func (r *Report) HasNotice(kind NoticeKind) bool {
	for _, n := range r.Notices {
		if n.Kind == kind {
			return true
		}
	}
	return false
}

// SplineConfig tunes the spherical-spline solver for electric sensors.
// Zero values are replaced by the reference defaults.
type SplineConfig struct {
	// Stiffness is the smoothness order of the spline basis (default 4).
	Stiffness int `yaml:"stiffness,omitempty" json:"stiffness,omitempty"`

	// Terms is the number of Legendre series terms (default 50).
	Terms int `yaml:"terms,omitempty" json:"terms,omitempty"`

	// Alpha is the diagonal regularization added to the donor-donor matrix
	// (default 1e-5).
	Alpha float64 `yaml:"alpha,omitempty" json:"alpha,omitempty"`
}

// HarmonicConfig tunes the spherical-harmonic solver for magnetic sensors.
type HarmonicConfig struct {
	// Degree is the maximum spherical-harmonic degree of the internal field
	// expansion (default 4, giving Degree*(Degree+2) basis terms).
	Degree int `yaml:"degree,omitempty" json:"degree,omitempty"`
}

// Config carries all solver tuning constants. Overriding the defaults is
// rarely necessary.
type Config struct {
	Spline   SplineConfig   `yaml:"spline,omitempty" json:"spline,omitempty"`
	Harmonic HarmonicConfig `yaml:"harmonic,omitempty" json:"harmonic,omitempty"`

	// Origin optionally pins the sphere-projection origin to a fixed head
	// center. When nil, the centroid of the good sensors of the modality
	// being solved is used.
	Origin *Vec3 `yaml:"origin,omitempty" json:"origin,omitempty"`
}

// Default tuning constants. The correlation thresholds in the test suite
// depend on them.
const (
	DefaultSplineStiffness = 4
	DefaultSplineTerms     = 50
	DefaultSplineAlpha     = 1e-5
	DefaultHarmonicDegree  = 4
)

// DefaultConfig returns the standard tuning constants.
func DefaultConfig() *Config {
	return &Config{
		Spline: SplineConfig{
			Stiffness: DefaultSplineStiffness,
			Terms:     DefaultSplineTerms,
			Alpha:     DefaultSplineAlpha,
		},
		Harmonic: HarmonicConfig{
			Degree: DefaultHarmonicDegree,
		},
	}
}

// applyDefaults fills zero-valued fields with the standard defaults.
func (c *Config) applyDefaults() {
	if c.Spline.Stiffness == 0 {
		c.Spline.Stiffness = DefaultSplineStiffness
	}
	if c.Spline.Terms == 0 {
		c.Spline.Terms = DefaultSplineTerms
	}
	if c.Spline.Alpha == 0 {
		c.Spline.Alpha = DefaultSplineAlpha
	}
	if c.Harmonic.Degree == 0 {
		c.Harmonic.Degree = DefaultHarmonicDegree
	}
}
