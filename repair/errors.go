package repair

import "errors"

// Error taxonomy for the repair pipeline. All fatal failures wrap one of
// these sentinels so callers can branch with errors.Is; non-fatal quality
// conditions are reported as Notices, never as errors.
var (
	// ErrNotPreloaded is returned when the recording's data buffer is not
	// fully materialized in memory.
	ErrNotPreloaded = errors.New("data buffer not preloaded")

	// ErrInsufficientData is returned when a modality has too few good
	// sensors for its interpolation model to be well-posed.
	ErrInsufficientData = errors.New("not enough good sensors")

	// ErrGeometry is returned when sensor positions or orientations are
	// degenerate (unplaced sensors, zero-length orientation vectors).
	ErrGeometry = errors.New("degenerate sensor geometry")
)
