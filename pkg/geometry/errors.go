package geometry

import "errors"

// Error taxonomy shared by the converters and the grid resampler.
// Callers test with errors.Is; the wrapping message carries the detail.
var (
	// ErrDimension is returned when a dimension is unsupported or two inputs disagree on it.
	ErrDimension = errors.New("dimension error")

	// ErrSingularMatrix is returned when a required matrix inverse does not exist.
	ErrSingularMatrix = errors.New("singular matrix")

	// ErrInvalidSpacing is returned for non-positive spacing.
	ErrInvalidSpacing = errors.New("invalid spacing")

	// ErrInvalidPadding is returned for padding that is not finite or yields an unrepresentable grid.
	ErrInvalidPadding = errors.New("invalid padding")

	// ErrMissingGeometry is returned when a conversion needs image geometry that was not supplied.
	ErrMissingGeometry = errors.New("missing image geometry")
)
