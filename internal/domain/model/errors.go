package model

import "errors"

// Error taxonomy roots. Package-level sentinels wrap one of these so callers
// can classify a failure with errors.Is.
var (
	// ErrIntegrity marks inconsistent inputs: a team expected in a map or a
	// bracket slot is absent. Fatal for the current computation cycle.
	ErrIntegrity = errors.New("integrity error")
	// ErrDataShape marks malformed or missing fields on ingestion.
	ErrDataShape = errors.New("data shape error")
	// ErrInsufficientData marks an empty population or zero divisor.
	ErrInsufficientData = errors.New("insufficient data")
)

// Kind returns a short machine-readable name for the taxonomy root of err,
// or "internal" when err belongs to none of them.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrIntegrity):
		return "integrity"
	case errors.Is(err, ErrDataShape):
		return "data_shape"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	default:
		return "internal"
	}
}
