package valuation

import (
	"fmt"

	"github.com/okian/calcutta/internal/domain/model"
)

// Sentinel kinds for valuation errors.
var (
	ErrMissingShare = fmt.Errorf("%w: no historical share for seed group", model.ErrInsufficientData)
	ErrInvalidSeed  = fmt.Errorf("%w: seed outside 1..16", model.ErrDataShape)
	ErrSoldNoPrice  = fmt.Errorf("%w: sold team without a price", model.ErrIntegrity)
	ErrInvalidPot   = fmt.Errorf("%w: average pot is not a positive finite number", model.ErrInsufficientData)
)
