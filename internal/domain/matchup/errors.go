package matchup

import (
	"fmt"

	"github.com/okian/calcutta/internal/domain/model"
)

// Sentinel kinds for matchup errors.
var (
	ErrMissingOdds = fmt.Errorf("%w: team has no odds for the node tier", model.ErrIntegrity)
	ErrInvalidPot  = fmt.Errorf("%w: smart pot is not a finite non-negative number", model.ErrInsufficientData)
)
