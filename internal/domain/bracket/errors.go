package bracket

import (
	"fmt"

	"github.com/okian/calcutta/internal/domain/model"
)

// Sentinel kinds for bracket errors.
var (
	ErrInvalidSeason  = fmt.Errorf("%w: invalid season", model.ErrDataShape)
	ErrRegionMismatch = fmt.Errorf("%w: region labels do not match team data", model.ErrIntegrity)
	ErrUnresolvedSlot = fmt.Errorf("%w: bracket slot does not resolve", model.ErrIntegrity)
)
