package ranking

import (
	"errors"
	"fmt"

	"github.com/okian/calcutta/internal/domain/model"
)

// Sentinel kinds for rank cache errors.
var (
	ErrMissingStat   = fmt.Errorf("%w: required statistic missing", model.ErrDataShape)
	ErrMissingRank   = fmt.Errorf("%w: team missing from ranked field", model.ErrIntegrity)
	ErrDuplicateTeam = fmt.Errorf("%w: duplicate team id", model.ErrIntegrity)
	ErrNoFields      = errors.New("no fields to rank")
	ErrNotBuilt      = errors.New("rank cache not built")
	ErrNotFound      = errors.New("team not ranked")
)
