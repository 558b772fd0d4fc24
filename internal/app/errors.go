package service

import (
	"fmt"

	"github.com/okian/calcutta/internal/domain/model"
)

// Sentinel kinds for service errors.
var (
	ErrDuplicateTeam = fmt.Errorf("%w: team id repeated in one push", model.ErrDataShape)
	ErrUnknownRegion = fmt.Errorf("%w: region label not in the season", model.ErrIntegrity)
)
