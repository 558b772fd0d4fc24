package repository

import (
	"errors"
	"fmt"

	"github.com/okian/calcutta/internal/domain/model"
)

// Sentinel kinds for repository errors.
var (
	ErrNotFound    = errors.New("team not found")
	ErrUnknownTeam = fmt.Errorf("%w: auction change for unknown team", model.ErrIntegrity)
	ErrClosed      = errors.New("store closed")
)
