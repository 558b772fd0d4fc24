package auction

import (
	"errors"
	"fmt"

	"github.com/okian/calcutta/internal/domain/model"
)

// Sentinel kinds for auction transitions.
var (
	ErrLotNotFound  = errors.New("lot not found")
	ErrLotSold      = errors.New("lot already sold")
	ErrInvalidPrice = fmt.Errorf("%w: sale price must be finite and non-negative", model.ErrDataShape)
	ErrLockTimeout  = errors.New("auction lock not acquired")
)
