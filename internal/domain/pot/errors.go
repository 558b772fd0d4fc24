package pot

import (
	"fmt"

	"github.com/okian/calcutta/internal/domain/model"
)

// Sentinel kinds for pot estimation errors.
var (
	ErrNoReferenceYears = fmt.Errorf("%w: no reference year present in history", model.ErrInsufficientData)
	ErrNoUsableYears    = fmt.Errorf("%w: no history year with a positive pot", model.ErrInsufficientData)
	ErrInvalidRecord    = fmt.Errorf("%w: invalid history record", model.ErrDataShape)
)
