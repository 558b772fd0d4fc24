package ingest

import (
	"errors"
	"fmt"

	"github.com/okian/calcutta/internal/domain/model"
)

// Error kinds for CSV decoding. All are data-shape failures.
var (
	ErrMissingColumn = fmt.Errorf("%w: missing column", model.ErrDataShape)
	ErrBadValue      = fmt.Errorf("%w: bad value", model.ErrDataShape)
	ErrEmptyFile     = fmt.Errorf("%w: no header row", model.ErrDataShape)
)

// ErrPush reports a non-2xx answer from a remote server.
var ErrPush = errors.New("push failed")
