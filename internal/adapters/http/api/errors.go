package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/calcutta/internal/adapters/repository"
	"github.com/okian/calcutta/internal/domain/auction"
	"github.com/okian/calcutta/internal/domain/model"
	"github.com/okian/calcutta/internal/domain/ranking"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// classify picks the HTTP status and error code for err. Specific sentinels
// win over the taxonomy roots they wrap.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, auction.ErrLotNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, auction.ErrLotSold):
		return http.StatusConflict, "lot_sold"
	case errors.Is(err, auction.ErrLockTimeout):
		return http.StatusConflict, "lock_timeout"
	case errors.Is(err, ranking.ErrNotBuilt):
		return http.StatusConflict, "not_built"
	case errors.Is(err, model.ErrIntegrity):
		return http.StatusConflict, "integrity"
	case errors.Is(err, model.ErrDataShape):
		return http.StatusUnprocessableEntity, "data_shape"
	case errors.Is(err, model.ErrInsufficientData):
		return http.StatusUnprocessableEntity, "insufficient_data"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
