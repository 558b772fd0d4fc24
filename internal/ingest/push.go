package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	service "github.com/okian/calcutta/internal/app"
	"github.com/okian/calcutta/internal/domain/model"
)

// DefaultTimeout bounds one push request.
const DefaultTimeout = 30 * time.Second

// HTTPTarget pushes rows to a running server's REST API.
type HTTPTarget struct {
	baseURL string
	client  *http.Client
}

var _ Target = (*HTTPTarget)(nil)

// NewHTTPTarget returns a target for baseURL, e.g. http://localhost:9080.
func NewHTTPTarget(baseURL string, timeout time.Duration) *HTTPTarget {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTarget{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// PushTeams sends PUT /teams.
func (t *HTTPTarget) PushTeams(ctx context.Context, teams []model.Team) (int, error) {
	var res service.RefreshResult
	err := t.do(ctx, http.MethodPut, "/teams", map[string]any{"teams": teams}, &res)
	return res.Upserted, err
}

// PushHistory sends POST /history.
func (t *HTTPTarget) PushHistory(ctx context.Context, records []model.HistoryRecord) (int, int, error) {
	var res service.HistoryResult
	err := t.do(ctx, http.MethodPost, "/history", map[string]any{"records": records}, &res)
	return res.Added, res.Duplicates, err
}

// WarmRanks sends a synchronous POST /ranks/rebuild.
func (t *HTTPTarget) WarmRanks(ctx context.Context) (uint64, error) {
	var res struct {
		Generation uint64 `json:"generation"`
	}
	err := t.do(ctx, http.MethodPost, "/ranks/rebuild", nil, &res)
	return res.Generation, err
}

func (t *HTTPTarget) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode/100 != 2 {
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &e)
		return fmt.Errorf("%w: %s %s: %d %s: %s", ErrPush, method, path, resp.StatusCode, e.Code, e.Message)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return nil
}
