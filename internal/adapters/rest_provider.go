// Package adapters binds the sync engine to concrete provider and backend
// endpoints.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"wearsync/internal/models"
	"wearsync/internal/providers"
	"wearsync/internal/structures"

	json "github.com/goccy/go-json"
)

const maxErrorBody = 512

type pointsResponse struct {
	Points []models.DataPoint[float64] `json:"points"`
}

type scalarResponse struct {
	Point *models.DataPoint[float64] `json:"point"`
}

type sessionsResponse struct {
	Sessions []models.SessionBundle `json:"sessions"`
}

// RestProvider polls a provider bridge exposing health data over JSON:
//
//	GET /v1/points/{metric}?start=&end=
//	GET /v1/profile/{field}/latest
//	GET /v1/sessions?start=&end=
//	GET /v1/sessions/{id}/subseries/{type}?start=&end=
//
// Timestamps are RFC 3339. 401, 403 and other client errors are rejections;
// 408, 429, 5xx and transport failures are transient.
type RestProvider struct {
	baseURL string
	token   string
	client  *http.Client
	logger  providers.Logger
}

func NewRestProvider(conf *structures.Config, logger providers.Logger) *RestProvider {
	return &RestProvider{
		baseURL: strings.TrimRight(conf.Connection.ProviderURL, "/"),
		token:   conf.Connection.AccessToken,
		client:  &http.Client{Timeout: conf.Connection.RequestTimeout},
		logger:  logger,
	}
}

func rangeQuery(start, end time.Time) url.Values {
	q := url.Values{}
	q.Set("start", start.UTC().Format(time.RFC3339Nano))
	q.Set("end", end.UTC().Format(time.RFC3339Nano))
	return q
}

func (p *RestProvider) QueryPoints(ctx context.Context, metric models.MetricType, start, end time.Time) ([]models.DataPoint[float64], error) {
	var resp pointsResponse
	path := "/v1/points/" + url.PathEscape(string(metric))
	if err := p.get(ctx, path, rangeQuery(start, end), &resp); err != nil {
		return nil, err
	}
	return resp.Points, nil
}

func (p *RestProvider) QueryLastKnownScalar(ctx context.Context, field models.ProfileField) (*models.DataPoint[float64], error) {
	var resp scalarResponse
	path := "/v1/profile/" + url.PathEscape(string(field)) + "/latest"
	if err := p.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Point, nil
}

func (p *RestProvider) QuerySessionList(ctx context.Context, start, end time.Time) ([]models.SessionBundle, error) {
	var resp sessionsResponse
	if err := p.get(ctx, "/v1/sessions", rangeQuery(start, end), &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

func (p *RestProvider) QueryDetailedSubseries(ctx context.Context, sessionID string, t models.SubseriesType, start, end time.Time) ([]models.DataPoint[float64], error) {
	var resp pointsResponse
	path := "/v1/sessions/" + url.PathEscape(sessionID) + "/subseries/" + url.PathEscape(string(t))
	if err := p.get(ctx, path, rangeQuery(start, end), &resp); err != nil {
		return nil, err
	}
	return resp.Points, nil
}

func (p *RestProvider) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	reqURL := p.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return models.Rejected(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return models.Transient(fmt.Errorf("GET %s: %w", path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{Method: http.MethodGet, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		p.logger.Debugf(providers.TypeProvider, "%s", statusErr)
		return classifyStatus(statusErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return models.Transient(fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

// StatusError is a non-2xx answer from an upstream HTTP endpoint.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

func classifyStatus(err *StatusError) error {
	if retryableStatus(err.Code) {
		return models.Transient(err)
	}
	return models.Rejected(err)
}

// IsStatus reports whether err carries an upstream status code equal to code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
