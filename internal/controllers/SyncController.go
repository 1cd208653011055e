package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"
	"wearsync/internal/models"
	"wearsync/internal/providers"
	"wearsync/internal/services"

	json "github.com/goccy/go-json"
)

const maxRequestBodySize = 1 << 16

type SyncController struct {
	logger  providers.Logger
	service services.SyncServiceInterface
}

func NewSyncController(logger providers.Logger, service services.SyncServiceInterface) *SyncController {
	return &SyncController{
		logger:  logger,
		service: service,
	}
}

type intradayRequest struct {
	Metrics   []string         `json:"metrics"`
	StartDate models.LocalDate `json:"startDate"`
	EndDate   models.LocalDate `json:"endDate"`
}

type sessionsRequest struct {
	StartDate   models.LocalDate `json:"startDate"`
	EndDate     models.LocalDate `json:"endDate"`
	MinDuration string           `json:"minDuration"`
}

type profileRequest struct {
	Fields []string `json:"fields"`
}

type profileResponse struct {
	Uploaded bool `json:"uploaded"`
}

type boundaryRequest struct {
	LowerDateBoundary *time.Time `json:"lowerDateBoundary"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	gson, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(gson)
}

// statusFor maps the sync error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidRange), errors.Is(err, models.ErrInvalidBatchDuration):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrCancelled), errors.Is(err, context.Canceled), errors.Is(err, services.ErrQueueClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrRejected), errors.Is(err, models.ErrMaxRetriesExceeded), errors.Is(err, models.ErrUploadFailed):
		// exhausted retries may wrap the last attempt's timeout
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (sc *SyncController) fail(w http.ResponseWriter, entry string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		sc.logger.Errorf(providers.TypePost, "Manual %s sync failed: %s", entry, err)
	} else {
		sc.logger.Warnf(providers.TypePost, "Manual %s sync refused: %s", entry, err)
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func (sc *SyncController) SyncIntraday(w http.ResponseWriter, r *http.Request) {
	var req intradayRequest
	if !decode(w, r, &req) {
		return
	}
	opts := services.IntradayOptions{StartDate: req.StartDate, EndDate: req.EndDate}
	for _, name := range req.Metrics {
		m, err := models.ParseMetricType(name)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		opts.Metrics = append(opts.Metrics, m)
	}

	res, err := sc.service.SyncIntraday(r.Context(), opts)
	if err != nil {
		sc.fail(w, services.EntryIntraday, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (sc *SyncController) SyncSessions(w http.ResponseWriter, r *http.Request) {
	var req sessionsRequest
	if !decode(w, r, &req) {
		return
	}
	opts := services.SessionOptions{StartDate: req.StartDate, EndDate: req.EndDate}
	if req.MinDuration != "" {
		d, err := time.ParseDuration(req.MinDuration)
		if err != nil || d < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid minDuration"})
			return
		}
		opts.MinDuration = d
	}

	res, err := sc.service.SyncSessions(r.Context(), opts)
	if err != nil {
		sc.fail(w, services.EntrySessions, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (sc *SyncController) SyncProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decode(w, r, &req) {
		return
	}
	var opts services.ProfileOptions
	for _, name := range req.Fields {
		f, err := models.ParseProfileField(name)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		opts.Fields = append(opts.Fields, f)
	}

	uploaded, err := sc.service.SyncProfile(r.Context(), opts)
	if err != nil {
		sc.fail(w, services.EntryProfile, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Uploaded: uploaded})
}

// SetBoundary replaces the connection lower date boundary. A null value
// removes it.
func (sc *SyncController) SetBoundary(w http.ResponseWriter, r *http.Request) {
	var req boundaryRequest
	if !decode(w, r, &req) {
		return
	}
	sc.service.SetLowerBoundary(req.LowerDateBoundary)
	sc.logger.Infof(providers.TypePost, "Lower date boundary set to %v", req.LowerDateBoundary)
	w.WriteHeader(http.StatusNoContent)
}

func (sc *SyncController) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sc.service.Status())
}
