package services

import (
	"context"
	"time"
	"wearsync/internal/models"
)

// Provider is the source of health data for one connection. Implementations
// mark retryable failures with models.Transient and permanent ones with
// models.Rejected.
type Provider interface {
	QueryPoints(ctx context.Context, metric models.MetricType, start, end time.Time) ([]models.DataPoint[float64], error)
	QueryLastKnownScalar(ctx context.Context, field models.ProfileField) (*models.DataPoint[float64], error)
	QuerySessionList(ctx context.Context, start, end time.Time) ([]models.SessionBundle, error)
	QueryDetailedSubseries(ctx context.Context, sessionID string, t models.SubseriesType, start, end time.Time) ([]models.DataPoint[float64], error)
}

// UploadGateway delivers one combined payload to the backend.
type UploadGateway interface {
	Upload(ctx context.Context, payload *models.UploadPayload) error
}
