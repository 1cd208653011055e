package adapters

import (
	"context"
	"errors"
	"time"
	"wearsync/internal/models"
	"wearsync/internal/providers"
	"wearsync/internal/services"
	"wearsync/internal/structures"

	gobreaker "github.com/sony/gobreaker/v2"
)

const breakerName = "provider"

// BreakerProvider guards a Provider with a circuit breaker. Only transient
// failures count against the circuit; an open circuit is reported as
// transient so the fetcher backs off and retries.
type BreakerProvider struct {
	next    services.Provider
	cb      *gobreaker.CircuitBreaker[any]
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

func NewBreakerProvider(next services.Provider, conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) *BreakerProvider {
	bc := conf.Breaker
	metrics.SetBreakerState(breakerName, stateToInt(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= bc.FailureRatio {
				logger.Warnf(providers.TypeProvider, "Opening provider circuit: %d of %d requests failed", counts.TotalFailures, counts.Requests)
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Infof(providers.TypeProvider, "Circuit %s: %s -> %s", name, from, to)
			metrics.SetBreakerState(name, stateToInt(to))
			metrics.IncBreakerTransitions(name, from.String(), to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || models.IsRejected(err) || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerProvider{next: next, cb: cb, logger: logger, metrics: metrics}
}

// NewProvider builds the provider chain configured for the connection.
func NewProvider(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) services.Provider {
	rest := NewRestProvider(conf, logger)
	if !conf.Breaker.Enabled {
		return rest
	}
	return NewBreakerProvider(rest, conf, logger, metrics)
}

func (b *BreakerProvider) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerProvider) QueryPoints(ctx context.Context, metric models.MetricType, start, end time.Time) ([]models.DataPoint[float64], error) {
	return guarded(b, func() ([]models.DataPoint[float64], error) {
		return b.next.QueryPoints(ctx, metric, start, end)
	})
}

func (b *BreakerProvider) QueryLastKnownScalar(ctx context.Context, field models.ProfileField) (*models.DataPoint[float64], error) {
	return guarded(b, func() (*models.DataPoint[float64], error) {
		return b.next.QueryLastKnownScalar(ctx, field)
	})
}

func (b *BreakerProvider) QuerySessionList(ctx context.Context, start, end time.Time) ([]models.SessionBundle, error) {
	return guarded(b, func() ([]models.SessionBundle, error) {
		return b.next.QuerySessionList(ctx, start, end)
	})
}

func (b *BreakerProvider) QueryDetailedSubseries(ctx context.Context, sessionID string, t models.SubseriesType, start, end time.Time) ([]models.DataPoint[float64], error) {
	return guarded(b, func() ([]models.DataPoint[float64], error) {
		return b.next.QueryDetailedSubseries(ctx, sessionID, t, start, end)
	})
}

func guarded[T any](b *BreakerProvider, fn func() (T, error)) (T, error) {
	var zero T
	result, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			b.logger.Debugf(providers.TypeProvider, "Provider call short-circuited: %s", err)
			return zero, models.Transient(err)
		}
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, nil
	}
	return typed, nil
}

func stateToInt(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
