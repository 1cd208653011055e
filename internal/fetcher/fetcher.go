// Package fetcher runs windowed provider queries with a per-attempt timeout,
// bounded retries and exponential backoff.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"
	"wearsync/internal/models"
	"wearsync/internal/providers"
	"wearsync/internal/structures"

	"golang.org/x/time/rate"
)

const maxBackoff = 30 * time.Second

var errAttemptTimeout = errors.New("attempt timed out")

type Options struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	// RateLimit is the number of attempts allowed per second across all
	// windows of one fetcher. Zero disables throttling.
	RateLimit float64
	Burst     int
}

// RetryingFetcher is shared by every fetch of one connection, so its rate
// limiter bounds the total provider load.
type RetryingFetcher struct {
	opts    Options
	limiter *rate.Limiter
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

func New(opts Options, logger providers.Logger, metrics providers.MetricsProviderInterface) *RetryingFetcher {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	return &RetryingFetcher{
		opts:    opts,
		limiter: rate.NewLimiter(limit, opts.Burst),
		logger:  logger,
		metrics: metrics,
	}
}

func NewRetryingFetcher(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) *RetryingFetcher {
	return New(Options{
		Timeout:    conf.Fetch.Timeout,
		MaxRetries: conf.Fetch.MaxRetries,
		RetryDelay: conf.Fetch.RetryDelay,
		RateLimit:  conf.Fetch.RateLimit,
		Burst:      conf.Fetch.Burst,
	}, logger, metrics)
}

// QueryFunc fetches one window. It must honour ctx; a call that ignores it
// is abandoned once the attempt times out.
type QueryFunc[V any] func(ctx context.Context, w models.Window) ([]V, error)

// RunWindowed queries windows one after another and concatenates the results
// in window order. The first window that fails ends the run: later windows
// are never queried and partial results are discarded.
func RunWindowed[V any](ctx context.Context, f *RetryingFetcher, task string, windows []models.Window, query QueryFunc[V]) ([]V, error) {
	var out []V
	for _, w := range windows {
		points, err := fetchWindow(ctx, f, task, w, query)
		if err != nil {
			return nil, err
		}
		out = append(out, points...)
	}
	return out, nil
}

// Do runs a single window with the same retry policy as RunWindowed.
func Do[V any](ctx context.Context, f *RetryingFetcher, task string, w models.Window, query QueryFunc[V]) ([]V, error) {
	return fetchWindow(ctx, f, task, w, query)
}

func fetchWindow[V any](ctx context.Context, f *RetryingFetcher, task string, w models.Window, query QueryFunc[V]) ([]V, error) {
	label := task + " " + w.String()
	delay := f.opts.RetryDelay
	state := TaskPending

	for tries := 1; ; tries++ {
		if err := f.limiter.Wait(ctx); err != nil {
			f.transition(label, &state, TaskCancelled)
			return nil, cancelled(label, ctx, err)
		}

		f.transition(label, &state, TaskRunning)
		started := time.Now()
		points, err := runAttempt(ctx, f.opts.Timeout, w, query)
		elapsed := time.Since(started)

		if err == nil {
			f.metrics.ObserveWindowFetch(task, "success", elapsed)
			f.transition(label, &state, TaskSucceeded)
			return points, nil
		}

		if ctx.Err() != nil {
			f.metrics.ObserveWindowFetch(task, "cancelled", elapsed)
			f.transition(label, &state, TaskCancelled)
			return nil, cancelled(label, ctx, ctx.Err())
		}

		if models.IsRejected(err) {
			f.metrics.ObserveWindowFetch(task, "rejected", elapsed)
			f.transition(label, &state, TaskPermanentlyFailed)
			f.logger.Errorf(providers.TypeProvider, "Provider rejected %s: %s", label, err)
			return nil, &models.RejectedError{Label: label, Cause: err}
		}

		if tries > f.opts.MaxRetries {
			f.metrics.ObserveWindowFetch(task, "failed", elapsed)
			f.transition(label, &state, TaskPermanentlyFailed)
			f.logger.Errorf(providers.TypeProvider, "Giving up on %s after %d tries: %s", label, tries, err)
			return nil, &models.MaxRetriesError{Label: label, Tries: tries, Last: err}
		}

		f.metrics.ObserveWindowFetch(task, "retry", elapsed)
		f.metrics.IncWindowRetries(task)
		f.transition(label, &state, TaskRetryScheduled)
		f.logger.Warnf(providers.TypeProvider, "Attempt %d/%d for %s failed, retrying in %s: %s", tries, f.opts.MaxRetries+1, label, delay, err)

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				f.transition(label, &state, TaskCancelled)
				return nil, cancelled(label, ctx, ctx.Err())
			}
			delay *= 2
			if delay > maxBackoff {
				delay = maxBackoff
			}
		}
	}
}

// runAttempt runs query in its own goroutine so a call that ignores its
// context cannot hold the window past the timeout.
func runAttempt[V any](ctx context.Context, timeout time.Duration, w models.Window, query QueryFunc[V]) ([]V, error) {
	actx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		points []V
		err    error
	}
	done := make(chan result, 1)
	go func() {
		points, err := query(actx, w)
		done <- result{points: points, err: err}
	}()

	select {
	case r := <-done:
		return r.points, r.err
	case <-actx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w after %s", errAttemptTimeout, timeout)
	}
}

func cancelled(label string, ctx context.Context, cause error) error {
	if ctx.Err() != nil {
		cause = ctx.Err()
	}
	return fmt.Errorf("%s: %w: %w", label, models.ErrCancelled, cause)
}

func (f *RetryingFetcher) transition(label string, state *TaskState, next TaskState) {
	f.logger.Debugf(providers.TypeProvider, "%s: %s -> %s", label, *state, next)
	*state = next
}
