package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"wearsync/internal/fetcher"
	"wearsync/internal/metadata"
	"wearsync/internal/models"
	"wearsync/internal/providers"
	"wearsync/internal/storage"
	"wearsync/internal/structures"
	"wearsync/internal/timewindow"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	sessionListWindow      = 5 * 24 * time.Hour
	sessionSubseriesWindow = 15 * time.Minute
)

type SyncServiceInterface interface {
	SyncIntraday(ctx context.Context, opts IntradayOptions) (SyncResult, error)
	SyncSessions(ctx context.Context, opts SessionOptions) (SyncResult, error)
	SyncProfile(ctx context.Context, opts ProfileOptions) (bool, error)
	SetLowerBoundary(t *time.Time)
	Status() Status
	Close()
}

// IntradayOptions selects the metrics and local calendar range to sync. No
// metrics means all of them.
type IntradayOptions struct {
	Metrics   []models.MetricType
	StartDate models.LocalDate
	EndDate   models.LocalDate
}

type SessionOptions struct {
	StartDate   models.LocalDate
	EndDate     models.LocalDate
	MinDuration time.Duration
}

// ProfileOptions selects profile fields. No fields means all of them.
type ProfileOptions struct {
	Fields []models.ProfileField
}

// SyncOrchestrator drives the sync of one provider connection. Entry points
// run one at a time in FIFO order, so each observes the committed state of
// the previous one.
type SyncOrchestrator struct {
	scope         string
	zone          *time.Location
	provider      Provider
	gateway       UploadGateway
	kv            storage.PersistentStore
	store         *metadata.Store
	fetcher       *fetcher.RetryingFetcher
	logger        providers.Logger
	metrics       providers.MetricsProviderInterface
	queue         *syncQueue
	runs          *runRegistry
	maxConcurrent int

	mu    sync.RWMutex
	lower *time.Time
	clock func() time.Time
}

func NewSyncOrchestrator(
	conf *structures.Config,
	provider Provider,
	gateway UploadGateway,
	kv storage.PersistentStore,
	f *fetcher.RetryingFetcher,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) (*SyncOrchestrator, error) {
	zone, err := conf.Location()
	if err != nil {
		return nil, fmt.Errorf("connection timezone: %w", err)
	}
	lower, err := conf.LowerBoundary()
	if err != nil {
		return nil, fmt.Errorf("connection lower date boundary: %w", err)
	}

	maxConcurrent := conf.Fetch.MaxConcurrentMetrics
	if maxConcurrent <= 0 {
		maxConcurrent = len(models.IntradayMetrics)
	}

	o := &SyncOrchestrator{
		scope:         conf.Connection.UserScope,
		zone:          zone,
		provider:      provider,
		gateway:       gateway,
		kv:            kv,
		fetcher:       f,
		logger:        logger,
		metrics:       metrics,
		runs:          newRunRegistry(),
		maxConcurrent: maxConcurrent,
		lower:         lower,
		clock:         time.Now,
	}
	o.store = metadata.NewStore(kv, o.scope, zone, logger, o.now)
	o.queue = newSyncQueue(metrics.SetQueueDepth)
	return o, nil
}

// SetClock replaces the time source used for range resolution and
// fingerprint timestamps.
func (o *SyncOrchestrator) SetClock(now func() time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clock = now
}

func (o *SyncOrchestrator) now() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.clock()
}

// SetLowerBoundary changes the earliest syncable instant, for example after
// the provider connection was re-established. Nil removes the bound.
func (o *SyncOrchestrator) SetLowerBoundary(t *time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lower = t
}

func (o *SyncOrchestrator) lowerBoundary() *time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lower
}

func (o *SyncOrchestrator) Status() Status {
	return Status{
		UserScope:     o.scope,
		QueueDepth:    o.queue.Depth(),
		LowerBoundary: o.lowerBoundary(),
		LastRuns:      o.runs.snapshot(),
	}
}

// Close cancels a running invocation and fails queued ones. The store is
// owned by the caller and stays open.
func (o *SyncOrchestrator) Close() {
	o.queue.Close()
}

func (o *SyncOrchestrator) SyncIntraday(ctx context.Context, opts IntradayOptions) (SyncResult, error) {
	return o.invoke(ctx, EntryIntraday, func(ctx context.Context, res *SyncResult) error {
		return o.syncIntraday(ctx, opts, res)
	})
}

func (o *SyncOrchestrator) SyncSessions(ctx context.Context, opts SessionOptions) (SyncResult, error) {
	return o.invoke(ctx, EntrySessions, func(ctx context.Context, res *SyncResult) error {
		return o.syncSessions(ctx, opts, res)
	})
}

// SyncProfile reports whether any profile field changed and was uploaded.
func (o *SyncOrchestrator) SyncProfile(ctx context.Context, opts ProfileOptions) (bool, error) {
	res, err := o.invoke(ctx, EntryProfile, func(ctx context.Context, res *SyncResult) error {
		return o.syncProfile(ctx, opts, res)
	})
	return res.Uploaded, err
}

// invoke queues one entry point run and records its outcome.
func (o *SyncOrchestrator) invoke(ctx context.Context, entry string, run func(ctx context.Context, res *SyncResult) error) (SyncResult, error) {
	var res SyncResult
	var started time.Time

	err := o.queue.Submit(ctx, func(ctx context.Context) error {
		started = time.Now()
		res.InvocationID = uuid.NewString()
		o.logger.Infof(providers.TypeSync, "[%s] %s sync started for %s", res.InvocationID, entry, o.scope)
		return run(ctx, &res)
	})
	if started.IsZero() {
		return res, err
	}

	elapsed := time.Since(started)
	outcome := outcomeOf(res, err)
	o.metrics.IncSyncRuns(entry, outcome)
	o.metrics.ObserveSyncDuration(entry, elapsed)

	rs := RunStatus{
		InvocationID: res.InvocationID,
		StartedAt:    started,
		Duration:     elapsed,
		Outcome:      outcome,
		Result:       res,
	}
	if err != nil {
		rs.Error = err.Error()
		o.logger.Errorf(providers.TypeSync, "[%s] %s sync %s after %s: %s", res.InvocationID, entry, outcome, elapsed, err)
	} else {
		o.logger.Infof(providers.TypeSync, "[%s] %s sync %s in %s (batches=%d sessions=%d fields=%d)",
			res.InvocationID, entry, outcome, elapsed, res.Batches, res.Sessions, res.Fields)
	}
	o.runs.record(entry, rs)
	return res, err
}

func outcomeOf(res SyncResult, err error) string {
	switch {
	case err == nil && res.Uploaded:
		return OutcomeUploaded
	case err == nil:
		return OutcomeUnchanged
	case errors.Is(err, models.ErrCancelled), errors.Is(err, context.Canceled), errors.Is(err, ErrQueueClosed):
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}

// clamp narrows [start, end) to the lower boundary and reports whether
// anything is left.
func (o *SyncOrchestrator) clamp(start, end time.Time) (time.Time, time.Time, bool) {
	if lower := o.lowerBoundary(); lower != nil && lower.After(start) {
		start = *lower
	}
	return start, end, start.Before(end)
}

func (o *SyncOrchestrator) syncIntraday(ctx context.Context, opts IntradayOptions, res *SyncResult) error {
	metricTypes := opts.Metrics
	if len(metricTypes) == 0 {
		metricTypes = models.IntradayMetrics
	}
	metricTypes = uniqueMetrics(metricTypes)
	for _, metric := range metricTypes {
		if _, err := models.PolicyFor(metric); err != nil {
			return err
		}
	}

	rangeStart, rangeEnd, err := timewindow.ResolveRequestRange(opts.StartDate, opts.EndDate, o.zone, o.now())
	if err != nil {
		return err
	}

	collected := make([][]models.DataPointsBatch[float64], len(metricTypes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrent)
	for i, metric := range metricTypes {
		g.Go(func() error {
			batches, err := o.collectMetric(gctx, res.InvocationID, metric, rangeStart, rangeEnd)
			if err != nil {
				return fmt.Errorf("%s: %w", metric, err)
			}
			collected[i] = batches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	payload := &models.UploadPayload{InvocationID: res.InvocationID, UserScope: o.scope}
	for i, metric := range metricTypes {
		payload.AddBatches(metric, collected[i])
		res.Batches += len(collected[i])
	}
	if payload.IsEmpty() {
		return nil
	}

	if err := o.upload(ctx, payload); err != nil {
		return err
	}
	res.Uploaded = true

	for i, metric := range metricTypes {
		for _, batch := range collected[i] {
			if err := o.store.Commit(metric, batch); err != nil {
				return fmt.Errorf("commit %s batch %s: %w", metric, batch.WindowStart, err)
			}
		}
	}
	o.metrics.AddSyncedItems("batch", res.Batches)
	o.flush(res.InvocationID)
	return nil
}

// collectMetric fetches one metric and returns its non-empty batches that
// differ from what was committed. A range entirely before the lower
// boundary yields nothing without touching the provider.
func (o *SyncOrchestrator) collectMetric(ctx context.Context, invocation string, metric models.MetricType, rangeStart, rangeEnd time.Time) ([]models.DataPointsBatch[float64], error) {
	policy, err := models.PolicyFor(metric)
	if err != nil {
		return nil, err
	}

	start, end, ok := o.clamp(rangeStart, rangeEnd)
	if !ok {
		o.logger.Debugf(providers.TypeSync, "[%s] %s range before lower boundary, skipping", invocation, metric)
		return nil, nil
	}

	batchStart, batchEnd, err := timewindow.RoundToBatchBoundary(start, end, policy.BatchDuration, o.zone)
	if err != nil {
		return nil, err
	}
	windows, err := timewindow.SplitRange(start, end, policy.FetchWindow)
	if err != nil {
		return nil, err
	}

	points, err := fetcher.RunWindowed(ctx, o.fetcher, string(metric), windows,
		func(ctx context.Context, w models.Window) ([]models.DataPoint[float64], error) {
			return o.provider.QueryPoints(ctx, metric, w.Start, w.End)
		})
	if err != nil {
		return nil, err
	}

	batches, err := timewindow.GroupInZone(batchStart, batchEnd, points, policy.BatchDuration, o.zone)
	if err != nil {
		return nil, err
	}

	var changed []models.DataPointsBatch[float64]
	for _, batch := range timewindow.NonEmpty(batches) {
		if o.store.NeedsSync(metric, batch) {
			changed = append(changed, batch)
		}
	}
	o.logger.Debugf(providers.TypeSync, "[%s] %s: %d points in %d windows, %d of %d batches changed",
		invocation, metric, len(points), len(windows), len(changed), len(batches))
	return changed, nil
}

func (o *SyncOrchestrator) syncSessions(ctx context.Context, opts SessionOptions, res *SyncResult) error {
	rangeStart, rangeEnd, err := timewindow.ResolveRequestRange(opts.StartDate, opts.EndDate, o.zone, o.now())
	if err != nil {
		return err
	}
	start, end, ok := o.clamp(rangeStart, rangeEnd)
	if !ok {
		o.logger.Debugf(providers.TypeSync, "[%s] session range before lower boundary, skipping", res.InvocationID)
		return nil
	}

	windows, err := timewindow.SplitRange(start, end, sessionListWindow)
	if err != nil {
		return err
	}
	listed, err := fetcher.RunWindowed(ctx, o.fetcher, "session_list", windows,
		func(ctx context.Context, w models.Window) ([]models.SessionBundle, error) {
			return o.provider.QuerySessionList(ctx, w.Start, w.End)
		})
	if err != nil {
		return err
	}

	candidates := completedSessions(listed, opts.MinDuration)
	for i := range candidates {
		if err := o.fillSubseries(ctx, res.InvocationID, &candidates[i]); err != nil {
			return err
		}
	}

	var changed []models.SessionBundle
	for _, s := range candidates {
		if o.store.NeedsSyncSession(s) {
			changed = append(changed, s)
		}
	}
	res.Sessions = len(changed)

	if len(changed) > 0 {
		payload := &models.UploadPayload{InvocationID: res.InvocationID, UserScope: o.scope, Sessions: changed}
		if err := o.upload(ctx, payload); err != nil {
			return err
		}
		res.Uploaded = true
		o.metrics.AddSyncedItems("session", len(changed))
	}

	dates := timewindow.DatesBetween(start, end, o.zone)
	if err := o.store.CommitSessions(dates, candidates, changed); err != nil {
		return fmt.Errorf("commit sessions: %w", err)
	}
	o.flush(res.InvocationID)
	return nil
}

// completedSessions drops duplicates, ongoing sessions and those shorter
// than minDuration, keeping provider order.
func completedSessions(listed []models.SessionBundle, minDuration time.Duration) []models.SessionBundle {
	seen := make(map[string]struct{}, len(listed))
	out := make([]models.SessionBundle, 0, len(listed))
	for _, s := range listed {
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		if s.IsOngoing() || s.Duration() < minDuration {
			continue
		}
		out = append(out, s)
	}
	return out
}

// fillSubseries loads every subseries of session. A subseries that cannot
// be fetched is left empty; only cancellation fails the session.
func (o *SyncOrchestrator) fillSubseries(ctx context.Context, invocation string, session *models.SessionBundle) error {
	windows, err := timewindow.SplitRange(session.Start, *session.End, sessionSubseriesWindow)
	if err != nil {
		o.logger.Warnf(providers.TypeSync, "[%s] session %s has an invalid time range: %s", invocation, session.ID, err)
		return nil
	}

	series := make([][]models.DataPoint[float64], len(models.SubseriesTypes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrent)
	for i, t := range models.SubseriesTypes {
		g.Go(func() error {
			points, err := fetcher.RunWindowed(gctx, o.fetcher, "subseries_"+string(t), windows,
				func(ctx context.Context, w models.Window) ([]models.DataPoint[float64], error) {
					return o.provider.QueryDetailedSubseries(ctx, session.ID, t, w.Start, w.End)
				})
			if err != nil {
				if errors.Is(err, models.ErrCancelled) {
					return err
				}
				o.logger.Warnf(providers.TypeSync, "[%s] session %s: %s degraded to empty: %s", invocation, session.ID, t, err)
				return nil
			}
			series[i] = points
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, t := range models.SubseriesTypes {
		session.SubSeries.Set(t, series[i])
	}
	return nil
}

func (o *SyncOrchestrator) syncProfile(ctx context.Context, opts ProfileOptions, res *SyncResult) error {
	fields := opts.Fields
	if len(fields) == 0 {
		fields = models.ProfileFields
	}
	for _, field := range fields {
		if _, err := models.ParseProfileField(string(field)); err != nil {
			return err
		}
	}

	now := o.now()
	changed := make(map[models.ProfileField]models.DataPoint[float64])
	for _, field := range uniqueFields(fields) {
		points, err := fetcher.Do(ctx, o.fetcher, "profile_"+string(field), models.Window{Start: now, End: now},
			func(ctx context.Context, _ models.Window) ([]models.DataPoint[float64], error) {
				p, err := o.provider.QueryLastKnownScalar(ctx, field)
				if err != nil || p == nil {
					return nil, err
				}
				return []models.DataPoint[float64]{*p}, nil
			})
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if len(points) == 0 {
			continue
		}
		if o.store.NeedsSyncScalar(field, &points[0]) {
			changed[field] = points[0]
		}
	}

	res.Fields = len(changed)
	if len(changed) == 0 {
		return nil
	}

	payload := &models.UploadPayload{InvocationID: res.InvocationID, UserScope: o.scope, ChangedProfileFields: changed}
	if err := o.upload(ctx, payload); err != nil {
		return err
	}
	res.Uploaded = true

	for field, point := range changed {
		if err := o.store.CommitScalar(field, point); err != nil {
			return fmt.Errorf("commit profile %s: %w", field, err)
		}
	}
	o.metrics.AddSyncedItems("profile_field", len(changed))
	o.flush(res.InvocationID)
	return nil
}

func (o *SyncOrchestrator) upload(ctx context.Context, payload *models.UploadPayload) error {
	started := time.Now()
	err := o.gateway.Upload(ctx, payload)
	o.metrics.ObserveUploadDuration(time.Since(started))
	if err != nil {
		o.logger.Errorf(providers.TypeUpload, "[%s] upload failed: %s", payload.InvocationID, err)
		return &models.UploadError{Cause: err}
	}
	o.logger.Infof(providers.TypeUpload, "[%s] uploaded in %s", payload.InvocationID, time.Since(started))
	return nil
}

// flush persists committed fingerprints. Errors are logged, not returned.
func (o *SyncOrchestrator) flush(invocation string) {
	if err := o.kv.Flush(); err != nil {
		o.logger.Errorf(providers.TypeSync, "[%s] failed to flush metadata store: %s", invocation, err)
	}
}

func uniqueMetrics(in []models.MetricType) []models.MetricType {
	seen := make(map[models.MetricType]struct{}, len(in))
	out := make([]models.MetricType, 0, len(in))
	for _, m := range in {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

func uniqueFields(in []models.ProfileField) []models.ProfileField {
	seen := make(map[models.ProfileField]struct{}, len(in))
	out := make([]models.ProfileField, 0, len(in))
	for _, f := range in {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
