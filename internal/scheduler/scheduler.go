package scheduler

import (
	"context"
	"sync"
	"time"
	"wearsync/internal/models"
	"wearsync/internal/providers"
	"wearsync/internal/scheduler/interfaces"
	"wearsync/internal/services"
	"wearsync/internal/storage"
	"wearsync/internal/structures"
	"wearsync/internal/timewindow"

	"cloud.google.com/go/civil"
	"github.com/roylee0704/gron"
	"go.uber.org/atomic"
)

// Scheduler triggers the three sync entry points periodically over a
// rolling lookback range and flushes the metadata store.
type Scheduler struct {
	config  *structures.Config
	logger  providers.Logger
	service services.SyncServiceInterface
	store   storage.PersistentStore
	cron    *gron.Cron
	opsMu   sync.Mutex
	now     func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	runMu   sync.Mutex
	wg      sync.WaitGroup
	running map[string]*atomic.Bool
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	if interval := s.config.Store.FlushInterval; interval > 0 {
		s.cron.AddFunc(gron.Every(interval), func() {
			if err := s.Persist(); err == nil {
				s.logger.Debugf(providers.TypeApp, "Metadata store flushed")
			}
		})
	}

	s.schedule(services.EntryIntraday, s.config.Schedule.IntradayInterval, s.RunIntraday)
	s.schedule(services.EntrySessions, s.config.Schedule.SessionsInterval, s.RunSessions)
	s.schedule(services.EntryProfile, s.config.Schedule.ProfileInterval, s.RunProfile)

	s.cron.Start()
}

func (s *Scheduler) schedule(entry string, interval time.Duration, run func(ctx context.Context) error) {
	if interval <= 0 {
		s.logger.Infof(providers.TypeApp, "Scheduled %s sync disabled", entry)
		return
	}
	s.logger.Infof(providers.TypeApp, "Scheduled %s sync every %s", entry, interval)
	s.cron.AddFunc(gron.Every(interval), func() {
		s.trigger(entry, run)
	})
}

// trigger runs one scheduled sync unless the previous run of the same entry
// point is still in flight.
func (s *Scheduler) trigger(entry string, run func(ctx context.Context) error) {
	flag := s.running[entry]
	if !flag.CompareAndSwap(false, true) {
		s.logger.Warnf(providers.TypeSync, "Previous scheduled %s sync still running, skipping", entry)
		return
	}
	defer flag.Store(false)

	if !s.begin() {
		return
	}
	defer s.wg.Done()

	if err := run(s.ctx); err != nil {
		s.logger.Errorf(providers.TypeSync, "Scheduled %s sync failed: %s", entry, err)
	}
}

// begin registers a run with the wait group unless Stop has started.
func (s *Scheduler) begin() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.wg.Add(1)
	return true
}

// lookbackRange returns [today - lookbackDays, today] in the connection
// zone, clamped to the provider retention window.
func (s *Scheduler) lookbackRange() (models.LocalDate, models.LocalDate) {
	zone, err := s.config.Location()
	if err != nil {
		zone = time.UTC
	}
	now := s.now()
	today := civil.DateOf(now.In(zone))
	start := today.AddDays(-s.config.Schedule.LookbackDays)
	if oldest := timewindow.OldestSyncableDate(now, zone); start.Before(oldest) {
		start = oldest
	}
	return start, today
}

func (s *Scheduler) RunIntraday(ctx context.Context) error {
	start, end := s.lookbackRange()
	metrics := make([]models.MetricType, 0, len(s.config.Schedule.Metrics))
	for _, name := range s.config.Schedule.Metrics {
		m, err := models.ParseMetricType(name)
		if err != nil {
			return err
		}
		metrics = append(metrics, m)
	}
	_, err := s.service.SyncIntraday(ctx, services.IntradayOptions{Metrics: metrics, StartDate: start, EndDate: end})
	return err
}

func (s *Scheduler) RunSessions(ctx context.Context) error {
	start, end := s.lookbackRange()
	_, err := s.service.SyncSessions(ctx, services.SessionOptions{
		StartDate:   start,
		EndDate:     end,
		MinDuration: s.config.Schedule.MinSessionDuration,
	})
	return err
}

func (s *Scheduler) RunProfile(ctx context.Context) error {
	fields := make([]models.ProfileField, 0, len(s.config.Schedule.ProfileFields))
	for _, name := range s.config.Schedule.ProfileFields {
		f, err := models.ParseProfileField(name)
		if err != nil {
			return err
		}
		fields = append(fields, f)
	}
	_, err := s.service.SyncProfile(ctx, services.ProfileOptions{Fields: fields})
	return err
}

// Stop halts the timers, cancels in-flight scheduled syncs and waits for them.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.runMu.Lock()
	s.cancel()
	s.runMu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	err := s.store.Flush()
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting metadata: %s", err)
		return err
	}
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, service services.SyncServiceInterface, store storage.PersistentStore) interfaces.SchedulerInterface {
	return newScheduler(config, logger, service, store, time.Now)
}

func newScheduler(config *structures.Config, logger providers.Logger, service services.SyncServiceInterface, store storage.PersistentStore, now func() time.Time) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		config:  config,
		logger:  logger,
		service: service,
		store:   store,
		now:     now,
		ctx:     ctx,
		cancel:  cancel,
		running: map[string]*atomic.Bool{
			services.EntryIntraday: atomic.NewBool(false),
			services.EntrySessions: atomic.NewBool(false),
			services.EntryProfile:  atomic.NewBool(false),
		},
	}
}
