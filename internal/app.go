package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	"wearsync/internal/controllers"
	"wearsync/internal/providers"
	"wearsync/internal/scheduler/interfaces"
	"wearsync/internal/services"
	"wearsync/internal/storage"
	"wearsync/internal/structures"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	WebServer *http.Server
}

// NewApp serves the HTTP API and the schedule until SIGINT or SIGTERM, then
// shuts everything down and flushes the metadata store.
func NewApp(healthController *controllers.HealthController, scheduler interfaces.SchedulerInterface, service services.SyncServiceInterface, store storage.PersistentStore, conf *structures.Config, logger providers.Logger, router providers.RouterProviderInterface, metrics providers.MetricsProviderInterface) (*App, error) {
	apiMux := http.NewServeMux()
	for _, route := range router.GetRoutes() {
		apiMux.Handle(route.Url, route.Handler)
	}

	instrumentedAPI := providers.MetricsMiddleware(metrics, logger, apiMux, router.Paths()...)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", instrumentedAPI)

	logger.Infof(providers.TypeApp, "Starting %s for %s", conf.AppName, conf.Connection.UserScope)

	app := &App{
		WebServer: &http.Server{
			Addr:        conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:     mux,
			ReadTimeout: 5 * time.Second,
			// manual sync requests block until the invocation finishes
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
	}

	scheduler.Init()

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof(providers.TypeApp, "Listening HTTP clients on %s:%d", conf.WebServer.Host, conf.WebServer.Port)
		if err := app.WebServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-stop:
		logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		runErr = fmt.Errorf("server error: %w", err)
	}

	scheduler.Stop()
	service.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.WebServer.Shutdown(ctx); err != nil && runErr == nil {
		runErr = err
	}
	if err := scheduler.Persist(); err != nil && runErr == nil {
		runErr = err
	}
	if err := store.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return nil, runErr
	}
	logger.Infof(providers.TypeApp, "gracefully stopped")
	return app, nil
}

// Runner executes single sync invocations outside the daemon.
type Runner struct {
	Service services.SyncServiceInterface
	store   storage.PersistentStore
	logger  providers.Logger
}

func NewRunner(service services.SyncServiceInterface, store storage.PersistentStore, logger providers.Logger) *Runner {
	return &Runner{Service: service, store: store, logger: logger}
}

// Close stops the service, closes the metadata store and the log files.
func (r *Runner) Close() error {
	r.Service.Close()
	err := r.store.Close()
	if err != nil {
		r.logger.Errorf(providers.TypeApp, "Error while closing metadata store: %s", err)
	}
	r.logger.Close()
	return err
}
