package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/masjid-scheduler/internal/application"
	"github.com/example/masjid-scheduler/internal/availability"
	"github.com/example/masjid-scheduler/internal/config"
	httptransport "github.com/example/masjid-scheduler/internal/http"
	"github.com/example/masjid-scheduler/internal/logging"
	"github.com/example/masjid-scheduler/internal/metrics"
	"github.com/example/masjid-scheduler/internal/persistence/sqlite"
	"github.com/example/masjid-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/masjid-scheduler/internal/recurrence"
)

func main() {
	cfg, err := config.LoadFile(".env")
	if err != nil {
		logging.New(os.Stderr, slog.LevelInfo).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then drains in-flight requests.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	storage, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	now := func() time.Time { return time.Now().In(cfg.Location) }
	handler, err := newHandler(cfg, storage, registry, now, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("facility API listening", "addr", server.Addr, "timezone", cfg.Location.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone
	logger.Info("facility API stopped")
	return nil
}

// newHandler wires repositories, interval sources, services and handlers.
func newHandler(cfg config.Config, storage *sqlite.Storage, registry *prometheus.Registry, now func() time.Time, logger *slog.Logger) (http.Handler, error) {
	ladder, err := cfg.Ladder()
	if err != nil {
		return nil, fmt.Errorf("build time ladder: %w", err)
	}
	engine := availability.NewEngine(availability.Options{
		Ladder:          ladder,
		DefaultDuration: cfg.DefaultDuration,
		EndTimePolicy:   cfg.EndTimePolicy,
	})
	m := metrics.New(registry)

	reservationRepo := newReservationRepositoryAdapter(storage.Reservations)
	activityRepo := newActivityRepositoryAdapter(storage.Activities)
	expander := recurrence.NewEngine(0)

	source := availability.MergeSources(
		application.NewApprovedReservationSource(reservationRepo),
		application.NewActiveActivitySource(activityRepo, expander),
	)
	availabilityService := application.NewAvailabilityServiceWithLogger(source, engine, application.AvailabilityOptions{
		FailOpen:  cfg.FailOpen,
		CacheTTL:  cfg.SnapshotCacheTTL,
		CacheSize: cfg.SnapshotCacheSize,
	}, m, logger)
	reservationService := application.NewReservationServiceWithLogger(reservationRepo, availabilityService, uuid.NewString, now, logger)
	activityService := application.NewActivityServiceWithLogger(activityRepo, availabilityService, expander, uuid.NewString, now, logger)

	return httptransport.NewRouter(httptransport.RouterConfig{
		Availability:   httptransport.NewAvailabilityHandler(availabilityService, logger),
		Reservations:   httptransport.NewReservationHandler(reservationService, m, logger),
		Activities:     httptransport.NewActivityHandler(activityService, m, logger),
		Health:         httptransport.NewHealthHandler(storage, logger),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Metrics:        m,
		BookingLimiter: httptransport.RateLimit(httptransport.RateLimitConfig{
			PerMinute: cfg.BookingRatePerMinute,
			Burst:     cfg.BookingRateBurst,
		}, m, logger),
		Logger: logger,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.TrustedPrincipal(cfg.GatewaySecret, logger),
		},
	}), nil
}
