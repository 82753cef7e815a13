package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/account-policy/internal/config"
	"github.com/jwalitptl/account-policy/internal/repository/postgres"
	"github.com/jwalitptl/account-policy/internal/worker"
	"github.com/jwalitptl/account-policy/pkg/logger"
	"github.com/jwalitptl/account-policy/pkg/messaging"
	"github.com/jwalitptl/account-policy/pkg/messaging/redis"
	"github.com/jwalitptl/account-policy/pkg/metrics"
)

// setupHealthCheck serves liveness, readiness and metrics for the worker
func setupHealthCheck(addr string, ready func(ctx context.Context) error, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("health check server failed")
		}
	}()
	return srv
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize logger
	level := logger.ParseLevel(cfg.Log.Level)
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "audit-worker").Logger()
	appLogger := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Log.Console,
	}).WithFields(map[string]interface{}{"component": "audit-worker"})

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis broker
	broker, err := redis.NewRedisBroker(cfg.ToBrokerConfig(), &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Redis broker")
	}
	adapter := messaging.NewBrokerAdapter(broker, appLogger)
	defer adapter.Close()

	registry := prometheus.NewRegistry()
	appMetrics := metrics.NewMetrics(registry, "account_policy", "worker")

	auditRepo := postgres.NewAuditRepository(postgres.NewBaseRepository(db))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := worker.NewAuditSink(auditRepo, adapter, worker.AuditSinkConfig{
		Channel: cfg.Audit.Channel,
	}, appLogger, appMetrics)
	if err := sink.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start audit sink")
	}

	cleanup := worker.NewAuditCleanupWorker(auditRepo, cfg.Audit.Retention, cfg.Audit.CleanupInterval, appLogger)
	go cleanup.Start(ctx)

	healthSrv := setupHealthCheck(cfg.Audit.WorkerHealthAddr, db.PingContext, registry)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}
}
