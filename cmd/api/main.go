package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/account-policy/internal/config"
	auditHandler "github.com/jwalitptl/account-policy/internal/handler/audit"
	"github.com/jwalitptl/account-policy/internal/handler/health"
	policyHandler "github.com/jwalitptl/account-policy/internal/handler/policy"
	promHandler "github.com/jwalitptl/account-policy/internal/handler/prometheus"
	"github.com/jwalitptl/account-policy/internal/middleware"
	"github.com/jwalitptl/account-policy/internal/policy"
	"github.com/jwalitptl/account-policy/internal/repository/cache"
	"github.com/jwalitptl/account-policy/internal/repository/postgres"
	redisrepo "github.com/jwalitptl/account-policy/internal/repository/redis"
	"github.com/jwalitptl/account-policy/internal/router"
	policyService "github.com/jwalitptl/account-policy/internal/service/policy"
	"github.com/jwalitptl/account-policy/pkg/auth"
	"github.com/jwalitptl/account-policy/pkg/logger"
	"github.com/jwalitptl/account-policy/pkg/messaging"
	redisbroker "github.com/jwalitptl/account-policy/pkg/messaging/redis"
	"github.com/jwalitptl/account-policy/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize logger
	level := logger.ParseLevel(cfg.Log.Level)
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	appLogger := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Log.Console,
	})

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis; the broker takes ownership of the client
	redisOpts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid redis url")
	}
	redisOpts.MaxRetries = cfg.Redis.MaxRetries
	redisOpts.MinRetryBackoff = cfg.Redis.RetryBackoff
	redisOpts.PoolSize = cfg.Redis.PoolSize
	redisOpts.MinIdleConns = cfg.Redis.MinIdleConns
	redisClient := goredis.NewClient(redisOpts)
	broker := redisbroker.NewRedisBrokerWithClient(redisClient, cfg.ToBrokerConfig(), &log.Logger)
	defer broker.Close()

	// Metrics share one registry with the HTTP collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(registry, "account_policy", "engine")

	// Initialize repositories
	baseRepo := postgres.NewBaseRepository(db)
	securityRepo := postgres.NewAccountSecurityRepository(baseRepo)
	auditRepo := postgres.NewAuditRepository(baseRepo)
	rbacRepo := cache.NewRBACCache(postgres.NewRBACRepository(baseRepo), cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	commonPasswords := redisrepo.NewCommonPasswordStore(redisClient, cfg.Redis.CommonPasswordsKey)

	// Initialize policy engine
	policyCfg, err := cfg.Policy.ToPolicyConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid policy configuration")
	}
	engine, err := policy.New(policyCfg, policy.Providers{
		Admins:          rbacRepo,
		Roles:           rbacRepo,
		Permissions:     rbacRepo,
		MFA:             securityRepo,
		Lockouts:        securityRepo,
		PasswordHistory: securityRepo,
		CommonPasswords: commonPasswords,
		Profiles:        securityRepo,
	}, policy.WithLogger(appLogger))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build policy engine")
	}

	var publisher messaging.Publisher
	if cfg.Audit.Enabled {
		publisher = messaging.NewTopicPublisher(broker, cfg.Audit.Channel)
	}
	svc := policyService.NewService(engine, auditRepo, publisher, appMetrics, appLogger)

	// Initialize middleware
	verifier, err := auth.NewJWTVerifier(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Leeway)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token verifier")
	}
	authMiddleware := middleware.NewAuthMiddleware(verifier)

	// Initialize handlers
	healthH := health.NewHandler(map[string]health.Pinger{
		"database": db,
		"redis": health.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}),
	})

	r := router.NewRouter(
		authMiddleware,
		healthH,
		promHandler.New(registry),
		router.RouterConfig{
			Mode:         cfg.Server.Mode,
			RateLimit:    rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:    cfg.RateLimit.Burst,
			RateLimitOff: !cfg.RateLimit.Enabled,
		},
		policyHandler.NewHandler(svc),
		auditHandler.NewHandler(svc),
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", srv.Addr).Str("preset", string(policyCfg.Preset)).Msg("starting policy api")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
