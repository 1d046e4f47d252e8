package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/conjugo/gateway/config"
	"github.com/conjugo/gateway/internal/budget"
	"github.com/conjugo/gateway/internal/evaluator"
	"github.com/conjugo/gateway/internal/httpapi"
	"github.com/conjugo/gateway/internal/kvstore"
	"github.com/conjugo/gateway/internal/ledger"
	"github.com/conjugo/gateway/internal/metrics"
	"github.com/conjugo/gateway/internal/provider"
	"github.com/conjugo/gateway/internal/provider/registry"
	"github.com/conjugo/gateway/internal/ratelimit"
	"github.com/conjugo/gateway/internal/telemetry"
	srvlimit "github.com/conjugo/gateway/pkg/ratelimit"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer("conjugo-gateway", cfg)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	defer shutdownTracer()

	// 3. Connect the persistence backend
	ctx := context.Background()

	var store kvstore.Store
	var serverLimiter *srvlimit.Limiter

	switch cfg.StoreBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to ping redis: %v", err)
		}
		log.Info("Redis connected")

		store = kvstore.NewRedisStore(rdb, "conjugo")
		serverLimiter = srvlimit.NewLimiter(rdb, cfg.ServerRateLimitRPM)

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("failed to connect postgres: %v", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			log.Fatalf("failed to ping postgres: %v", err)
		}
		if err := kvstore.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("failed to prepare schema: %v", err)
		}
		log.Info("PostgreSQL connected")

		store = kvstore.NewPostgresStore(pool)

	default: // "memory", validated in config.Load
		log.Warn("using in-memory store, usage stats will not survive a restart")
		store = kvstore.NewMemoryStore()
	}

	// 4. Usage ledger and budget gate
	usageLedger := ledger.New(store)
	budgetGate := budget.NewGate(usageLedger, store, cfg.BudgetLimits())

	// 5. Evaluation pipeline
	m := metrics.New()
	tracer := otel.GetTracerProvider().Tracer("conjugo-gateway")
	eval := evaluator.New(
		cfg,
		usageLedger,
		budgetGate,
		ratelimit.NewRegistry(),
		provider.NewDispatcher(),
		registry.New,
		m,
		tracer,
		cfg.RequestTimeout,
	)

	// 6. HTTP surface
	handler := httpapi.NewHandler(eval, usageLedger, budgetGate)
	router := httpapi.NewRouter(handler, m, serverLimiter)

	// 7. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithFields(log.Fields{
			"port":     cfg.Port,
			"provider": cfg.ActiveProvider(),
			"model":    cfg.ActiveModel(),
			"backend":  cfg.StoreBackend,
		}).Info("conjugo gateway starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Info("server stopped")
}
