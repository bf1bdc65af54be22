package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"acadmin/internal/approval/actions"
	"acadmin/internal/approval/handler"
	approvalmetrics "acadmin/internal/approval/metrics"
	"acadmin/internal/approval/outbox"
	"acadmin/internal/approval/policy"
	"acadmin/internal/approval/service"
	policystore "acadmin/internal/approval/store/policy"
	requeststore "acadmin/internal/approval/store/request"
	"acadmin/internal/approval/store/rulecache"
	"acadmin/internal/catalog"
	jwttoken "acadmin/internal/jwt_token"
	"acadmin/internal/platform/config"
	"acadmin/internal/platform/httpserver"
	"acadmin/internal/platform/kafka"
	"acadmin/internal/platform/logger"
	"acadmin/internal/platform/metrics"
	"acadmin/internal/platform/redis"
	"acadmin/internal/schema"
	txcontext "acadmin/pkg/platform/tx"
)

const (
	topicPartitions  = 3
	topicReplication = 1
	shutdownTimeout  = 15 * time.Second
)

// main wires the approval engine to Postgres, Redis and Kafka and serves the
// HTTP API until SIGINT or SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	caps, err := schema.Probe(ctx, db, catalog.KnownTables())
	if err != nil {
		return fmt.Errorf("probe schema: %w", err)
	}
	registry, err := actions.NewRegistry(actions.Deps{})
	if err != nil {
		return fmt.Errorf("build action registry: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	producer, err := kafka.NewProducer(ctx, cfg.Kafka)
	if err != nil {
		return fmt.Errorf("connect kafka: %w", err)
	}

	approvalMetrics := approvalmetrics.New()
	requests := requeststore.NewPostgres(db)
	policies := policystore.NewPostgres(db)
	outboxStore := outbox.NewPostgres(db)

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(approvalMetrics),
		service.WithOutbox(outboxStore),
		service.WithCapabilities(caps),
	}
	var resolverStore policy.Store = policies
	if redisClient != nil {
		defer redisClient.Close()
		cache := rulecache.New(policies, redisClient.Client,
			rulecache.WithTTL(cfg.RuleCacheTTL),
			rulecache.WithLogger(log),
		)
		resolverStore = cache
		opts = append(opts, service.WithRuleCache(cache))
	} else {
		log.Info("rule cache disabled: REDIS_URL not set")
	}

	resolver := policy.New(resolverStore, policy.WithLogger(log))
	tx := newApprovalTx(txcontext.NewRunner(db), cfg.TxTimeout)
	svc := service.New(requests, policies, resolver, registry, tx, opts...)

	seed, err := policystore.LoadSeed(cfg.RuleSeedPath)
	if err != nil {
		return err
	}
	if _, err := svc.SeedRuleDefaults(ctx, seed); err != nil {
		return err
	}

	if producer != nil {
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := producer.Close(closeCtx); err != nil {
				log.Warn("kafka producer close failed", "error", err)
			}
		}()
		if err := producer.EnsureTopic(ctx, topicPartitions, topicReplication); err != nil {
			return fmt.Errorf("ensure topic: %w", err)
		}
		relay := outbox.NewRelay(outboxStore, producer,
			outbox.WithInterval(cfg.Kafka.RelayInterval),
			outbox.WithBatchSize(cfg.Kafka.RelayBatch),
			outbox.WithLogger(log),
			outbox.WithMetrics(approvalMetrics),
		)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("outbox relay stopped", "error", err)
			}
		}()
	} else {
		log.Info("outbox relay disabled: KAFKA_BROKERS not set")
	}

	checks := map[string]healthCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = redisClient.Health
	}
	if producer != nil {
		checks["kafka"] = producer.Health
	}

	router := chi.NewRouter()
	router.Get("/healthz", healthHandler(checks))
	router.Handle("/metrics", promhttp.Handler())
	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer)
	handler.New(svc, log, jwttoken.NewJWTServiceAdapter(jwtService), metrics.New(prometheus.DefaultRegisterer)).Register(router)

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting acadmin", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func openDatabase(ctx context.Context, cfg config.Database) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
