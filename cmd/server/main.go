package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"passgate/internal/auth"
	"passgate/internal/platform/config"
	"passgate/internal/platform/httpserver"
	"passgate/internal/platform/logger"
	platformredis "passgate/internal/platform/redis"
	"passgate/internal/registry/cache"
	"passgate/internal/registry/handler"
	"passgate/internal/registry/metrics"
	"passgate/internal/registry/models"
	"passgate/internal/registry/service"
	registrystore "passgate/internal/registry/store"
	audit "passgate/pkg/platform/audit"
	auditmemory "passgate/pkg/platform/audit/store/memory"
	auditpostgres "passgate/pkg/platform/audit/store/postgres"
	"passgate/pkg/platform/audit/publisher"
	auditworker "passgate/pkg/platform/audit/worker"
)

// main wires dependencies and owns the process lifecycle. Business rules
// live in internal/registry/service; main only decides which backends run.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registryOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
		service.WithMetadataMaxLen(cfg.Registry.MetadataMaxLen),
		service.WithBulkLimit(cfg.Registry.BulkLimit),
	}

	var auditStore audit.Store

	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		if err := registrystore.RunMigrations(ctx, db); err != nil {
			return err
		}
		registryOpts = append(registryOpts, service.WithStoreTx(newRegistryPostgresTx(db)))
		auditStore = auditpostgres.New(db)
		log.Info("using postgres registry store")

		return runWithStore(ctx, cfg, log, registrystore.NewPostgres(db), auditStore, registryOpts)
	}

	auditStore = auditmemory.New()
	log.Info("using in-memory registry store")
	return runWithStore(ctx, cfg, log, registrystore.NewInMemory(), auditStore, registryOpts)
}

func runWithStore(ctx context.Context, cfg config.Config, log *slog.Logger,
	store service.Store, auditStore audit.Store, registryOpts []service.Option) error {

	registryOpts = append(registryOpts,
		service.WithAuditPublisher(publisher.New(auditStore, publisher.WithLogger(log))),
	)

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		registryOpts = append(registryOpts,
			service.WithCache(cache.NewRedis(redisClient.Client, cfg.Redis.CacheTTL)))
		log.Info("pass details cache enabled")
	}

	registry, err := service.New(store, models.Identity(cfg.Registry.Admin), registryOpts...)
	if err != nil {
		return err
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())
	handler.New(registry, tokens, log).Register(router)

	srv := httpserver.New(cfg.Server.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting passgate", "addr", cfg.Server.Addr, "admin", cfg.Registry.Admin)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if len(cfg.Kafka.Brokers) > 0 {
		client, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.DefaultProduceTopic(cfg.Kafka.Topic),
		)
		if err != nil {
			return err
		}
		defer client.Close()

		worker := auditworker.New(auditStore, client, cfg.Kafka.Topic, log,
			auditworker.WithPollInterval(cfg.Kafka.PollInterval))
		if err := worker.EnsureTopic(ctx); err != nil {
			log.Warn("audit topic check failed", "error", err.Error())
		}
		group.Go(func() error {
			return worker.Run(groupCtx)
		})
		log.Info("audit outbox worker enabled", "topic", cfg.Kafka.Topic)
	}

	return group.Wait()
}
