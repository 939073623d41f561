// Command server runs the identity resolution and merge engine: the resolve
// API for the scraping pipeline and the admin API for duplicate review and
// merges. Wiring lives here; business logic lives in internal services.
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
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"prosreg/internal/dedupe"
	enforcementstore "prosreg/internal/enforcement/store"
	legislationmetrics "prosreg/internal/legislation/metrics"
	legislationservice "prosreg/internal/legislation/service"
	legislationstore "prosreg/internal/legislation/store"
	mergemetrics "prosreg/internal/merge/metrics"
	mergeservice "prosreg/internal/merge/service"
	mergestore "prosreg/internal/merge/store"
	offendermetrics "prosreg/internal/offender/metrics"
	offenderservice "prosreg/internal/offender/service"
	offenderstore "prosreg/internal/offender/store"
	"prosreg/internal/platform/cache"
	"prosreg/internal/platform/config"
	"prosreg/internal/platform/httpserver"
	"prosreg/internal/platform/kafka"
	"prosreg/internal/platform/logger"
	"prosreg/internal/registry"
	"prosreg/internal/stats"
	httptransport "prosreg/internal/transport/http"
	txcontext "prosreg/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		offenders   offenderstore.Store
		legislation legislationstore.Store
		enforcement enforcementstore.Store
		reviews     mergestore.ReviewStore
		runner      txcontext.Runner
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		offenders = offenderstore.NewPostgres(db)
		legislation = legislationstore.NewPostgres(db)
		enforcement = enforcementstore.NewPostgres(db)
		reviews = mergestore.NewPostgresReviews(db)
		runner = txcontext.NewSQLRunner(db)
		log.Info("using postgres stores")
	} else {
		offenders = offenderstore.NewInMemory()
		legislation = legislationstore.NewInMemory()
		enforcement = enforcementstore.NewInMemory()
		reviews = mergestore.NewInMemoryReviews()
		runner = txcontext.Passthrough{}
		log.Warn("no database configured, using in-memory stores")
	}

	var sharedCache cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisCache.Close()
		sharedCache = redisCache
		log.Info("using redis cache")
	} else {
		sharedCache = cache.NewMemory()
	}

	var registryClient registry.Client
	if cfg.RegistryBaseURL != "" {
		registryClient = registry.NewHTTPClient(cfg.RegistryBaseURL, cfg.RegistryTimeout)
	} else {
		registryClient = registry.NewMockClient()
		log.Warn("no registry configured, using deterministic mock")
	}
	registryClient = registry.NewCachedClient(registryClient, sharedCache, cfg.RegistryCacheTTL, log)

	detector := dedupe.NewDetector(enforcement, offenders,
		dedupe.WithLogger(log),
		dedupe.WithCache(sharedCache, cfg.DuplicateCacheTTL),
	)
	offenderResolver := offenderservice.NewResolver(offenders,
		offenderservice.WithLogger(log),
		offenderservice.WithMetrics(offendermetrics.New()),
		offenderservice.WithCandidateLimit(cfg.FuzzyCandidateLimit),
	)
	legislationResolver := legislationservice.NewResolver(legislation,
		legislationservice.WithLogger(log),
		legislationservice.WithMetrics(legislationmetrics.New()),
	)
	coordinatorOpts := []mergeservice.Option{
		mergeservice.WithLogger(log),
		mergeservice.WithMetrics(mergemetrics.New()),
		mergeservice.WithInvalidator(detector),
	}

	// Queued aggregate refresh: publish and consume when brokers are configured.
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := kafka.NewPublisher(cfg.KafkaBrokers)
		if err != nil {
			return err
		}
		defer publisher.Close()
		coordinatorOpts = append(coordinatorOpts,
			mergeservice.WithRefreshQueue(stats.NewQueuePublisher(publisher, cfg.KafkaTopic)))

		refresher := stats.NewRefresher(offenders, enforcement, stats.WithRefresherLogger(log))
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, "prosreg-stats", []string{cfg.KafkaTopic}, log)
		if err != nil {
			return err
		}
		go func() {
			handler := stats.NewRefreshHandler(refresher, log)
			if err := consumer.Run(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("refresh consumer stopped", "error", err)
			}
		}()
		log.Info("aggregate refresh queue started", "topic", cfg.KafkaTopic)
	}
	coordinator := mergeservice.NewCoordinator(offenders, enforcement, reviews, registryClient, runner, coordinatorOpts...)

	handler := httptransport.NewHandler(offenderResolver, legislationResolver, detector, coordinator, log)
	router := httptransport.NewRouter(handler, cfg.AdminToken)
	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
