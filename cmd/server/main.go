package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tntan04/quan-ly-mua-sam/internal/config"
	"github.com/tntan04/quan-ly-mua-sam/internal/handler"
	"github.com/tntan04/quan-ly-mua-sam/internal/infra"
	"github.com/tntan04/quan-ly-mua-sam/internal/router"
	"github.com/tntan04/quan-ly-mua-sam/internal/service"
	"github.com/tntan04/quan-ly-mua-sam/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var _ service.JobDispatcher = (*worker.Dispatcher)(nil)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	if err := infra.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbCB := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{
		Name:             "postgres",
		FailureThreshold: 3,
		SuccessThreshold: 1,
		OpenTimeout:      15 * time.Second,
	})

	objects, err := infra.NewObjectStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise object storage")
	}
	var storage service.ObjectStore
	if objects != nil {
		storage = objects
	} else {
		log.Info().Msg("storage: MINIO_ENDPOINT not set, documents kept inline")
	}

	dispatcher := worker.NewDispatcher(rdb)
	svc, snapshots := router.NewServices(cfg, router.Deps{
		DB:         db,
		RDB:        rdb,
		DBBreaker:  dbCB,
		Storage:    storage,
		Dispatcher: dispatcher,
	})

	// Worker handlers are wired here (composition root) so the pool has every
	// infrastructure dependency.
	pool := worker.NewPool(rdb, map[string]worker.JobHandler{
		worker.QueueEmail:             worker.NewEmailWorker(infra.NewMailer(cfg)),
		worker.QueueDossierCompletion: worker.NewCompletionWorker(svc.Dossiers),
	})
	pool.Start(ctx, cfg.WorkerPoolSize)

	worker.StartReconcileCron(ctx, worker.ReconcileCronConfig{
		Dossiers: svc.Dossiers,
		CB:       dbCB,
		Interval: cfg.ReconcileInterval,
	})
	worker.StartSnapshotPoller(ctx, snapshots, cfg.SnapshotPollInterval)

	r := router.New(cfg, svc, handler.Health(db, rdb, dbCB))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // report exports
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("procurement backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel() // stop workers, cron and poller

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	_ = rdb.Close()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
}
