package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/config"
	"github.com/alejo0789/agenda-ia-sub000/internal/infra"
	"github.com/alejo0789/agenda-ia-sub000/internal/repository"
	"github.com/alejo0789/agenda-ia-sub000/internal/router"
	"github.com/alejo0789/agenda-ia-sub000/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// pretty console logs in development, JSON in production
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Receipt rendering and mailing run in the goroutine pool; the handlers
	// are wired here so the pool shares the API's infrastructure.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := infra.NewMailer(cfg)
	dispatcher := worker.NewDispatcher(rdb)
	comprobanteRepo := repository.NewComprobanteRepository(db)

	workerHandlers := &worker.WorkerHandlers{
		Comprobante: worker.NewComprobanteWorker(
			repository.NewFacturaRepository(db),
			repository.NewCatalogoRepository(db),
			comprobanteRepo,
			infra.NewLocker(rdb),
			dispatcher,
			cfg.PDFStoragePath,
			cfg.NegocioNombre,
		),
		Email: worker.NewEmailWorker(mailer, rdb),
	}
	worker.StartWorkerPool(ctx, rdb, workerHandlers, cfg.WorkerPoolSize)
	worker.Reintentos{
		Comprobantes: comprobanteRepo,
		Dispatcher:   dispatcher,
		RDB:          rdb,
	}.Start(ctx)

	r := router.New(cfg, router.Deps{DB: db, RDB: rdb, Mailer: mailer, Dispatcher: dispatcher})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("salon ledger listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
