package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gearboxe-market/messaging/internal/application"
	"github.com/gearboxe-market/messaging/internal/cache"
	"github.com/gearboxe-market/messaging/internal/config"
	"github.com/gearboxe-market/messaging/internal/directory"
	"github.com/gearboxe-market/messaging/internal/handlers"
	"github.com/gearboxe-market/messaging/internal/kafka"
	"github.com/gearboxe-market/messaging/internal/notify"
	"github.com/gearboxe-market/messaging/internal/observability"
	"github.com/gearboxe-market/messaging/internal/outbox"
	"github.com/gearboxe-market/messaging/internal/repository/postgres"
	"github.com/gearboxe-market/messaging/internal/router"
	"github.com/gearboxe-market/messaging/internal/tx"
)

func main() {
	backfill := flag.Bool("backfill", false, "link legacy vehicle-scoped messages to conversations and exit")
	flag.Parse()

	cfg := config.Load()

	observability.InitLogger(cfg.ServiceName)
	log := observability.Log

	if cfg.TracingEnabled {
		tp, err := observability.InitTracer(cfg.ServiceName, cfg.JaegerURL)
		if err != nil {
			log.Fatal("failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Error("failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close()

	cacheClient := cache.New(cfg.RedisAddr)
	defer cacheClient.Client.Close()

	repo := &postgres.Repository{DB: db}
	txMgr := &tx.Manager{DB: db}
	dir := &directory.PostgresDirectory{DB: db}
	notifier := notify.New(cacheClient.Client)

	app := application.New(repo, txMgr, dir, dir, cacheClient, notifier, log)

	if *backfill {
		linked, err := app.Backfill(context.Background())
		if err != nil {
			log.Fatal("backfill failed", zap.Int("linked", linked), zap.Error(err))
		}
		log.Info("backfill complete", zap.Int("linked", linked))
		return
	}

	// HTTP server for observability (metrics & health)
	obsMux := chi.NewRouter()
	obsMux.Handle("/metrics", promhttp.Handler())
	obsMux.Get("/health/live", observability.HealthLiveHandler)
	obsMux.Get("/health/ready", observability.HealthReadyHandler(db))

	go func() {
		log.Info("HTTP observability server started", zap.String("addr", cfg.ObsHTTPAddr))
		if err := http.ListenAndServe(cfg.ObsHTTPAddr, obsMux); err != nil {
			log.Error("HTTP observability server failed", zap.Error(err))
		}
	}()

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		log.Fatal("kafka producer failed", zap.Error(err))
	}

	worker := &outbox.Worker{
		DB:        db,
		Producer:  producer,
		BatchSize: 100,
		PollDelay: 2 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Start(ctx)

	msgH := handlers.NewMessagingHandler(app, notifier)
	apiServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router.New(msgH, dir, cfg.JWTSecret, cfg.ServiceName),
	}

	go func() {
		log.Info("HTTP API server started", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP API server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP API server shutdown failed", zap.Error(err))
	}

	producer.Flush(5000)

	log.Info("shutdown complete")
}
