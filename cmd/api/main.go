package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mogumap/coupon-engine/internal/config"
	httphandler "github.com/mogumap/coupon-engine/internal/delivery/http"
	"github.com/mogumap/coupon-engine/internal/delivery/kafka"
	"github.com/mogumap/coupon-engine/internal/logger"
	"github.com/mogumap/coupon-engine/internal/repository"
	"github.com/mogumap/coupon-engine/internal/usecase"
	"github.com/robfig/cron/v3"
	"github.com/twmb/franz-go/pkg/kgo"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogMode, logger.Options{Dir: cfg.LogDir})
	defer logger.Sync()

	pool, err := initDB(cfg)
	if err != nil {
		logger.Errorw("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repository.RunMigrations(pool, "db/migrations"); err != nil {
		logger.Errorw("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := repository.New(pool)

	events := kafka.NewNoopPublisher()
	var kafkaClient *kgo.Client
	if cfg.EventsEnabled == "true" {
		kafkaClient, err = kgo.NewClient(
			kgo.SeedBrokers(strings.Split(cfg.KafkaBrokers, ",")...),
			kgo.ClientID(cfg.KafkaClientID),
		)
		if err != nil {
			logger.Errorw("failed to create kafka client", "error", err)
			os.Exit(1)
		}
		if err := kafka.EnsureTopics(ctx, kafkaClient, cfg); err != nil {
			logger.Warnw("failed to ensure topics", "error", err)
		}
		events = kafka.NewPublisher(kafkaClient)
	}

	engine := usecase.NewCouponService(store, events)

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.SweepCron, func() {
		report, err := engine.Sweep(context.Background(), time.Now())
		if err != nil {
			logger.Errorw("sweep failed", "error", err)
			return
		}
		logger.Infow("scheduled sweep done",
			"definitions_expired", report.DefinitionsExpired,
			"grants_expired", report.GrantsExpired,
			"failed", report.Failed,
		)
	}); err != nil {
		logger.Errorw("invalid sweep schedule", "cron", cfg.SweepCron, "error", err)
		os.Exit(1)
	}
	sweeper.Start()

	handler := httphandler.NewHandler(engine)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	handler.Routes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Infow("starting server", "port", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("http shutdown error", "error", err)
	}

	// A sweep mid-run at shutdown is fine; the next run completes it.
	<-sweeper.Stop().Done()

	if kafkaClient != nil {
		kafkaClient.Close()
	}

	wg.Wait()
	logger.Infow("shutdown complete")
}

func initDB(cfg *config.Config) (*pgxpool.Pool, error) {
	connStr := fmt.Sprintf(
		"postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBSSLMode,
	)

	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}
