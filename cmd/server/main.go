package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/E-m-i-n-e-n-c-e/Revent/internal/audit"
	auditmetrics "github.com/E-m-i-n-e-n-c-e/Revent/internal/audit/metrics"
	auditpg "github.com/E-m-i-n-e-n-c-e/Revent/internal/audit/store/postgres"
	"github.com/E-m-i-n-e-n-c-e/Revent/internal/dispatch"
	"github.com/E-m-i-n-e-n-c-e/Revent/internal/notifications"
	"github.com/E-m-i-n-e-n-c-e/Revent/internal/notify"
	"github.com/E-m-i-n-e-n-c-e/Revent/internal/platform/config"
	"github.com/E-m-i-n-e-n-c-e/Revent/internal/platform/httpserver"
	kafkaconsumer "github.com/E-m-i-n-e-n-c-e/Revent/internal/platform/kafka/consumer"
	"github.com/E-m-i-n-e-n-c-e/Revent/internal/platform/logger"
	redisclient "github.com/E-m-i-n-e-n-c-e/Revent/internal/platform/redis"
	httptransport "github.com/E-m-i-n-e-n-c-e/Revent/internal/transport/http"
	"github.com/E-m-i-n-e-n-c-e/Revent/migrations"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := migrations.Up(ctx, db); err != nil {
		log.Error("apply migrations", "error", err)
		os.Exit(1)
	}

	metrics := auditmetrics.New()
	store := auditpg.New(db)
	writer := audit.NewWriter(store, audit.WithLogger(log), audit.WithMetrics(metrics))
	pipeline := audit.NewService(writer, log)

	// Recipient list: Redis set when configured, static fallback otherwise.
	var recipients notify.RecipientSource = notify.StaticRecipients(cfg.Notify.Recipients)
	rdb, err := redisclient.New(cfg.RedisURL)
	if err != nil {
		log.Warn("redis unavailable, using static recipients", "error", err)
	} else if rdb != nil {
		defer rdb.Close()
		recipients = notify.NewRedisRecipients(rdb.Client, cfg.Notify.Recipients, log)
	}

	mailer := notify.NewSMTPMailer(
		cfg.SMTP.Host, cfg.SMTP.Port,
		cfg.SMTP.Username, cfg.SMTP.Password,
		cfg.SMTP.From, cfg.SMTP.FromName,
	)
	notifier := notify.NewService(recipients, mailer, notifications.New(db), log, cfg.Notify.Parallelism)

	changeHandler := dispatch.NewChangeHandler(pipeline, notifier, log)
	consumer, err := kafkaconsumer.New(cfg.Kafka.Brokers, cfg.Kafka.Group, cfg.Kafka.Topic, changeHandler, log)
	if err != nil {
		// Webhook ingestion still works without Kafka; keep serving.
		log.Warn("kafka consumer disabled", "error", err)
	} else {
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("kafka consumer stopped", "error", err)
			}
		}()
	}

	handler := httptransport.NewHandler(pipeline, store, notifier, log, cfg.JWTSecret)
	handler.AddHealthCheck("postgres", store)
	if rdb != nil {
		handler.AddHealthCheck("redis", rdb)
	}
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	log.Info("starting revent audit service", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
