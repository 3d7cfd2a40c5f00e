package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/krstock/internal/alerts"
	"github.com/ariefcatur/krstock/internal/config"
	"github.com/ariefcatur/krstock/internal/events"
	kafkax "github.com/ariefcatur/krstock/internal/kafka"
	"github.com/ariefcatur/krstock/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	newLogger := zap.NewDevelopment
	if cfg.Production() {
		newLogger = zap.NewProduction
	}
	logger, err := newLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	logger = logger.With(zap.String("service", cfg.ServiceName+"-alerts"))
	defer func() { _ = logger.Sync() }()

	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := &alerts.Notifier{Logger: logger}
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		n.Dedup = redisx.NewDedup(rdb, cfg.AlertsGroup)
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.AlertsGroup, events.TopicInventorySnapshot, cfg.AlertsWorker, logger)
	go func() {
		logger.Info("alerts consumer started",
			zap.String("group", cfg.AlertsGroup),
			zap.String("topic", events.TopicInventorySnapshot),
			zap.Int("workers", cfg.AlertsWorker),
		)
		if err := cons.Start(ctx, n.Handle); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
