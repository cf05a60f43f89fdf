package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shishiro26/growons-orders/internal/config"
	kafkax "github.com/shishiro26/growons-orders/internal/kafka"
	"github.com/shishiro26/growons-orders/internal/orders"
	"github.com/shishiro26/growons-orders/internal/postgres"
	"github.com/shishiro26/growons-orders/internal/redisx"
	"github.com/shishiro26/growons-orders/internal/stockwatch"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, int32(cfg.PGMaxConns))
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicAssetStockLow, 1024, logger)
	prod.Start()

	svc := &stockwatch.Service{
		Assets:    &orders.Repo{DB: db},
		Redis:     rdb,
		Producer:  prod,
		Threshold: cfg.LowStockThreshold,
		Name:      cfg.ServiceName + "-stockwatch",
		Logger:    logger,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.StockwatchGroup, orders.TopicOrderPlaced, cfg.StockwatchWorkers, logger)

	go func() {
		logger.Info("stockwatch consumer started",
			zap.String("group", cfg.StockwatchGroup),
			zap.String("topic", orders.TopicOrderPlaced),
			zap.Int("workers", cfg.StockwatchWorkers))
		if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down consumer")
	cancel()
	time.Sleep(500 * time.Millisecond)
	prod.Close()
	prod.WaitClosed()
}
