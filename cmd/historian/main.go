// cmd/historian/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/palace/internal/cache"
	"github.com/jason-s-yu/palace/internal/config"
	"github.com/jason-s-yu/palace/internal/database"
	"github.com/jason-s-yu/palace/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := config.NewHistorianCommand(&config.Historian{}, run)
	if err := cmd.ExecuteContext(ctx); err != nil {
		logrus.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Historian) error {
	logger := cfg.Logger()
	if cfg.RedisAddr == "" {
		return errors.New("--redis-addr is required")
	}

	pool, err := database.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	svc := historian.NewService(cache.NewQueue(rdb, cfg.QueueName), database.NewStore(pool), historian.Options{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		Inactivity:    cfg.Inactivity,
		Logger:        logger,
	})
	logger.Infof("Historian listening on Redis list %s", cfg.QueueName)
	return svc.Run(ctx)
}
