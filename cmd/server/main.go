// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/palace/internal/auth"
	"github.com/jason-s-yu/palace/internal/cache"
	"github.com/jason-s-yu/palace/internal/config"
	"github.com/jason-s-yu/palace/internal/handlers"
	"github.com/jason-s-yu/palace/internal/room"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

const (
	shutdownTimeout = 10 * time.Second
	journalBuffer   = 1024
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := config.NewServerCommand(&config.Server{}, serve)
	if err := cmd.ExecuteContext(ctx); err != nil {
		logrus.Fatal(err)
	}
}

func serve(ctx context.Context, cfg *config.Server) error {
	logger := cfg.Logger()

	issuer, err := newIssuer(cfg)
	if err != nil {
		return err
	}

	recorder := room.NopRecorder()
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		rr := cache.NewRedisRecorder(rdb, cfg.QueueName, journalBuffer, logger)
		defer rr.Close()
		recorder = rr
		logger.Infof("Journaling game actions to Redis list %s at %s", cfg.QueueName, cfg.RedisAddr)
	}

	m := room.NewManager(room.Options{
		GracePeriod: cfg.GracePeriod,
		Recorder:    recorder,
		Tokens:      issuer,
		Logger:      logger,
	})
	defer m.Close()

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: handlers.NewRouter(logger, m, handlers.RouterConfig{
			AllowedOrigins: cfg.AllowedOrigins,
			PublicURL:      cfg.PublicURL,
			ConnBuffer:     cfg.ConnBuffer,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		// Hijacked sockets outlive Shutdown, so they hang off ctx instead.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s", srv.Addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newIssuer(cfg *config.Server) (*auth.Issuer, error) {
	if cfg.TokenKey != "" {
		return auth.NewIssuerFromPath(cfg.TokenKey, cfg.TokenPublicKey, cfg.TokenTTL)
	}
	return auth.NewIssuer(cfg.TokenTTL)
}
