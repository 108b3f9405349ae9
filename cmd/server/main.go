package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet_ledger/internal/config"
	"wallet_ledger/internal/handlers"
	"wallet_ledger/internal/infra"
	"wallet_ledger/internal/logging"
	"wallet_ledger/internal/middleware"
	"wallet_ledger/internal/migrations"
	"wallet_ledger/internal/rates"
	"wallet_ledger/internal/repository"
	"wallet_ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	logger := logging.SetupLogger(cfg.LogLevel)

	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var store repository.Store
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("Using in-memory store, data is lost on restart")
		store = repository.NewMemoryRepository(logger)
	default:
		if cfg.RunMigrations {
			if err := migrations.Up(cfg.DBURL, logger); err != nil {
				logger.Error("failed to apply migrations", slog.Any("err", err))
				os.Exit(1)
			}
		}
		poolConfig, err := pgxpool.ParseConfig(cfg.DBURL)
		if err != nil {
			logger.Error("failed to parse db config", slog.Any("err", err))
			os.Exit(1)
		}
		poolConfig.MaxConns = int32(cfg.DBMaxConns)
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("err", err))
			os.Exit(1)
		}
		defer pool.Close()
		store = repository.NewPGRepository(pool, logger)
	}

	svc := service.NewLedgerService(store, logger,
		service.WithMaxRetries(cfg.MaxRetries),
		service.WithFeeRate(cfg.TransferFeeRate),
	)
	handler := handlers.NewLedgerHTTPHandler(svc, rates.NewStaticResolver())

	var idempotency gin.HandlerFunc
	if cfg.RedisURL != "" {
		client, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("err", err))
			os.Exit(1)
		}
		defer client.Close()
		idempotency = middleware.Idempotency(client, cfg.IdempotencyTTL, logger)
	}

	r := handlers.NewRouter(handler, logger, cfg.CORSAllowedOrigins, idempotency)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Starting server",
			slog.String("port", cfg.Port),
			slog.String("store", cfg.StoreDriver),
			slog.Bool("idempotency_cache", idempotency != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", slog.Any("err", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("Server forced to shutdown", slog.Any("err", err))
	}
	logger.Info("Server exiting")
}
