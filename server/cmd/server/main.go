package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"docconverter/engine"
	"docconverter/server/cache"
	"docconverter/server/config"
	"docconverter/server/database"
	"docconverter/server/events"
	"docconverter/server/handlers"
	"docconverter/server/middleware"
	"docconverter/server/registry"
	"docconverter/server/service"
	"docconverter/server/store"
)

func main() {
	godotenv.Load()

	cfg := config.Load()

	logger, _ := zap.NewProduction()
	if cfg.Env == "development" {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	logger.Info("Conversion service starting",
		zap.String("port", cfg.Port),
		zap.String("engine_bin", cfg.EngineBin),
		zap.Int("convert_concurrency", cfg.ConvertConcurrency),
	)

	st, err := store.New(logger)
	if err != nil {
		logger.Fatal("Failed to create storage directories", zap.Error(err))
	}
	defer st.Close()

	eng := engine.NewCommandEngine(cfg.EngineBin, logger)
	probeCtx, cancelProbe := context.WithTimeout(context.Background(), 10*time.Second)
	if err := eng.Ready(probeCtx); err != nil {
		logger.Warn("Conversion engine is not ready, conversions may fail", zap.Error(err))
	}
	cancelProbe()

	svc := service.NewConvertService(registry.New(), st, eng, cfg.ConvertConcurrency, logger)

	if cfg.RedisAddr != "" {
		redisCache, err := database.ConnectCache(cfg.RedisAddr)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisCache.Close()
		svc.WithStatusMirror(cache.NewStatusMirror(redisCache))
		logger.Info("Status mirror enabled", zap.String("redis_addr", cfg.RedisAddr))
	}

	if cfg.KafkaBrokers != "" {
		producer, err := events.NewProducer(strings.Split(cfg.KafkaBrokers, ","))
		if err != nil {
			logger.Fatal("Failed to connect to kafka", zap.Error(err))
		}
		defer producer.Close()
		svc.WithEventProducer(producer)
		logger.Info("Task events enabled", zap.String("brokers", cfg.KafkaBrokers))
	}

	mux := http.NewServeMux()
	handler := handlers.NewConvertHandler(svc, cfg.MaxUploadSize, logger)
	handler.Register(mux)

	chain := middleware.TraceID(
		middleware.Logging(logger)(
			middleware.Recovery(logger)(mux),
		),
	)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: chain,
	}

	if cfg.ArtifactTTL > 0 {
		go sweepLoop(st, cfg.ArtifactTTL)
	}

	go func() {
		logger.Info("Server started", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}

	svc.Wait()
	logger.Info("Server stopped")
}

func sweepLoop(st *store.Store, ttl time.Duration) {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()

	for range ticker.C {
		st.Sweep(ttl)
	}
}
