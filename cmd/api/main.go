package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mentor-chat/internal/config"
	"mentor-chat/internal/db"
	apihttp "mentor-chat/internal/http"
	"mentor-chat/internal/llm"
	"mentor-chat/internal/repository"
	"mentor-chat/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Persistencia inyectable: postgres si hay DATABASE_URL, redis si hay
	// REDIS_ADDR, memoria en cualquier otro caso.
	var kv repository.KVStore = repository.NewMemoryKV()
	switch {
	case cfg.DatabaseURL != "":
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		pgKV := repository.NewPgKVStore(pool)
		if err := pgKV.Init(ctx); err != nil {
			logger.Fatal("db init", zap.Error(err))
		}
		kv = pgKV
	case cfg.RedisAddr != "":
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := redisClient.Ping(ctxPing).Err()
		cancel()
		if err != nil {
			logger.Fatal("redis ping failed", zap.Error(err))
		}
		kv = repository.NewRedisKVStore(redisClient)
	default:
		logger.Warn("no persistence backend configured, sessions live in memory only")
	}

	sessionRepo := repository.NewKVSessionRepository(kv)
	streamClient := llm.NewHTTPClient(cfg.BackendURL, cfg.BackendAPIKey, cfg.SystemInstruction, logger)

	chatSvc, err := service.NewChatService(ctx, sessionRepo, streamClient, logger)
	if err != nil {
		logger.Fatal("chat service init", zap.Error(err))
	}

	chatHandler := apihttp.NewChatHandler(logger, chatSvc)
	router := apihttp.NewRouter(logger, chatHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
