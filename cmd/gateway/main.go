package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aman-churiwal/redaction-gateway/internal/config"
	"github.com/aman-churiwal/redaction-gateway/internal/server"
	"github.com/aman-churiwal/redaction-gateway/internal/storage"
	"github.com/aman-churiwal/redaction-gateway/internal/tenant"
)

func main() {
	// Load env if it exists
	godotenv.Load()

	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Redis is optional; without it the limiter and cache run in-process.
	var redis *storage.RedisClient
	if cfg.Redis.Configured() {
		redis, err = storage.NewRedis(cfg.Redis.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("Redis unavailable, using in-process backends: %v", err)
			redis = nil
		} else {
			log.Println("Connected to redis successfully")
			defer redis.Close()
		}
	} else {
		log.Println("Redis not configured, using in-process backends")
	}

	postgres, err := storage.NewPostgres(cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer postgres.Close()

	if err := postgres.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	registry := tenant.Load(cfg.TenantTokensPath)
	log.Printf("Loaded %d tenant tokens from %s", registry.Len(), cfg.TenantTokensPath)

	srv := server.New(cfg, redis, postgres, registry)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	srv.StartJanitor(janitorCtx)

	go func() {
		addr := ":" + cfg.Server.Port
		if err := srv.Run(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
