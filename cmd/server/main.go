package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/joelikeyan/Open-world-game/internal/api"
	"github.com/joelikeyan/Open-world-game/internal/config"
	"github.com/joelikeyan/Open-world-game/internal/database"
	"github.com/joelikeyan/Open-world-game/internal/realtime"
	"github.com/joelikeyan/Open-world-game/internal/repositories"
)

func main() {
	ctx := context.Background()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create postgres pool: %v", err)
	}
	defer postgresPool.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to create redis client: %v", err)
	}
	defer redisClient.Close()

	playerRepo := repositories.NewPostgresPlayerRepository(postgresPool)
	sessionRepo := repositories.NewPostgresSessionRepository(postgresPool)
	positionRepo := repositories.NewPostgresPositionRepository(postgresPool)
	presenceRepo := repositories.NewRedisPresenceRepository(redisClient)

	hub := realtime.NewHub(realtime.Options{
		HeartbeatInterval: cfg.HeartbeatInterval,
		LogCapacity:       cfg.EventLogCapacity,
		Presence:          presenceRepo,
	})

	// Initialize HTTP Server
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	handler := api.NewHandler(playerRepo, sessionRepo, positionRepo, presenceRepo)
	router.Mount("/", handler.Routes())
	router.Method(http.MethodGet, "/ws", hub.Handler())

	if err := hub.Start(); err != nil {
		log.Fatalf("Failed to start presence hub: %v", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		hub.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("Authoritative state service listening on port %s", cfg.ServerPort)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped gracefully")
}
