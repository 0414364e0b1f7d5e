package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/joelikeyan/Open-world-game/internal/config"
	"github.com/joelikeyan/Open-world-game/internal/database"
	"github.com/joelikeyan/Open-world-game/internal/migrate"
)

func main() {
	ctx := context.Background()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create postgres pool: %v", err)
	}
	defer pool.Close()

	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	applied, err := migrate.Apply(ctx, pool, dir)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	for _, file := range applied {
		log.Printf("Applied migration %s", file)
	}
	log.Printf("Migrations complete (%d applied)", len(applied))
}
