package main

import (
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joelikeyan/Open-world-game/internal/config"
)

func main() {
	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.BackupDirectory, 0o755); err != nil {
		log.Fatalf("Failed to create backup directory: %v", err)
	}

	timestamp := strings.NewReplacer(":", "-", ".", "-").Replace(time.Now().UTC().Format(time.RFC3339))
	filePath := filepath.Join(cfg.BackupDirectory, "backup-"+timestamp+".sql")

	dump := exec.Command("pg_dump", "-f", filePath, cfg.DatabaseURL)
	dump.Stdout = os.Stdout
	dump.Stderr = os.Stderr
	if err := dump.Run(); err != nil {
		log.Fatalf("pg_dump failed: %v", err)
	}

	log.Printf("Backup written to %s", filePath)
}
