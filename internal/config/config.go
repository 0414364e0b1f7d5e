package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerPort        string
	DatabaseURL       string
	RedisURL          string
	BackupDirectory   string
	WorldDir          string
	WorldOutput       string
	HeartbeatInterval time.Duration
	EventLogCapacity  int
}

func LoadConfig() (*Config, error) {
	heartbeatStr := getEnv("HEARTBEAT_INTERVAL", "15s")
	heartbeat, err := time.ParseDuration(heartbeatStr)
	if err != nil {
		return nil, errors.New("invalid HEARTBEAT_INTERVAL format")
	}

	capacityStr := getEnv("EVENT_LOG_CAPACITY", "1000")
	capacity, err := strconv.Atoi(capacityStr)
	if err != nil || capacity <= 0 {
		return nil, errors.New("invalid EVENT_LOG_CAPACITY format")
	}

	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "4000"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		BackupDirectory:   getEnv("BACKUP_DIRECTORY", "backups"),
		WorldDir:          getEnv("WORLD_DIR", "world"),
		WorldOutput:       getEnv("WORLD_OUTPUT", "dist"),
		HeartbeatInterval: heartbeat,
		EventLogCapacity:  capacity,
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
