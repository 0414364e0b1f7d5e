package main

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/joelikeyan/Open-world-game/internal/config"
)

type manifest struct {
	BuiltAt time.Time `json:"builtAt"`
	Assets  []string  `json:"assets"`
}

func main() {
	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	outputDir := filepath.Join(cfg.WorldOutput, "world")
	if err := copyDir(cfg.WorldDir, outputDir); err != nil {
		log.Fatalf("Failed to copy world assets: %v", err)
	}
	if err := writeManifest(outputDir); err != nil {
		log.Fatalf("Failed to write manifest: %v", err)
	}

	log.Printf("World assets packaged to %s", outputDir)
}

func copyDir(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func writeManifest(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	assets := make([]string, 0, len(entries))
	for _, entry := range entries {
		assets = append(assets, entry.Name())
	}

	data, err := json.MarshalIndent(manifest{BuiltAt: time.Now().UTC(), Assets: assets}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644)
}
