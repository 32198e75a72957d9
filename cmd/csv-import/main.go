// csv-import loads state and lines dumps written by the csv sink into the
// SQL database.
//
//	go run ./cmd/csv-import -config configs/production.yaml -states data/state -lines data/lines
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgconfig "github.com/sbconlon/mlb-scraper/internal/pkg/config"
	"github.com/sbconlon/mlb-scraper/internal/pkg/storage"
)

func main() {
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "configs/production.yaml"
	}
	configPath := flag.String("config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	statesDir := flag.String("states", "", "Directory of state csv files")
	linesDir := flag.String("lines", "", "Directory of lines csv files")
	flag.Parse()

	if *statesDir == "" && *linesDir == "" {
		log.Fatal("at least one of -states or -lines is required")
	}

	cfg, err := pkgconfig.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	db, err := storage.OpenSQL(ctx, cfg.Storage.SQL, "csv-import")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *statesDir != "" {
		n, err := importDir(*statesDir, func(gameID string, f *os.File) (int, error) {
			recs, err := storage.ReadStateCSV(gameID, f)
			if err != nil {
				return 0, err
			}
			for _, r := range recs {
				if err := db.WriteState(ctx, r); err != nil {
					return 0, err
				}
			}
			return len(recs), nil
		})
		if err != nil {
			log.Fatalf("Failed to import states: %v", err)
		}
		log.Printf("Imported %d state rows", n)
	}

	if *linesDir != "" {
		n, err := importDir(*linesDir, func(gameID string, f *os.File) (int, error) {
			recs, err := storage.ReadLinesCSV(gameID, f)
			if err != nil {
				return 0, err
			}
			for _, r := range recs {
				if err := db.WriteLines(ctx, r); err != nil {
					return 0, err
				}
			}
			return len(recs), nil
		})
		if err != nil {
			log.Fatalf("Failed to import lines: %v", err)
		}
		log.Printf("Imported %d lines rows", n)
	}
}

// importDir runs load on every <game id>.csv in dir and returns the total row count.
func importDir(dir string, load func(gameID string, f *os.File) (int, error)) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return 0, err
	}
	total := 0
	for _, path := range paths {
		start := time.Now()
		gameID := strings.TrimSuffix(filepath.Base(path), ".csv")
		f, err := os.Open(path)
		if err != nil {
			return total, err
		}
		n, err := load(gameID, f)
		f.Close()
		if err != nil {
			return total, fmt.Errorf("%s: %w", path, err)
		}
		log.Printf("%s: %d rows in %s", gameID, n, time.Since(start).Round(time.Millisecond))
		total += n
	}
	return total, nil
}
