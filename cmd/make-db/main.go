// make-db creates the SQL schema used by the sql sink, or drops it with -drop.
//
//	go run ./cmd/make-db -config configs/production.yaml
//	DATABASE_DSN='postgres://...' go run ./cmd/make-db -drop
package main

import (
	"context"
	"flag"
	"log"
	"os"
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
	drop := flag.Bool("drop", false, "Drop the tables instead of creating them")
	flag.Parse()

	cfg, err := pkgconfig.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// OpenSQL creates the schema on connect.
	db, err := storage.OpenSQL(ctx, cfg.Storage.SQL, "make-db")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *drop {
		if err := db.DropSchema(ctx); err != nil {
			log.Fatalf("Failed to drop schema: %v", err)
		}
		log.Println("Dropped tables")
		return
	}
	log.Printf("Schema ready (%s)", cfg.Storage.SQL.Driver)
}
