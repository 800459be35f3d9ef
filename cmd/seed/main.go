// Package main seeds the database with the demo dataset.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/secretlease/marketplace/internal/app/storage/postgres"
	"github.com/secretlease/marketplace/internal/config"
	"github.com/secretlease/marketplace/internal/platform/migrations"
	"github.com/secretlease/marketplace/internal/seed"
	"github.com/secretlease/marketplace/pkg/logger"
)

func main() {
	paramsPath := flag.String("params", "", "Optional YAML file overriding seed parameters")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Database.DSN == "" {
		log.Fatalf("DATABASE_URL is required to seed")
	}

	seedLog := logger.NewDefault("seed")

	params := seed.DefaultParams()
	if *paramsPath != "" {
		params, err = seed.LoadParams(*paramsPath)
		if err != nil {
			log.Fatalf("load seed params: %v", err)
		}
	}

	db, err := sqlx.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}
	if err := migrations.Apply(ctx, db.DB); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	store := postgres.New(db)
	err = seed.Run(ctx, seed.Stores{
		Accounts:     store,
		Transactions: store,
		Listings:     store,
		Config:       store,
	}, params, seedLog)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
}
