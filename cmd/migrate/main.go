package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"

	"github.com/ubi-mobility/payment-core/internal/config"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/postgres"
	"github.com/ubi-mobility/payment-core/internal/validator"
)

// Applies the SQL files under migrations/ in lexical order, recording each in
// schema_migrations so reruns are no-ops.
func main() {
	dir := flag.String("dir", "migrations", "directory containing .sql migration files")
	flag.Parse()

	time.Local = time.UTC
	_ = godotenv.Load()
	validator.NewValidator()

	log, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL
		)`); err != nil {
		log.Fatalf("failed to prepare schema_migrations: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.sql"))
	if err != nil {
		log.Fatalf("failed to list migrations: %v", err)
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		name := filepath.Base(file)

		var exists bool
		if err := db.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name); err != nil {
			log.Fatalf("failed to check migration %s: %v", name, err)
		}
		if exists {
			continue
		}

		contents, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("failed to read migration %s: %v", name, err)
		}

		err = db.WithTx(ctx, func(ctx context.Context) error {
			if _, err := db.GetQuerier(ctx).ExecContext(ctx, string(contents)); err != nil {
				return err
			}
			_, err := db.GetQuerier(ctx).ExecContext(ctx,
				`INSERT INTO schema_migrations (name, applied_at) VALUES ($1, $2)`,
				name, time.Now().UTC())
			return err
		})
		if err != nil {
			log.Fatalf("migration %s failed: %v", name, err)
		}

		log.Infow("applied migration", "name", name)
		applied++
	}

	log.Infow("migrations up to date", "applied", applied, "total", len(files))
}
