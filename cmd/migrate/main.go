package main

import (
	"fmt"
	"os"

	"github.com/pratik-mahalle/alertroute/internal/config"
	"github.com/pratik-mahalle/alertroute/internal/repository/postgres"
	"github.com/pratik-mahalle/alertroute/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := postgres.New(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Printf("Connected to %s database\n", cfg.Database.Driver)
	migrationsFS := migrations.GetFS(cfg.Database.Driver)

	if len(os.Args) > 1 && os.Args[1] == "status" {
		// A missing schema_migrations table means nothing was applied yet
		applied, err := postgres.AppliedMigrations(db)
		if err != nil {
			applied = map[string]bool{}
		}
		pending, err := postgres.PendingMigrations(migrationsFS, applied)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list migrations: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%d applied, %d pending\n", len(applied), len(pending))
		for _, name := range pending {
			fmt.Printf("  pending: %s\n", name)
		}
		return
	}

	count, err := postgres.RunMigrations(db, migrationsFS)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	if count == 0 {
		fmt.Println("No pending migrations")
		return
	}
	fmt.Printf("Applied %d migration(s) successfully\n", count)
}
