package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/jafarshop/relister/internal/app"
	"github.com/jafarshop/relister/internal/config"
	"github.com/jafarshop/relister/internal/repository/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if !cfg.Database.Enabled() {
		fmt.Fprintln(os.Stderr, "DB_HOST is not set")
		os.Exit(1)
	}
	ctx := context.Background()

	// First, connect to postgres database to create the target database if needed
	admin := cfg.Database
	admin.DBName = "postgres"
	postgresDB, err := sql.Open("postgres", postgres.DSN(admin))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to postgres database: %v\n", err)
		os.Exit(1)
	}
	defer postgresDB.Close()

	var exists bool
	err = postgresDB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", cfg.Database.DBName,
	).Scan(&exists)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to check database existence: %v\n", err)
		os.Exit(1)
	}
	if !exists {
		fmt.Printf("Database '%s' does not exist. Creating...\n", cfg.Database.DBName)
		if _, err := postgresDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %q", cfg.Database.DBName)); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create database: %v\n", err)
			os.Exit(1)
		}
	}

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	migrationPath := app.MigrationPath
	if len(os.Args) > 1 {
		migrationPath = os.Args[1]
	}

	applied, err := postgres.RunMigrations(ctx, db, migrationPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if !applied {
		fmt.Println("Migration already applied (some objects already exist)")
	}
	fmt.Println("Migration completed successfully!")
}
