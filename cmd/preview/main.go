package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/app"
	"github.com/jafarshop/relister/internal/config"
	"github.com/jafarshop/relister/internal/service"
)

// Usage: preview <url>
func main() {
	_ = godotenv.Load()

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: preview <url>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	defer logger.Sync()

	// previews never write, so the optional backends stay off
	cfg.Database = config.DatabaseConfig{}
	cfg.Kafka.Brokers = nil
	cfg.WebhookURL = ""

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	res, err := a.Uploader.Preview(context.Background(), service.UploadRequest{URL: os.Args[1]})
	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
