package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/app"
	"github.com/jafarshop/relister/internal/config"
	"github.com/jafarshop/relister/internal/service"
)

// Usage: upload [-settings settings.json] [-category 62634] <url>
func main() {
	_ = godotenv.Load()

	settingsPath := flag.String("settings", "", "JSON file with per-request settings")
	categoryCode := flag.Int64("category", 0, "display category code to use instead of keyword rules")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: upload [-settings file] [-category code] <url>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	defer logger.Sync()

	settings, err := readSettings(*settingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	res, err := a.Uploader.Upload(ctx, service.UploadRequest{URL: flag.Arg(0), Settings: settings, CategoryCode: *categoryCode})
	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	if err != nil {
		os.Exit(1)
	}
}

func readSettings(path string) (config.Settings, error) {
	var s config.Settings
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings: %w", err)
	}
	return s, nil
}
