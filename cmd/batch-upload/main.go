package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/app"
	"github.com/jafarshop/relister/internal/config"
	"github.com/jafarshop/relister/internal/report"
	"github.com/jafarshop/relister/internal/service"
)

// Usage: batch-upload [-delay 3s] [-out out] [urls.txt|urls.xlsx]
//
// Each input line is a URL or "categoryCode|url"; blank lines and # comments
// are skipped. Results are appended to <out>/upload_results.jsonl and written
// to a timestamped spreadsheet at the end.
func main() {
	_ = godotenv.Load()

	delay := flag.Duration("delay", batchDelay(), "pause between uploads (BATCH_DELAY_MS)")
	outDir := flag.String("out", "out", "report directory")
	flag.Parse()
	input := "urls.txt"
	if flag.NArg() > 0 {
		input = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	defer logger.Sync()

	lines, err := readInput(input)
	if err != nil {
		logger.Fatal("Failed to read input", zap.String("path", input), zap.Error(err))
	}
	if len(lines) == 0 {
		logger.Fatal("No URLs to upload", zap.String("path", input))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	jsonl, err := report.NewJSONLWriter(filepath.Join(*outDir, "upload_results.jsonl"))
	if err != nil {
		logger.Fatal("Failed to open report", zap.Error(err))
	}
	defer jsonl.Close()

	logger.Info("Batch started", zap.Int("urls", len(lines)), zap.Duration("delay", *delay))
	var entries []report.Entry
	var ok, failed int
	for i, line := range lines {
		if ctx.Err() != nil {
			break
		}
		started := time.Now()
		res, err := a.Uploader.Upload(ctx, service.UploadRequest{URL: line.URL, CategoryCode: line.CategoryCode})
		entry := report.NewEntry(line, res, err, started, time.Now())
		entries = append(entries, entry)
		if err := jsonl.Write(entry); err != nil {
			logger.Error("Failed to write report line", zap.Error(err))
		}

		if entry.OK {
			ok++
		} else {
			failed++
		}
		logger.Info("Batch item finished",
			zap.Int("index", i+1),
			zap.Int("total", len(lines)),
			zap.String("url", line.URL),
			zap.Bool("ok", entry.OK),
			zap.String("reason", entry.Reason),
		)

		if i < len(lines)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(*delay):
			}
		}
	}

	xlsxPath := filepath.Join(*outDir, report.FileName("upload_results", ".xlsx", time.Now()))
	if err := report.WriteXLSX(xlsxPath, entries); err != nil {
		logger.Error("Failed to write spreadsheet", zap.Error(err))
	}
	logger.Info("Batch finished",
		zap.Int("ok", ok),
		zap.Int("failed", failed),
		zap.String("report", xlsxPath),
	)
}

func readInput(path string) ([]report.Line, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return report.ReadLinesXLSX(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return report.ReadLines(f)
}

func batchDelay() time.Duration {
	ms, err := strconv.Atoi(os.Getenv("BATCH_DELAY_MS"))
	if err != nil || ms < 0 {
		return 3 * time.Second
	}
	return time.Duration(ms) * time.Millisecond
}
