package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/app"
	"github.com/jafarshop/relister/internal/config"
	"github.com/jafarshop/relister/internal/coupang"
	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/internal/repository/postgres"
	"github.com/jafarshop/relister/internal/service"
)

// Usage: request-approval [-run <upload id>] <sellerProductId>
//
// Requests approval for a listing created without auto-request, then polls
// its status. With -run, the upload record is updated with the outcome.
func main() {
	_ = godotenv.Load()

	runID := flag.String("run", "", "upload record to update")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: request-approval [-run id] <sellerProductId>")
		os.Exit(2)
	}
	sellerProductID, err := strconv.ParseInt(flag.Arg(0), 10, 64)
	if err != nil || sellerProductID <= 0 {
		fmt.Fprintf(os.Stderr, "invalid sellerProductId: %s\n", flag.Arg(0))
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	defer logger.Sync()

	if missing := (config.Settings{}).WithAccount(cfg.Coupang).MissingCredentials(); len(missing) > 0 {
		logger.Fatal("Missing seller credentials", zap.Strings("keys", missing))
	}

	ctx := context.Background()
	client := coupang.NewClient(cfg.Coupang, logger)

	resp, err := client.RequestApproval(ctx, sellerProductID)
	if err != nil {
		logger.Fatal("Approval request failed", zap.Error(err))
	}
	fmt.Printf("Approval requested (status %d): %s\n", resp.Status, resp.Body)

	outcome := service.NewApprovalPoller(cfg.Approval.Attempts, cfg.Approval.Delay, logger).Poll(ctx, client, sellerProductID)
	fmt.Printf("Listing status: %s\n", outcome.Status)
	if outcome.Approved() && outcome.Last != nil {
		if pid, ok := coupang.ProductID(outcome.Last.Body); ok {
			fmt.Printf("Product URL: %s\n", coupang.ProductURL(pid))
		}
	}

	if *runID == "" {
		return
	}
	id, err := uuid.Parse(*runID)
	if err != nil {
		logger.Fatal("Invalid upload id", zap.String("run", *runID), zap.Error(err))
	}
	if !cfg.Database.Enabled() {
		logger.Fatal("DB_HOST is required with -run")
	}
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	uploads := postgres.NewUploadRepository(db, logger)
	record, err := uploads.GetByID(ctx, id)
	if err != nil {
		logger.Fatal("Failed to load upload record", zap.Error(err))
	}
	status := record.Status
	switch {
	case outcome.Approved():
		status = domain.RunStatusApproved
	case outcome.Status == domain.ApprovalStateRejected:
		status = domain.RunStatusFailed
	}
	if err := uploads.UpdateApprovalStatus(ctx, id, status, string(outcome.Status)); err != nil {
		logger.Fatal("Failed to update upload record", zap.Error(err))
	}
	logger.Info("Upload record updated", zap.String("run", id.String()), zap.String("status", string(status)))
}
