// Package app wires configuration into a ready Uploader and its collaborators.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/category"
	"github.com/jafarshop/relister/internal/config"
	"github.com/jafarshop/relister/internal/events"
	"github.com/jafarshop/relister/internal/extract"
	"github.com/jafarshop/relister/internal/listing"
	"github.com/jafarshop/relister/internal/media"
	"github.com/jafarshop/relister/internal/productpage"
	"github.com/jafarshop/relister/internal/repository"
	"github.com/jafarshop/relister/internal/repository/postgres"
	"github.com/jafarshop/relister/internal/service"
	"github.com/jafarshop/relister/internal/source"
)

// MigrationPath is the schema applied on startup when a database is configured
const MigrationPath = "migrations/000001_init_schema.up.sql"

// App holds the wired services of one process
type App struct {
	Config   *config.Config
	Uploader *service.Uploader
	Repos    *repository.Repositories
	Images   *media.Downloader
	Session  *source.HTTPSession

	closers []func() error
	logger  *zap.Logger
}

// NewLogger returns the production logger in production, the development one otherwise
func NewLogger(cfg *config.Config) *zap.Logger {
	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	return logger
}

// New builds the upload pipeline. Redis, Postgres, Kafka and the webhook are
// wired only when configured.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, logger: logger}

	session, err := source.NewHTTPSession(cfg.Source.StorageStatePath, cfg.Source.Timeout, logger)
	if err != nil {
		return nil, err
	}
	a.Session = session
	a.Images = media.NewDownloader(session.HTTPClient(), cfg.Media.OutDir, cfg.Media.Concurrency, logger)

	resolver := category.NewResolver(
		category.LoadRules(cfg.Category.RulesPath, cfg.Category.MapJSON, logger),
		a.categoryCache(ctx),
		logger,
	)

	if cfg.Database.Enabled() {
		db, err := postgres.NewConnection(cfg.Database)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := migrate(ctx, db, logger); err != nil {
			a.Close()
			return nil, err
		}
		a.Repos = postgres.NewRepositories(db, logger)
	}

	var publishers events.Multi
	if len(cfg.Kafka.Brokers) > 0 {
		publishers = append(publishers, events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger))
	}
	if cfg.WebhookURL != "" {
		publishers = append(publishers, events.NewWebhookPublisher(cfg.WebhookURL, logger))
	}
	a.closers = append(a.closers, publishers.Close)

	deps := service.Dependencies{
		Parser:   productpage.NewParser(session, extract.NewDefaultChain(logger), logger),
		Images:   a.Images,
		Resolver: resolver,
		Poller:   service.NewApprovalPoller(cfg.Approval.Attempts, cfg.Approval.Delay, logger),
		Events:   publishers,
	}
	if a.Repos != nil {
		deps.Uploads = a.Repos.Upload
	}

	a.Uploader = service.NewUploader(deps, service.Options{
		Account:        cfg.Coupang,
		Defaults:       cfg.Defaults,
		LocalImageBase: cfg.Media.LocalImageBase,
		Return:         listing.DefaultReturnContact(),
	}, logger)
	return a, nil
}

// categoryCache layers the in-process cache over Redis when Redis is reachable
func (a *App) categoryCache(ctx context.Context) category.ValidityCache {
	local := category.NewMemoryCache(a.Config.Category.CacheTTL)
	if a.Config.Redis.Addr == "" {
		return local
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	shared, err := category.NewRedisCache(pingCtx, a.Config.Redis.Addr, a.Config.Redis.Password, a.Config.Redis.DB, a.Config.Category.CacheTTL)
	if err != nil {
		a.logger.Warn("Redis unavailable, using in-process category cache", zap.Error(err))
		return local
	}
	a.closers = append(a.closers, shared.Close)
	return category.LayeredCache{local, shared}
}

func migrate(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	applied, err := postgres.RunMigrations(ctx, db, MigrationPath)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if applied {
		logger.Info("Database schema created")
	}
	return nil
}

// Close releases connections in reverse order of creation
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
