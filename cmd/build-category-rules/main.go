package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/app"
	"github.com/jafarshop/relister/internal/category"
	"github.com/jafarshop/relister/internal/config"
	"github.com/jafarshop/relister/internal/coupang"
)

// Usage: build-category-rules [-keywords keywords.txt] [-prefer 주방,생활] [-out path]
//
// Walks the marketplace display category tree, matches every keyword onto a
// category name and keeps the first candidate that is still assignable.
func main() {
	_ = godotenv.Load()

	keywordsPath := flag.String("keywords", "data/categoryKeywords.txt", "one keyword per line")
	prefer := flag.String("prefer", "", "comma separated path fragments tried first")
	out := flag.String("out", "", "output path (defaults to CATEGORY_RULES_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	defer logger.Sync()
	if *out == "" {
		*out = cfg.Category.RulesPath
	}

	f, err := os.Open(*keywordsPath)
	if err != nil {
		logger.Fatal("Failed to open keywords", zap.Error(err))
	}
	keywords, err := category.ReadKeywords(f)
	f.Close()
	if err != nil {
		logger.Fatal("Failed to read keywords", zap.Error(err))
	}

	ctx := context.Background()
	client := coupang.NewClient(cfg.Coupang, logger)
	tree, err := client.GetCategoryTree(ctx)
	if err != nil {
		logger.Fatal("Failed to fetch category tree", zap.Error(err))
	}
	flat := category.Flatten(*tree)
	logger.Info("Category tree loaded", zap.Int("categories", len(flat)), zap.Int("keywords", len(keywords)))

	rules, err := category.NewGenerator(client, config.SplitList(*prefer), logger).Build(ctx, keywords, flat)
	if err != nil {
		logger.Fatal("Failed to build rules", zap.Error(err))
	}
	if err := category.WriteRulesFile(*out, rules); err != nil {
		logger.Fatal("Failed to write rules", zap.Error(err))
	}
	logger.Info("Category rules written", zap.String("path", *out), zap.Int("rules", len(rules)))
}
