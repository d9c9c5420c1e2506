// Package extract recovers product variants from a source page by trying a
// fixed list of strategies until one yields usable options.
package extract

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/internal/source"
	"github.com/jafarshop/relister/internal/textnorm"
)

// StrategyNone is reported when no strategy produced variants
const StrategyNone = "none"

// Strategy is one way of reading variants off a page
type Strategy interface {
	Name() string
	// TryExtract returns the variants it found. An empty result is not an error.
	TryExtract(ctx context.Context, doc source.Document, basePrice int) ([]domain.Variant, error)
}

// Attempt records what one strategy produced, for diagnostics
type Attempt struct {
	Strategy string `json:"strategy"`
	Found    int    `json:"found"`
	Kept     int    `json:"kept"`
	Error    string `json:"error,omitempty"`
}

// Result is the outcome of running the chain
type Result struct {
	Variants []domain.Variant `json:"variants"`
	Strategy string           `json:"strategyUsed"`
	Attempts []Attempt        `json:"attempts"`
}

// Chain runs strategies in order and stops at the first one whose output
// survives the option filter.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewChain creates a chain over the given strategies, in order
func NewChain(logger *zap.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{strategies: strategies, logger: logger}
}

// NewDefaultChain builds the standard order: runtime state, inline script,
// variant table, option popup, page text.
func NewDefaultChain(logger *zap.Logger) *Chain {
	return NewChain(logger,
		&RuntimeStateStrategy{},
		&InlineScriptStrategy{},
		&TableStrategy{},
		&PopupStrategy{},
		&PageTextStrategy{},
	)
}

// Extract runs the chain. Strategies run one at a time because they share
// the document's session. Zero variants is a valid result.
func (c *Chain) Extract(ctx context.Context, doc source.Document, basePrice int) Result {
	res := Result{Variants: []domain.Variant{}, Strategy: StrategyNone}

	for _, s := range c.strategies {
		if ctx.Err() != nil {
			break
		}
		attempt := Attempt{Strategy: s.Name()}
		found, err := s.TryExtract(ctx, doc, basePrice)
		if err != nil {
			attempt.Error = err.Error()
			c.logger.Debug("Extraction strategy failed", zap.String("strategy", s.Name()), zap.Error(err))
		}
		attempt.Found = len(found)

		kept := Filter(found)
		attempt.Kept = len(kept)
		res.Attempts = append(res.Attempts, attempt)

		if len(kept) > 0 {
			res.Variants = Unique(kept)
			res.Strategy = s.Name()
			c.logger.Info("Variants extracted",
				zap.String("strategy", s.Name()),
				zap.Int("found", len(found)),
				zap.Int("kept", len(kept)),
			)
			return res
		}
	}

	c.logger.Info("No variants found, listing as single item", zap.String("url", doc.URL()))
	return res
}

// Filter drops variants whose label is page chrome rather than an option
func Filter(variants []domain.Variant) []domain.Variant {
	out := make([]domain.Variant, 0, len(variants))
	for _, v := range variants {
		if textnorm.IsDenied(v.Label) {
			continue
		}
		if !textnorm.IsLikelyOption(textnorm.Normalize(v.Label)) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Unique disambiguates variants sharing a label, price delta and values by
// appending " (n)" to the later ones. A suffixed label never repeats a label
// already emitted. Nothing is dropped.
func Unique(variants []domain.Variant) []domain.Variant {
	seen := make(map[string]int, len(variants))
	used := make(map[string]bool, len(variants))
	for _, v := range variants {
		used[strings.ToLower(textnorm.CollapseSpace(v.Label))] = true
	}
	out := make([]domain.Variant, 0, len(variants))
	for _, v := range variants {
		label := textnorm.CollapseSpace(v.Label)
		key := uniqueKey(label, v)
		seen[key]++
		if seen[key] > 1 {
			n := seen[key]
			for used[strings.ToLower(fmt.Sprintf("%s (%d)", label, n))] {
				n++
			}
			label = fmt.Sprintf("%s (%d)", label, n)
			used[strings.ToLower(label)] = true
		}
		v.Label = label
		out = append(out, v)
	}
	return out
}

func uniqueKey(label string, v domain.Variant) string {
	parts := make([]string, 0, len(v.Values))
	for _, val := range v.Values {
		parts = append(parts, strings.TrimSpace(val.OptionName)+":"+strings.TrimSpace(val.OptionValue))
	}
	return fmt.Sprintf("%s::%d::%s", strings.ToLower(label), v.PriceDelta, strings.Join(parts, "|"))
}

func intPtr(n int) *int {
	return &n
}
