package category

import (
	"context"

	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/domain"
)

// Catalog is the slice of the destination API the resolver consults
type Catalog interface {
	CategoryExists(ctx context.Context, code int64) (bool, error)
	SuggestCategory(ctx context.Context, title, description, imageURL string) (int64, error)
	AutoCategoryAgreed(ctx context.Context) (bool, error)
}

// Resolver picks a display category for a product
type Resolver struct {
	rules  []Rule
	cache  ValidityCache
	logger *zap.Logger
}

// NewResolver creates a resolver. cache may be nil.
func NewResolver(rules []Rule, cache ValidityCache, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{rules: rules, cache: cache, logger: logger}
}

// Rules returns the rules in precedence order
func (r *Resolver) Rules() []Rule {
	return r.rules
}

// Resolve applies the keyword rules to title and breadcrumb text
func (r *Resolver) Resolve(title, categoryText string, fallback int64) int64 {
	return Match(r.rules, title, categoryText, fallback)
}

// Confirm checks that code is currently assignable. A negative or failed check
// returns fallback and false.
func (r *Resolver) Confirm(ctx context.Context, catalog Catalog, code, fallback int64) (int64, bool) {
	if catalog == nil {
		return code, true
	}
	if r.cache != nil {
		if valid, ok := r.cache.Get(ctx, code); ok {
			if valid {
				return code, true
			}
			return fallback, false
		}
	}

	exists, err := catalog.CategoryExists(ctx, code)
	if err != nil {
		r.logger.Warn("Category check failed, using fallback",
			zap.Int64("code", code), zap.Int64("fallback", fallback), zap.Error(err))
		return fallback, false
	}
	if r.cache != nil {
		r.cache.Set(ctx, code, exists)
	}
	if !exists {
		r.logger.Info("Category not assignable, using fallback", zap.Int64("code", code), zap.Int64("fallback", fallback))
		return fallback, false
	}
	return code, true
}

// DecideInput carries what the resolver needs for a full decision
type DecideInput struct {
	Title        string
	CategoryText string
	Description  string
	ImageURL     string
	Fallback     int64
	// AutoCategory asks the destination to assign the category itself when
	// the seller account has agreed to that
	AutoCategory bool
	// Recommend asks the destination for a suggestion before confirming
	Recommend bool
	// Override replaces the keyword match when positive
	Override int64
}

// Decide runs the full flow: keyword rules, then either automatic assignment
// or an optional suggestion followed by a live validity check.
func (r *Resolver) Decide(ctx context.Context, catalog Catalog, in DecideInput) domain.CategoryResolution {
	fallback := in.Fallback
	if fallback == 0 {
		fallback = FallbackCode
	}
	requested := in.Override
	if requested <= 0 {
		requested = r.Resolve(in.Title, in.CategoryText, fallback)
	}
	res := domain.CategoryResolution{Requested: requested}

	if in.AutoCategory && catalog != nil {
		agreed, err := catalog.AutoCategoryAgreed(ctx)
		if err != nil {
			r.logger.Warn("Auto category agreement check failed", zap.Error(err))
		}
		if agreed {
			res.Auto = true
			return res
		}
	}

	code := requested
	if in.Recommend && catalog != nil {
		suggested, err := catalog.SuggestCategory(ctx, in.Title, in.Description, in.ImageURL)
		switch {
		case err != nil:
			r.logger.Warn("Category suggestion failed", zap.Error(err))
		case suggested > 0:
			code = suggested
		}
	}

	used, _ := r.Confirm(ctx, catalog, code, fallback)
	res.Used = &used
	return res
}
