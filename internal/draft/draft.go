// Package draft validates extracted product fields into a ProductDraft.
package draft

import (
	"math"
	"strconv"
	"strings"

	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/pkg/errors"
)

const (
	// MinPrice is the lowest price the destination accepts
	MinPrice  = 1000
	priceUnit = 10
)

// Fields are the raw values collected from a source page.
// Price is a string so non-numeric scrapes are caught here, not upstream.
type Fields struct {
	SourceURL    string
	Title        string
	Price        string
	ImageURL     string
	ContentText  string
	CategoryText string
	Options      []domain.Variant
}

// Build validates fields and returns an immutable draft. The price is floored
// to the nearest 10 and raised to MinPrice.
func Build(f Fields) (*domain.ProductDraft, error) {
	required := []struct {
		name  string
		value string
	}{
		{"sourceUrl", f.SourceURL},
		{"title", f.Title},
		{"price", f.Price},
		{"imageUrl", f.ImageURL},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, &errors.ErrValidation{
				Message: r.name + " is required",
				Fields:  map[string]string{r.name: "required"},
			}
		}
	}

	raw, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(f.Price), ",", ""), 64)
	if err != nil || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return nil, &errors.ErrValidation{
			Message: "price must be numeric",
			Fields:  map[string]string{"price": "not a number"},
		}
	}
	price := (int(raw) / priceUnit) * priceUnit
	if price < MinPrice {
		price = MinPrice
	}

	options := make([]domain.Variant, len(f.Options))
	copy(options, f.Options)

	return &domain.ProductDraft{
		SourceURL:    strings.TrimSpace(f.SourceURL),
		Title:        strings.TrimSpace(f.Title),
		Price:        price,
		ImageURL:     strings.TrimSpace(f.ImageURL),
		ContentText:  f.ContentText,
		CategoryText: strings.TrimSpace(f.CategoryText),
		Options:      options,
	}, nil
}
