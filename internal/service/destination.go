package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/category"
	"github.com/jafarshop/relister/internal/config"
	"github.com/jafarshop/relister/internal/coupang"
	"github.com/jafarshop/relister/internal/domain"
)

// ListingReader reads back a submitted listing
type ListingReader interface {
	GetListing(ctx context.Context, sellerProductID int64) (*coupang.Response, error)
	GetListingHistories(ctx context.Context, sellerProductID int64) (*coupang.Response, error)
}

// Destination is the marketplace seller API as the uploader uses it
type Destination interface {
	category.Catalog
	ListingReader
	CreateListing(ctx context.Context, payload *domain.ListingPayload) (*coupang.CreateResult, error)
	RequestApproval(ctx context.Context, sellerProductID int64) (*coupang.Response, error)
}

// DestinationFactory opens a destination for one seller account. Accounts can
// differ per request because settings may carry credentials.
type DestinationFactory func(account config.CoupangConfig) Destination

// CoupangDestinations returns a factory building signed seller API clients
func CoupangDestinations(logger *zap.Logger) DestinationFactory {
	return func(account config.CoupangConfig) Destination {
		return coupang.NewClient(account, logger)
	}
}
