package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"agromarket/internal/domain"
)

// ListingQuery narrows catalog reads. Zero values impose no constraint.
type ListingQuery struct {
	CropNameContains string
	MaxPrice         *decimal.Decimal
	OnlyAvailable    bool
	FarmerID         string
}

// ListingRepository is the catalog's storage port. ReserveQuantity must be
// atomic per listing: a decrement only applies when the remaining quantity
// covers it.
type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) error
	// FindByID returns (nil, nil) when no such listing exists.
	FindByID(ctx context.Context, id string) (*domain.Listing, error)
	List(ctx context.Context, q ListingQuery) ([]domain.Listing, error)
	Update(ctx context.Context, listing *domain.Listing) error
	// ReserveQuantity decrements quantity by amount, failing with
	// domain.ErrInsufficientStock when amount exceeds what remains. A
	// listing drained to zero is marked sold.
	ReserveQuantity(ctx context.Context, id string, amount int) error
	// ReleaseQuantity returns previously reserved units, reopening a sold
	// listing. Used to roll back partially reserved checkouts.
	ReleaseQuantity(ctx context.Context, id string, amount int) error
}
