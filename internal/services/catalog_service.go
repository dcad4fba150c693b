package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"agromarket/internal/domain"
	"agromarket/internal/repository"
)

// ListingFilters are the buyer-facing catalog filters. All supplied filters
// are ANDed; absent filters impose no constraint.
type ListingFilters struct {
	CropNameContains string
	MaxPrice         *decimal.Decimal
	ShelfLifeClass   domain.ShelfLifeClass
}

type CreateListingInput struct {
	CropName      string
	Variety       string
	Price         decimal.Decimal
	Quantity      int
	Unit          domain.Unit
	HarvestDate   time.Time
	ShelfLifeDays int
	Location      domain.Location
}

type UpdateListingInput struct {
	Price    *decimal.Decimal
	Quantity *int
}

// CatalogService owns produce listings and their derived expiry state.
type CatalogService struct {
	listings           repository.ListingRepository
	shortShelfLifeDays int
	log                *logrus.Entry
}

func NewCatalogService(listings repository.ListingRepository, shortShelfLifeDays int, log *logrus.Entry) *CatalogService {
	return &CatalogService{
		listings:           listings,
		shortShelfLifeDays: shortShelfLifeDays,
		log:                log,
	}
}

// ListAvailable returns orderable listings matching all supplied filters,
// newest first. Expired listings are filtered out even when still flagged
// available in storage.
func (s *CatalogService) ListAvailable(ctx context.Context, f ListingFilters) ([]domain.Listing, error) {
	rows, err := s.listings.List(ctx, repository.ListingQuery{
		CropNameContains: f.CropNameContains,
		MaxPrice:         f.MaxPrice,
		OnlyAvailable:    true,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := rows[:0]
	for _, l := range rows {
		if l.Expired(now) {
			continue
		}
		if f.ShelfLifeClass != "" &&
			domain.ClassifyShelfLife(l.ShelfLifeDays, s.shortShelfLifeDays) != f.ShelfLifeClass {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *CatalogService) CreateListing(ctx context.Context, actor *domain.User, in CreateListingInput) (*domain.Listing, error) {
	if actor.Role != domain.RoleFarmer {
		return nil, domain.ErrNotAuthorized
	}
	if in.CropName == "" {
		return nil, domain.NewValidationError("cropName", "required")
	}
	if !in.Price.IsPositive() {
		return nil, domain.NewValidationError("price", "must be positive")
	}
	if in.Quantity < 0 {
		return nil, domain.NewValidationError("quantity", "must not be negative")
	}
	if in.HarvestDate.IsZero() {
		return nil, domain.NewValidationError("harvestDate", "required")
	}
	if in.ShelfLifeDays <= 0 {
		return nil, domain.NewValidationError("shelfLifeDays", "must be positive")
	}
	unit := in.Unit
	if unit == "" {
		unit = domain.UnitKg
	}
	if !domain.ValidUnit(unit) {
		return nil, domain.NewValidationError("unit", "must be one of kg, pieces, dozen, bunch")
	}

	location := in.Location
	if location == (domain.Location{}) {
		// fall back to the farmer's registered location
		location = domain.Location{
			Village:  actor.Location.Address,
			District: actor.Location.City,
			State:    actor.Location.State,
		}
	}

	listing := &domain.Listing{
		ID:            uuid.NewString(),
		FarmerID:      actor.ID,
		FarmerName:    actor.Name,
		CropName:      in.CropName,
		Variety:       in.Variety,
		Price:         in.Price,
		Quantity:      in.Quantity,
		Unit:          unit,
		HarvestDate:   in.HarvestDate,
		ShelfLifeDays: in.ShelfLifeDays,
		ExpiryDate:    domain.ExpiryDate(in.HarvestDate, in.ShelfLifeDays),
		Location:      location,
		Status:        domain.ListingAvailable,
		CreatedAt:     time.Now(),
	}
	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"listing_id": listing.ID,
		"farmer_id":  listing.FarmerID,
		"crop":       listing.CropName,
	}).Info("listing created")
	return listing, nil
}

// UpdateListing applies a partial price/quantity edit by the owning farmer.
// ExpiryDate is untouched: its inputs cannot change here.
func (s *CatalogService) UpdateListing(ctx context.Context, actor *domain.User, listingID string, in UpdateListingInput) (*domain.Listing, error) {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, domain.ErrNotFound
	}
	if actor.Role != domain.RoleFarmer || listing.FarmerID != actor.ID {
		return nil, domain.ErrNotAuthorized
	}

	if in.Price != nil {
		if !in.Price.IsPositive() {
			return nil, domain.NewValidationError("price", "must be positive")
		}
		listing.Price = *in.Price
	}
	if in.Quantity != nil {
		if *in.Quantity < 0 {
			return nil, domain.NewValidationError("quantity", "must not be negative")
		}
		listing.Quantity = *in.Quantity
		if listing.Quantity == 0 {
			listing.Status = domain.ListingSold
		} else if listing.Status == domain.ListingSold {
			listing.Status = domain.ListingAvailable
		}
	}

	if err := s.listings.Update(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}
