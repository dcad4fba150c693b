package mysql

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"agromarket/internal/domain"
	"agromarket/internal/repository"
)

type listingRepo struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) repository.ListingRepository {
	return &listingRepo{db: db}
}

func (r *listingRepo) Create(ctx context.Context, listing *domain.Listing) error {
	if err := r.db.WithContext(ctx).Create(listing).Error; err != nil {
		return errors.Wrap(err, "insert listing")
	}
	return nil
}

func (r *listingRepo) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	var l domain.Listing
	err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find listing")
	}
	return &l, nil
}

func (r *listingRepo) List(ctx context.Context, q repository.ListingQuery) ([]domain.Listing, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Listing{})
	if q.CropNameContains != "" {
		tx = tx.Where("crop_name LIKE ?", "%"+q.CropNameContains+"%")
	}
	if q.MaxPrice != nil {
		tx = tx.Where("price <= ?", q.MaxPrice)
	}
	if q.OnlyAvailable {
		tx = tx.Where("status = ? AND quantity > 0", domain.ListingAvailable)
	}
	if q.FarmerID != "" {
		tx = tx.Where("farmer_id = ?", q.FarmerID)
	}
	var out []domain.Listing
	if err := tx.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "list listings")
	}
	return out, nil
}

func (r *listingRepo) Update(ctx context.Context, listing *domain.Listing) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Listing{}).
		Where("id = ?", listing.ID).
		Updates(map[string]any{
			"price":    listing.Price,
			"quantity": listing.Quantity,
			"status":   listing.Status,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update listing")
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReserveQuantity decrements stock in one guarded statement so concurrent
// checkouts against the same listing serialize on the row. A listing drained
// to zero flips to sold.
func (r *listingRepo) ReserveQuantity(ctx context.Context, id string, amount int) error {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE listings
		SET quantity = quantity - ?,
		    status = CASE WHEN quantity - ? <= 0 THEN 'sold' ELSE status END
		WHERE id = ? AND status = 'available' AND quantity >= ?`,
		amount, amount, id, amount)
	if res.Error != nil {
		return errors.Wrap(res.Error, "reserve quantity")
	}
	if res.RowsAffected == 0 {
		exists, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if exists == nil {
			return domain.ErrNotFound
		}
		return domain.ErrInsufficientStock
	}
	return nil
}

func (r *listingRepo) ReleaseQuantity(ctx context.Context, id string, amount int) error {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE listings
		SET quantity = quantity + ?,
		    status = CASE WHEN status = 'sold' THEN 'available' ELSE status END
		WHERE id = ?`,
		amount, id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "release quantity")
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
