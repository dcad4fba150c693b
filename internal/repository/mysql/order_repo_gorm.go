package mysql

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"agromarket/internal/domain"
	"agromarket/internal/repository"
)

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, order *domain.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return errors.Wrap(err, "insert order")
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find order")
	}
	return &o, nil
}

func (r *orderRepo) FindByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(err, "find orders by buyer")
	}
	return out, nil
}

func (r *orderRepo) FindByStatus(ctx context.Context, statuses []domain.OrderStatus) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(err, "find orders by status")
	}
	return out, nil
}

func (r *orderRepo) FindAll(ctx context.Context) ([]domain.Order, error) {
	var out []domain.Order
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "find all orders")
	}
	return out, nil
}

// UpdateStatus is a single guarded UPDATE: the row changes only while its
// status still equals the expected value, so concurrent transitions cannot
// both apply.
func (r *orderRepo) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, deliveryPartnerID string) (bool, error) {
	updates := map[string]any{"status": to}
	if deliveryPartnerID != "" {
		updates["delivery_partner_id"] = deliveryPartnerID
	}
	res := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "update order status")
	}
	return res.RowsAffected > 0, nil
}
