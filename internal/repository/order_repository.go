package repository

import (
	"context"

	"agromarket/internal/domain"
)

// OrderRepository is the order ledger's storage port. Implementations must
// make UpdateStatus a compare-and-swap on the current status so two
// concurrent transitions can never both apply.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	// FindByID returns (nil, nil) when no such order exists.
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error)
	FindByStatus(ctx context.Context, statuses []domain.OrderStatus) ([]domain.Order, error)
	FindAll(ctx context.Context) ([]domain.Order, error)
	// UpdateStatus applies from->to only if the stored status still equals
	// from, recording deliveryPartnerID when non-empty. It reports whether
	// the swap applied.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, deliveryPartnerID string) (bool, error)
}
