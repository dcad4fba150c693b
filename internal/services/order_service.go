package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"agromarket/internal/domain"
	"agromarket/internal/infra/rabbitmq"
	"agromarket/internal/repository"
)

// CartLine is one requested purchase against a listing.
type CartLine struct {
	ListingID string
	Quantity  int
}

type CreateOrderInput struct {
	Lines    []CartLine
	Delivery domain.DeliveryInfo
}

// OrderService is the order ledger: it creates order snapshots, enforces the
// status transition table, computes per-role visibility and derives farmer
// earnings.
type OrderService struct {
	orders    repository.OrderRepository
	listings  repository.ListingRepository
	users     repository.UserRepository
	publisher rabbitmq.PublisherInterface
	log       *logrus.Entry
}

func NewOrderService(
	orders repository.OrderRepository,
	listings repository.ListingRepository,
	users repository.UserRepository,
	publisher rabbitmq.PublisherInterface,
	log *logrus.Entry,
) *OrderService {
	return &OrderService{
		orders:    orders,
		listings:  listings,
		users:     users,
		publisher: publisher,
		log:       log,
	}
}

// CreateOrder turns a buyer's cart into a pending order. Reservations are
// all-or-nothing: any failed line releases everything reserved before it.
// Farmer, pickup and price details are snapshotted at call time and never
// recomputed from live records.
func (s *OrderService) CreateOrder(ctx context.Context, actor *domain.User, in CreateOrderInput) (*domain.Order, error) {
	if actor.Role != domain.RoleBuyer {
		return nil, domain.ErrNotAuthorized
	}
	if len(in.Lines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if in.Delivery.Address == "" || in.Delivery.City == "" {
		return nil, domain.NewValidationError("deliveryInfo", "address and city are required")
	}

	now := time.Now()
	listings := make([]*domain.Listing, 0, len(in.Lines))
	farmerID := ""
	for _, line := range in.Lines {
		if line.Quantity <= 0 {
			return nil, domain.NewValidationError("quantity", "must be positive")
		}
		listing, err := s.listings.FindByID(ctx, line.ListingID)
		if err != nil {
			return nil, err
		}
		if listing == nil {
			return nil, domain.ErrNotFound
		}
		if listing.Expired(now) {
			return nil, domain.NewValidationError("listingId", "listing has expired")
		}
		if farmerID == "" {
			farmerID = listing.FarmerID
		} else if listing.FarmerID != farmerID {
			// checked before any reservation so a mixed cart leaves stock untouched
			return nil, domain.ErrMixedFarmers
		}
		listings = append(listings, listing)
	}

	reserved := 0
	for _, line := range in.Lines {
		if err := s.listings.ReserveQuantity(ctx, line.ListingID, line.Quantity); err != nil {
			for j := 0; j < reserved; j++ {
				if relErr := s.listings.ReleaseQuantity(ctx, in.Lines[j].ListingID, in.Lines[j].Quantity); relErr != nil {
					s.log.WithError(relErr).WithField("listing_id", in.Lines[j].ListingID).
						Error("failed to release reservation")
				}
			}
			return nil, err
		}
		reserved++
	}

	order := &domain.Order{
		ID:            uuid.NewString(),
		BuyerID:       actor.ID,
		BuyerName:     actor.Name,
		Status:        domain.StatusPending,
		PickupInfo:    s.pickupSnapshot(ctx, farmerID, listings[0]),
		DeliveryInfo:  in.Delivery,
		Distance:      fmt.Sprintf("%.1f km", rand.Float64()*28+2),
		EstimatedTime: fmt.Sprintf("%d mins", rand.Intn(60)+30),
		CreatedAt:     now,
	}
	if order.DeliveryInfo.BuyerName == "" {
		order.DeliveryInfo.BuyerName = actor.Name
	}
	if order.DeliveryInfo.Phone == "" {
		order.DeliveryInfo.Phone = actor.Phone
	}

	total := decimal.Zero
	for i, line := range in.Lines {
		l := domain.OrderLine{
			ListingID:       line.ListingID,
			FarmerID:        listings[i].FarmerID,
			CropName:        listings[i].CropName,
			Quantity:        line.Quantity,
			PriceAtPurchase: listings[i].Price,
		}
		order.Lines = append(order.Lines, l)
		total = total.Add(l.Total())
	}
	order.TotalAmount = total

	if err := s.orders.Create(ctx, order); err != nil {
		for _, line := range in.Lines {
			if relErr := s.listings.ReleaseQuantity(ctx, line.ListingID, line.Quantity); relErr != nil {
				s.log.WithError(relErr).WithField("listing_id", line.ListingID).
					Error("failed to release reservation")
			}
		}
		return nil, err
	}

	go s.publishEvent(domain.EventOrderCreated, domain.OrderCreatedEvent{
		OrderID:     order.ID,
		BuyerID:     order.BuyerID,
		FarmerID:    farmerID,
		TotalAmount: order.TotalAmount,
		CreatedAt:   order.CreatedAt,
	})

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"buyer_id": order.BuyerID,
		"total":    order.TotalAmount.String(),
	}).Info("order created")
	return order, nil
}

// UpdateStatus applies one transition from the table. The swap is
// compare-and-swap on the current status: a losing concurrent caller
// re-reads the fresh value and is re-evaluated against the table, so two
// requests can never both apply.
func (s *OrderService) UpdateStatus(ctx context.Context, actor *domain.User, orderID string, to domain.OrderStatus) (*domain.Order, error) {
	if !domain.ValidOrderStatus(to) {
		return nil, domain.NewValidationError("status", "unknown status")
	}

	for {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, domain.ErrNotFound
		}

		if !domain.CanTransition(order.Status, to, actor.Role) {
			return nil, domain.ErrInvalidTransition
		}
		switch actor.Role {
		case domain.RoleBuyer:
			if order.BuyerID != actor.ID {
				return nil, domain.ErrNotAuthorized
			}
		case domain.RoleFarmer:
			if !order.HasFarmerLine(actor.ID) {
				return nil, domain.ErrNotAuthorized
			}
		case domain.RoleDelivery:
			if order.DeliveryPartnerID != "" && order.DeliveryPartnerID != actor.ID {
				return nil, domain.ErrNotAuthorized
			}
		}

		partnerID := ""
		if actor.Role == domain.RoleDelivery && order.DeliveryPartnerID == "" {
			// the first delivery actor to move the order claims it, whatever
			// the transition; the CAS below rejects racing claims
			partnerID = actor.ID
		}

		applied, err := s.orders.UpdateStatus(ctx, orderID, order.Status, to, partnerID)
		if err != nil {
			return nil, err
		}
		if !applied {
			continue // lost a race, re-evaluate against the fresh status
		}

		from := order.Status
		order.Status = to
		if partnerID != "" {
			order.DeliveryPartnerID = partnerID
		}

		go s.publishEvent(domain.EventOrderStatusChanged, domain.OrderStatusChangedEvent{
			OrderID:           order.ID,
			From:              from,
			To:                to,
			ActorID:           actor.ID,
			ActorRole:         actor.Role,
			DeliveryPartnerID: order.DeliveryPartnerID,
			ChangedAt:         time.Now(),
		})

		s.log.WithFields(logrus.Fields{
			"order_id": order.ID,
			"from":     from,
			"to":       to,
			"actor":    actor.ID,
		}).Info("order status changed")
		return order, nil
	}
}

// VisibleOrders returns the orders the actor may read under the per-role
// visibility rule. Farmer filtering is per-line so the rule stays correct if
// multi-farmer carts are ever allowed.
func (s *OrderService) VisibleOrders(ctx context.Context, actor *domain.User) ([]domain.Order, error) {
	switch actor.Role {
	case domain.RoleBuyer:
		return s.orders.FindByBuyer(ctx, actor.ID)
	case domain.RoleFarmer:
		all, err := s.orders.FindAll(ctx)
		if err != nil {
			return nil, err
		}
		var out []domain.Order
		for _, o := range all {
			if o.HasFarmerLine(actor.ID) {
				out = append(out, o)
			}
		}
		return out, nil
	case domain.RoleDelivery:
		return s.orders.FindByStatus(ctx, domain.ActiveStatuses)
	default:
		return s.orders.FindAll(ctx)
	}
}

// History returns delivered and cancelled orders: gone from the active work
// queue but still queryable.
func (s *OrderService) History(ctx context.Context, actor *domain.User) ([]domain.Order, error) {
	if actor.Role != domain.RoleDelivery && actor.Role != domain.RoleAdmin {
		return nil, domain.ErrNotAuthorized
	}
	return s.orders.FindByStatus(ctx, domain.TerminalStatuses)
}

// EarningsFor derives a farmer's earnings from delivered orders carrying at
// least one of their lines. Recomputed on every call, never stored. The full
// order amount is attributed to the farmer, which is exact under the
// single-farmer-per-order rule.
func (s *OrderService) EarningsFor(ctx context.Context, farmerID string) (*domain.Earnings, error) {
	delivered, err := s.orders.FindByStatus(ctx, []domain.OrderStatus{domain.StatusDelivered})
	if err != nil {
		return nil, err
	}

	earnings := &domain.Earnings{TotalEarnings: decimal.Zero}
	for _, o := range delivered {
		if o.HasFarmerLine(farmerID) {
			earnings.TotalEarnings = earnings.TotalEarnings.Add(o.TotalAmount)
			earnings.DeliveredOrderCount++
		}
	}
	return earnings, nil
}

// pickupSnapshot freezes farmer contact details into the order, preferring
// the registered profile and falling back to what the listing carries.
func (s *OrderService) pickupSnapshot(ctx context.Context, farmerID string, listing *domain.Listing) domain.PickupInfo {
	farmer, err := s.users.FindByID(ctx, farmerID)
	if err != nil || farmer == nil {
		return domain.PickupInfo{
			FarmerName: listing.FarmerName,
			Address:    listing.Location.Village,
			City:       listing.Location.District,
			State:      listing.Location.State,
		}
	}
	return domain.PickupInfo{
		FarmerName: farmer.Name,
		Address:    farmer.Location.Address,
		City:       farmer.Location.City,
		State:      farmer.Location.State,
		Phone:      farmer.Phone,
	}
}

func (s *OrderService) publishEvent(routingKey string, event any) {
	if err := s.publisher.Publish(context.Background(), routingKey, event); err != nil {
		s.log.WithError(err).WithField("routing_key", routingKey).Error("failed to publish event")
	}
}
