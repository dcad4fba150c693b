package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys for order events published to the orders exchange.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

type OrderCreatedEvent struct {
	OrderID     string          `json:"orderId"`
	BuyerID     string          `json:"buyerId"`
	FarmerID    string          `json:"farmerId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type OrderStatusChangedEvent struct {
	OrderID           string      `json:"orderId"`
	From              OrderStatus `json:"from"`
	To                OrderStatus `json:"to"`
	ActorID           string      `json:"actorId"`
	ActorRole         Role        `json:"actorRole"`
	DeliveryPartnerID string      `json:"deliveryPartnerId,omitempty"`
	ChangedAt         time.Time   `json:"changedAt"`
}
