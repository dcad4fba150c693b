package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusAccepted       OrderStatus = "accepted"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// ActiveStatuses are the statuses that still need delivery work.
var ActiveStatuses = []OrderStatus{StatusPending, StatusAccepted, StatusOutForDelivery}

// TerminalStatuses no longer appear in the delivery work queue.
var TerminalStatuses = []OrderStatus{StatusDelivered, StatusCancelled}

type transition struct {
	From OrderStatus
	To   OrderStatus
}

// transitions is the authoritative map of allowed status changes and the
// roles permitted to perform each. Anything absent is an invalid transition.
var transitions = map[transition][]Role{
	{StatusPending, StatusAccepted}:         {RoleDelivery, RoleFarmer},
	{StatusAccepted, StatusOutForDelivery}:  {RoleDelivery},
	{StatusOutForDelivery, StatusDelivered}: {RoleDelivery},
	{StatusPending, StatusCancelled}:        {RoleBuyer, RoleFarmer},
	{StatusAccepted, StatusCancelled}:       {RoleBuyer, RoleFarmer},
}

// CanTransition reports whether role may move an order from one status to
// another according to the transition table.
func CanTransition(from, to OrderStatus, role Role) bool {
	for _, r := range transitions[transition{from, to}] {
		if r == role {
			return true
		}
	}
	return false
}

// OrderLine is a snapshot of one listing purchase. PriceAtPurchase is frozen
// at checkout and never recomputed from the live listing. FarmerID is carried
// per line so visibility filters line-by-line rather than assuming a
// single-farmer order.
type OrderLine struct {
	ListingID       string          `json:"listingId"`
	FarmerID        string          `json:"farmerId"`
	CropName        string          `json:"cropName"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase"`
}

func (l OrderLine) Total() decimal.Decimal {
	return l.PriceAtPurchase.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// PickupInfo is the farmer-side contact snapshot taken at order creation.
type PickupInfo struct {
	FarmerName string `json:"farmerName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	Phone      string `json:"phone"`
}

// DeliveryInfo is the buyer-supplied drop-off snapshot.
type DeliveryInfo struct {
	BuyerName string `json:"buyerName"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Phone     string `json:"phone"`
}

// Order is immutable once created except for Status and DeliveryPartnerID,
// which change only through the ledger's transition operation.
type Order struct {
	ID                string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	BuyerID           string          `json:"buyerId" gorm:"not null;index;type:varchar(36)"`
	BuyerName         string          `json:"buyerName"`
	Lines             []OrderLine     `json:"lines" gorm:"serializer:json;type:json"`
	TotalAmount       decimal.Decimal `json:"totalAmount" gorm:"type:decimal(12,2);not null"`
	Status            OrderStatus     `json:"status" gorm:"type:varchar(24);not null;default:'pending';index"`
	PickupInfo        PickupInfo      `json:"pickupInfo" gorm:"serializer:json;type:json"`
	DeliveryInfo      DeliveryInfo    `json:"deliveryInfo" gorm:"serializer:json;type:json"`
	Distance          string          `json:"distance"`
	EstimatedTime     string          `json:"estimatedTime"`
	DeliveryPartnerID string          `json:"deliveryPartnerId,omitempty" gorm:"type:varchar(36)"`
	CreatedAt         time.Time       `json:"createdAt" gorm:"autoCreateTime"`
}

// HasFarmerLine reports whether any line originates from the given farmer.
func (o *Order) HasFarmerLine(farmerID string) bool {
	for _, l := range o.Lines {
		if l.FarmerID == farmerID {
			return true
		}
	}
	return false
}

// Active reports whether the order still needs delivery work.
func (o *Order) Active() bool {
	switch o.Status {
	case StatusPending, StatusAccepted, StatusOutForDelivery:
		return true
	}
	return false
}

// Earnings is the on-demand aggregate of a farmer's delivered orders.
type Earnings struct {
	TotalEarnings       decimal.Decimal `json:"totalEarnings"`
	DeliveredOrderCount int             `json:"deliveredOrderCount"`
}
