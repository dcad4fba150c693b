package http

import (
	"github.com/shopspring/decimal"

	"agromarket/internal/domain"
)

type RegisterRequest struct {
	Name     string         `json:"name" binding:"required"`
	Email    string         `json:"email" binding:"required,email"`
	Password string         `json:"password" binding:"required,min=6"`
	Role     string         `json:"role"`
	Phone    string         `json:"phone"`
	Location domain.Address `json:"location"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type CreateListingRequest struct {
	CropName      string          `json:"cropName" binding:"required"`
	Variety       string          `json:"variety"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity" binding:"min=0"`
	Unit          string          `json:"unit"`
	HarvestDate   string          `json:"harvestDate" binding:"required"`
	ShelfLifeDays int             `json:"shelfLifeDays" binding:"required,min=1"`
	Location      domain.Location `json:"location"`
}

type UpdateListingRequest struct {
	Price    *decimal.Decimal `json:"price"`
	Quantity *int             `json:"quantity"`
}

// ListingResponse pairs a listing with its market annotation.
type ListingResponse struct {
	Listing domain.Listing    `json:"listing"`
	Market  *MarketAnnotation `json:"market,omitempty"`
}

type MarketAnnotation struct {
	Stats  domain.PriceStats  `json:"stats"`
	Signal domain.PriceSignal `json:"signal"`
}

type ListProductsResponse struct {
	Groups []domain.FarmerGroup `json:"groups"`
	Count  int                  `json:"count"`
}

type CartLineRequest struct {
	ListingID string `json:"listingId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type CreateOrderRequest struct {
	Lines           []CartLineRequest   `json:"lines" binding:"dive"`
	DeliveryAddress DeliveryInfoRequest `json:"deliveryAddress"`
}

type DeliveryInfoRequest struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Phone   string `json:"phone"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
