package services

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"agromarket/internal/domain"
	"agromarket/internal/repository/memory"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func newTestUser(role domain.Role, name string) *domain.User {
	return &domain.User{
		ID:    uuid.NewString(),
		Name:  name,
		Email: uuid.NewString() + "@example.com",
		Role:  role,
		Phone: "+91 98765 43210",
		Location: domain.Address{
			Address: "12 Farm Road",
			City:    "Pune",
			State:   "Maharashtra",
		},
		Token: uuid.NewString(),
	}
}

func newTestListing(farmer *domain.User, crop string, price int64, quantity int) *domain.Listing {
	harvest := time.Now().AddDate(0, 0, -1)
	return &domain.Listing{
		ID:            uuid.NewString(),
		FarmerID:      farmer.ID,
		FarmerName:    farmer.Name,
		CropName:      crop,
		Price:         decimal.NewFromInt(price),
		Quantity:      quantity,
		Unit:          domain.UnitKg,
		HarvestDate:   harvest,
		ShelfLifeDays: 5,
		ExpiryDate:    domain.ExpiryDate(harvest, 5),
		Location: domain.Location{
			Village:  "Wagholi",
			District: "Pune",
			State:    "Maharashtra",
		},
		Status:    domain.ListingAvailable,
		CreatedAt: time.Now(),
	}
}

func seedListing(t interface{ Fatalf(string, ...any) }, store *memory.ListingStore, l *domain.Listing) {
	if err := store.Create(context.Background(), l); err != nil {
		t.Fatalf("seed listing: %v", err)
	}
}

func seedUser(t interface{ Fatalf(string, ...any) }, store *memory.UserStore, u *domain.User) {
	if err := store.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}
