package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingSold      ListingStatus = "sold"
	ListingExpired   ListingStatus = "expired"
)

type Unit string

const (
	UnitKg     Unit = "kg"
	UnitPieces Unit = "pieces"
	UnitDozen  Unit = "dozen"
	UnitBunch  Unit = "bunch"
)

func ValidUnit(u Unit) bool {
	switch u {
	case UnitKg, UnitPieces, UnitDozen, UnitBunch:
		return true
	}
	return false
}

// ShelfLifeClass partitions listings by perishability.
type ShelfLifeClass string

const (
	ShelfLifeShort ShelfLifeClass = "short"
	ShelfLifeLong  ShelfLifeClass = "long"
)

type Location struct {
	Village  string `json:"village"`
	District string `json:"district"`
	State    string `json:"state"`
}

type Listing struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	FarmerID      string          `json:"farmerId" gorm:"not null;index;type:varchar(36)"`
	FarmerName    string          `json:"farmerName"`
	CropName      string          `json:"cropName" gorm:"not null;index"`
	Variety       string          `json:"variety"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Quantity      int             `json:"quantity" gorm:"not null"`
	Unit          Unit            `json:"unit" gorm:"type:varchar(16);not null;default:'kg'"`
	HarvestDate   time.Time       `json:"harvestDate" gorm:"not null"`
	ShelfLifeDays int             `json:"shelfLifeDays" gorm:"not null"`
	// ExpiryDate is always derived from HarvestDate + ShelfLifeDays.
	ExpiryDate time.Time     `json:"expiryDate" gorm:"not null"`
	Location   Location      `json:"location" gorm:"serializer:json;type:json"`
	Status     ListingStatus `json:"status" gorm:"type:varchar(16);not null;default:'available'"`
	CreatedAt  time.Time     `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt  time.Time     `json:"updatedAt" gorm:"autoUpdateTime"`
}

// ExpiryDate derives a listing's expiry from its harvest date and shelf life.
func ExpiryDate(harvest time.Time, shelfLifeDays int) time.Time {
	return harvest.AddDate(0, 0, shelfLifeDays)
}

// DaysLeft returns the whole days remaining before the listing expires,
// rounded up. Negative means already expired.
func (l *Listing) DaysLeft(now time.Time) int {
	return int(math.Ceil(l.ExpiryDate.Sub(now).Hours() / 24))
}

func (l *Listing) Expired(now time.Time) bool {
	return l.DaysLeft(now) < 0
}

// Orderable reports whether new orders may be placed against the listing.
func (l *Listing) Orderable(now time.Time) bool {
	return l.Status == ListingAvailable && l.Quantity > 0 && !l.Expired(now)
}

// ClassifyShelfLife buckets a listing as short- or long-lived around the
// configured perishability threshold.
func ClassifyShelfLife(shelfLifeDays, thresholdDays int) ShelfLifeClass {
	if shelfLifeDays < thresholdDays {
		return ShelfLifeShort
	}
	return ShelfLifeLong
}

// FarmerGroup is a read-time projection of listings grouped per farmer for
// marketplace display. It is never stored.
type FarmerGroup struct {
	FarmerID   string    `json:"farmerId"`
	FarmerName string    `json:"farmerName"`
	Listings   []Listing `json:"listings"`
}

// GroupByFarmer groups listings by farmer, preserving first-seen farmer order.
func GroupByFarmer(listings []Listing) []FarmerGroup {
	var groups []FarmerGroup
	index := make(map[string]int)
	for _, l := range listings {
		i, ok := index[l.FarmerID]
		if !ok {
			i = len(groups)
			index[l.FarmerID] = i
			groups = append(groups, FarmerGroup{FarmerID: l.FarmerID, FarmerName: l.FarmerName})
		}
		groups[i].Listings = append(groups[i].Listings, l)
	}
	return groups
}
