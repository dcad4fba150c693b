package domain

import "time"

type Role string

const (
	RoleFarmer   Role = "farmer"
	RoleBuyer    Role = "buyer"
	RoleDelivery Role = "delivery"
	RoleAdmin    Role = "admin"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleFarmer, RoleBuyer, RoleDelivery, RoleAdmin:
		return true
	}
	return false
}

// Address is a user's registered location, snapshotted into orders as
// pickup/delivery info at checkout time.
type Address struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip,omitempty"`
}

type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string    `json:"name" gorm:"not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         Role      `json:"role" gorm:"type:varchar(16);not null;default:'buyer'"`
	Phone        string    `json:"phone"`
	Location     Address   `json:"location" gorm:"serializer:json;type:json"`
	Token        string    `json:"-" gorm:"uniqueIndex;type:varchar(36)"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime"`
}
