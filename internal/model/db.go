package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentTypeCOD    PaymentType = "COD"
	PaymentTypeOnline PaymentType = "Online"
)

type Product struct {
	ID          string          `gorm:"primaryKey;size:64;not null" json:"_id"`
	Name        string          `gorm:"size:128;not null" json:"name"`
	Description string          `gorm:"size:512" json:"description"`
	Category    string          `gorm:"size:64;index" json:"category"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	OfferPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"offerPrice"`
	InStock     bool            `gorm:"not null;default:true" json:"inStock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CartItem is one persisted line of a user's cart. Rows with quantity 0 are never stored.
type CartItem struct {
	UserID    string `gorm:"primaryKey;size:64"`
	ProductID string `gorm:"primaryKey;size:64;index;not null"`
	Quantity  int32  `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Address struct {
	ID        string    `gorm:"primaryKey;size:36;not null" json:"_id"`
	UserID    string    `gorm:"size:64;index;not null" json:"userId"`
	FirstName string    `gorm:"size:64;not null" json:"firstName"`
	LastName  string    `gorm:"size:64;not null" json:"lastName"`
	Email     string    `gorm:"size:128;not null" json:"email"`
	Street    string    `gorm:"size:256;not null" json:"street"`
	City      string    `gorm:"size:64;not null" json:"city"`
	State     string    `gorm:"size:64;not null" json:"state"`
	Zipcode   string    `gorm:"size:16;not null" json:"zipcode"`
	Country   string    `gorm:"size:64;not null" json:"country"`
	Phone     string    `gorm:"size:32;not null" json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

type Order struct {
	ID          string          `gorm:"primaryKey;size:36;not null"`
	UserID      string          `gorm:"size:64;index;not null"`
	Items       []OrderItem     `gorm:"foreignKey:OrderID"`
	AddressID   string          `gorm:"size:36;not null"`
	Address     *Address        `gorm:"foreignKey:AddressID"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"` // includes tax
	PaymentType PaymentType     `gorm:"size:16;index;not null"`
	IsPaid      bool            `gorm:"not null;default:false"`
	CreatedAt   time.Time       `gorm:"index"`
	UpdatedAt   time.Time
}

// OrderItem is a snapshot of a cart line taken when the order was placed.
type OrderItem struct {
	ID        uint     `gorm:"primaryKey"`
	OrderID   string   `gorm:"size:36;index;not null"`
	ProductID string   `gorm:"size:64;index;not null"`
	Product   *Product `gorm:"foreignKey:ProductID"`
	Quantity  int32    `gorm:"not null"`
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
