package models

import (
	"time"
)

type Category struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"unique;not null"          json:"name"`
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string  `gorm:"not null"                  json:"name"`
	Description string  `gorm:"not null"                  json:"description"`
	Price       float64 `gorm:"not null"                  json:"price"`
	Stock       int     `gorm:"not null;default:0"        json:"stock"`
	Images      string  `json:"images"`
	CategoryID  uint    `gorm:"index"                     json:"category_id"`
	// VariantType names the option axis ("Color", "Size"). When any
	// Variant rows exist, saleable stock lives on them, not here.
	VariantType string    `json:"variant_type"`
	Variants    []Variant `gorm:"constraint:OnDelete:CASCADE" json:"variants"`
}

type Variant struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint   `gorm:"index;not null"           json:"product_id"`
	Name      string `gorm:"not null"                 json:"name"`
	Stock     int    `gorm:"not null;default:0"       json:"stock"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	Email        string `gorm:"index"                    json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
	// Delivery profile. Checkout falls back to Address when the request
	// carries none.
	Phone      string  `json:"phone"`
	Address    string  `json:"address"`
	City       string  `json:"city"`
	Province   string  `json:"province"`
	PostalCode string  `json:"postal_code"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	Role      string `json:"role"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}

type PasswordReset struct {
	ID        uint   `gorm:"primaryKey"     json:"id"`
	UserID    uint   `gorm:"index;not null" json:"user_id"`
	Code      string `gorm:"not null"       json:"-"`
	ExpiresAt int64  `gorm:"not null"       json:"expires_at"`
	Used      bool   `gorm:"default:false"  json:"used"`
}

type CartItem struct {
	ID        uint  `gorm:"primaryKey"                  json:"id"`
	UserID    uint  `gorm:"index;not null"              json:"user_id"`
	ProductID uint  `gorm:"not null"                    json:"product_id"`
	VariantID *uint `json:"variant_id"`
	Quantity  int   `gorm:"default:1;check:quantity>0"  json:"quantity"`
}

type Order struct {
	ID        string      `gorm:"primaryKey"     json:"id"`
	UserID    uint        `gorm:"index;not null" json:"user_id"`
	Status    string      `gorm:"index;not null" json:"status"`
	Address   string      `gorm:"not null"       json:"address"`
	Total     float64     `gorm:"not null"       json:"total"`
	CreatedAt time.Time   `gorm:"index"          json:"created_at"`
	Items     []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem rows are written once at checkout. Price is the unit price
// at purchase time so later catalog edits never change old orders.
type OrderItem struct {
	ID          uint    `gorm:"primaryKey"       json:"id"`
	OrderID     string  `gorm:"index;not null"   json:"order_id"`
	ProductID   uint    `gorm:"not null"         json:"product_id"`
	VariantID   *uint   `json:"variant_id"`
	VariantName string  `json:"variant_name"`
	Quantity    int     `gorm:"check:quantity>0" json:"quantity"`
	Price       float64 `gorm:"not null"         json:"price"`
}
