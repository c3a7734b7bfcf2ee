package models

import (
	"time"
)

// Product mirrors one Shopify product so optimization reports can reference
// catalog context without calling Shopify on every read.
type Product struct {
	ID               uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ShopifyProductID string     `gorm:"type:varchar(64);uniqueIndex:uk_products_shopify_id;not null" json:"shopify_product_id"`
	Title            string     `gorm:"type:varchar(255);not null" json:"title"`
	Handle           string     `gorm:"type:varchar(255);not null" json:"handle"`
	Vendor           string     `gorm:"type:varchar(255)" json:"vendor"`
	ProductType      string     `gorm:"type:varchar(255)" json:"product_type"`
	Status           string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	PriceCents       int64      `gorm:"not null;default:0" json:"price_cents"`
	InventoryCount   int64      `gorm:"not null;default:0" json:"inventory_count"`
	LastSyncedAt     *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt        time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

// ProductFilter represents filter criteria for product queries
type ProductFilter struct {
	ID               *uint   `json:"id,omitempty"`
	ShopifyProductID *string `json:"shopify_product_id,omitempty"`
	Status           *string `json:"status,omitempty"`
	Vendor           *string `json:"vendor,omitempty"`
}
