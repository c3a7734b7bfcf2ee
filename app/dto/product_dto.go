package dto

import (
	"time"

	"github.com/amirphl/AutoSEM/models"
)

// ProductResponse is the API representation of a Shopify product mirror
type ProductResponse struct {
	ID               uint       `json:"id"`
	ShopifyProductID string     `json:"shopify_product_id"`
	Title            string     `json:"title"`
	Handle           string     `json:"handle"`
	Vendor           string     `json:"vendor,omitempty"`
	ProductType      string     `json:"product_type,omitempty"`
	Status           string     `json:"status"`
	PriceCents       int64      `json:"price_cents"`
	InventoryCount   int64      `json:"inventory_count"`
	LastSyncedAt     *time.Time `json:"last_synced_at,omitempty"`
}

// ListProductsResponse wraps a page of product mirrors
type ListProductsResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int64             `json:"total"`
}

// NewProductResponse maps a product mirror into its API shape
func NewProductResponse(p *models.Product) ProductResponse {
	return ProductResponse{
		ID:               p.ID,
		ShopifyProductID: p.ShopifyProductID,
		Title:            p.Title,
		Handle:           p.Handle,
		Vendor:           p.Vendor,
		ProductType:      p.ProductType,
		Status:           p.Status,
		PriceCents:       p.PriceCents,
		InventoryCount:   p.InventoryCount,
		LastSyncedAt:     p.LastSyncedAt,
	}
}
