package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/platform"
	"github.com/amirphl/AutoSEM/repository"
	"github.com/amirphl/AutoSEM/utils"
)

// CatalogSyncResult summarizes one catalog sync pass.
type CatalogSyncResult struct {
	ProductsSynced int `json:"products_synced"`
}

// ShopifyCatalogFlow mirrors the Shopify product catalog locally.
type ShopifyCatalogFlow interface {
	SyncCatalog(ctx context.Context) (*CatalogSyncResult, error)
}

// ShopifyCatalogFlowImpl implements ShopifyCatalogFlow.
type ShopifyCatalogFlowImpl struct {
	shopify     *platform.ShopifyClient
	productRepo repository.ProductRepository
	retry       platform.RetryPolicy
	logger      *log.Logger
}

// NewShopifyCatalogFlow creates a new Shopify catalog flow.
func NewShopifyCatalogFlow(
	shopify *platform.ShopifyClient,
	productRepo repository.ProductRepository,
	logger *log.Logger,
) ShopifyCatalogFlow {
	return &ShopifyCatalogFlowImpl{
		shopify:     shopify,
		productRepo: productRepo,
		retry:       platform.DefaultRetryPolicy,
		logger:      logger,
	}
}

// SyncCatalog upserts every Shopify product into the local mirror.
func (f *ShopifyCatalogFlowImpl) SyncCatalog(ctx context.Context) (*CatalogSyncResult, error) {
	if !f.shopify.Configured() {
		return &CatalogSyncResult{}, nil
	}

	var products []platform.ShopifyProduct
	err := f.retry.Do(ctx, func(ctx context.Context) error {
		var listErr error
		products, listErr = f.shopify.ListProducts(ctx)
		return listErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list Shopify products: %w", err)
	}

	now := utils.UTCNow()
	for _, product := range products {
		mirror := &models.Product{
			ShopifyProductID: product.ID,
			Title:            product.Title,
			Handle:           product.Handle,
			Vendor:           product.Vendor,
			ProductType:      product.ProductType,
			Status:           product.Status,
			PriceCents:       product.PriceCents,
			InventoryCount:   product.InventoryCount,
			LastSyncedAt:     &now,
		}
		if err := f.productRepo.Upsert(ctx, mirror); err != nil {
			return nil, err
		}
	}

	return &CatalogSyncResult{ProductsSynced: len(products)}, nil
}
