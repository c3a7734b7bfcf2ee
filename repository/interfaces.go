// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/AutoSEM/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
}

// CampaignRecordRepository defines operations for campaign record mirrors
type CampaignRecordRepository interface {
	Repository[models.CampaignRecord, models.CampaignRecordFilter]
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.CampaignRecord, error)
	ByPlatformCampaignID(ctx context.Context, platform models.Platform, platformCampaignID string) (*models.CampaignRecord, error)
	ListLinked(ctx context.Context, platform *models.Platform) ([]*models.CampaignRecord, error)
	ListUnlinked(ctx context.Context) ([]*models.CampaignRecord, error)
	Update(ctx context.Context, record *models.CampaignRecord) error
	UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error
	UpdateBudget(ctx context.Context, id uint, dailyBudgetCents int64) error
	Delete(ctx context.Context, id uint) error
	TotalSpendSince(ctx context.Context, since time.Time) (int64, error)
}

// SettingRepository defines operations for key-value settings
type SettingRepository interface {
	Repository[models.Setting, models.SettingFilter]
	ByKey(ctx context.Context, key string) (*models.Setting, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) ([]*models.Setting, error)
}

// ActivityLogRepository defines operations for the append-only activity log
type ActivityLogRepository interface {
	Repository[models.ActivityLog, models.ActivityLogFilter]
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.ActivityLog, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*models.ActivityLog, error)
	ListByCampaign(ctx context.Context, campaignRecordID uint, limit, offset int) ([]*models.ActivityLog, error)
	CountSince(ctx context.Context, action string, since time.Time) (int64, error)
	LatestByAction(ctx context.Context, action string) (*models.ActivityLog, error)
}

// ProductRepository defines operations for Shopify product mirrors
type ProductRepository interface {
	Repository[models.Product, models.ProductFilter]
	ByShopifyProductID(ctx context.Context, shopifyProductID string) (*models.Product, error)
	Upsert(ctx context.Context, product *models.Product) error
	ListActive(ctx context.Context, limit, offset int) ([]*models.Product, error)
}
