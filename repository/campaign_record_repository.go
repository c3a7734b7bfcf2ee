// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CampaignRecordRepositoryImpl implements CampaignRecordRepository interface
type CampaignRecordRepositoryImpl struct {
	*BaseRepository[models.CampaignRecord, models.CampaignRecordFilter]
}

// NewCampaignRecordRepository creates a new campaign record repository
func NewCampaignRecordRepository(db *gorm.DB) CampaignRecordRepository {
	return &CampaignRecordRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignRecord, models.CampaignRecordFilter](db),
	}
}

func (r *CampaignRecordRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignRecordFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Platform != nil {
		db = db.Where("platform = ?", *filter.Platform)
	}
	if filter.PlatformCampaignID != nil {
		db = db.Where("platform_campaign_id = ?", *filter.PlatformCampaignID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.Linked != nil {
		if *filter.Linked {
			db = db.Where("platform_campaign_id IS NOT NULL AND platform_campaign_id <> ''")
		} else {
			db = db.Where("platform_campaign_id IS NULL OR platform_campaign_id = ''")
		}
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}

// ByFilter retrieves campaign records matching the filter criteria
func (r *CampaignRecordRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignRecordFilter, orderBy string, limit, offset int) ([]*models.CampaignRecord, error) {
	db := r.getDB(ctx)

	query := r.applyFilter(db.Model(&models.CampaignRecord{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var records []*models.CampaignRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to find campaign records by filter: %w", err)
	}

	return records, nil
}

// Count returns the number of campaign records matching the filter
func (r *CampaignRecordRepositoryImpl) Count(ctx context.Context, filter models.CampaignRecordFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.applyFilter(db.Model(&models.CampaignRecord{}), filter).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count campaign records: %w", err)
	}

	return count, nil
}

// ByUUID retrieves a campaign record by its UUID
func (r *CampaignRecordRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.CampaignRecord, error) {
	db := r.getDB(ctx)

	var record models.CampaignRecord
	err := db.Where("uuid = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find campaign record by UUID: %w", err)
	}

	return &record, nil
}

// ByPlatformCampaignID retrieves the record linked to a remote campaign
func (r *CampaignRecordRepositoryImpl) ByPlatformCampaignID(ctx context.Context, platform models.Platform, platformCampaignID string) (*models.CampaignRecord, error) {
	db := r.getDB(ctx)

	var record models.CampaignRecord
	err := db.Where("platform = ? AND platform_campaign_id = ?", platform, platformCampaignID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find campaign record by platform campaign ID: %w", err)
	}

	return &record, nil
}

// ListLinked retrieves every record tied to a real remote campaign, optionally
// restricted to one platform
func (r *CampaignRecordRepositoryImpl) ListLinked(ctx context.Context, platform *models.Platform) ([]*models.CampaignRecord, error) {
	db := r.getDB(ctx)

	query := db.Where("platform_campaign_id IS NOT NULL AND platform_campaign_id <> ''")
	if platform != nil {
		query = query.Where("platform = ?", *platform)
	}

	var records []*models.CampaignRecord
	if err := query.Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list linked campaign records: %w", err)
	}

	return records, nil
}

// ListUnlinked retrieves records with no remote campaign attached
func (r *CampaignRecordRepositoryImpl) ListUnlinked(ctx context.Context) ([]*models.CampaignRecord, error) {
	db := r.getDB(ctx)

	var records []*models.CampaignRecord
	err := db.Where("platform_campaign_id IS NULL OR platform_campaign_id = ''").
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unlinked campaign records: %w", err)
	}

	return records, nil
}

// Update persists all mutable fields of an existing record
func (r *CampaignRecordRepositoryImpl) Update(ctx context.Context, record *models.CampaignRecord) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	record.UpdatedAt = utils.UTCNow()
	err = db.Save(record).Error
	if err != nil {
		return fmt.Errorf("failed to update campaign record: %w", err)
	}

	return nil
}

// UpdateStatus changes only the status of a record
func (r *CampaignRecordRepositoryImpl) UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.CampaignRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update campaign record status: %w", err)
	}

	return nil
}

// UpdateBudget changes only the daily budget of a record
func (r *CampaignRecordRepositoryImpl) UpdateBudget(ctx context.Context, id uint, dailyBudgetCents int64) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.CampaignRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"daily_budget_cents": dailyBudgetCents,
			"updated_at":         utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update campaign record budget: %w", err)
	}

	return nil
}

// Delete removes a record permanently. Used only for phantom cleanup.
func (r *CampaignRecordRepositoryImpl) Delete(ctx context.Context, id uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Delete(&models.CampaignRecord{}, id).Error
	if err != nil {
		return fmt.Errorf("failed to delete campaign record: %w", err)
	}

	return nil
}

// TotalSpendSince returns the summed spend across records updated since the
// given time. Used for daily and monthly spend limit checks.
func (r *CampaignRecordRepositoryImpl) TotalSpendSince(ctx context.Context, since time.Time) (int64, error) {
	db := r.getDB(ctx)

	var total int64
	err := db.Model(&models.CampaignRecord{}).
		Where("updated_at >= ?", since).
		Select("COALESCE(SUM(spend_cents), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum campaign spend: %w", err)
	}

	return total, nil
}
