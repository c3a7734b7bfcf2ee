// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/AutoSEM/models"
	"gorm.io/gorm"
)

// ActivityLogRepositoryImpl implements ActivityLogRepository interface
type ActivityLogRepositoryImpl struct {
	*BaseRepository[models.ActivityLog, models.ActivityLogFilter]
}

// NewActivityLogRepository creates a new activity log repository
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &ActivityLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ActivityLog, models.ActivityLogFilter](db),
	}
}

func (r *ActivityLogRepositoryImpl) applyFilter(db *gorm.DB, filter models.ActivityLogFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.Action != nil {
		db = db.Where("action = ?", *filter.Action)
	}
	if filter.CampaignRecordID != nil {
		db = db.Where("campaign_record_id = ?", *filter.CampaignRecordID)
	}
	if filter.Platform != nil {
		db = db.Where("platform = ?", *filter.Platform)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}

// ByFilter retrieves activity logs matching the filter criteria
func (r *ActivityLogRepositoryImpl) ByFilter(ctx context.Context, filter models.ActivityLogFilter, orderBy string, limit, offset int) ([]*models.ActivityLog, error) {
	db := r.getDB(ctx)

	query := r.applyFilter(db.Model(&models.ActivityLog{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var logs []*models.ActivityLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to find activity logs by filter: %w", err)
	}

	return logs, nil
}

// Count returns the number of activity logs matching the filter
func (r *ActivityLogRepositoryImpl) Count(ctx context.Context, filter models.ActivityLogFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.applyFilter(db.Model(&models.ActivityLog{}), filter).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count activity logs: %w", err)
	}

	return count, nil
}

// ListByAction retrieves activity logs for a specific action with pagination
func (r *ActivityLogRepositoryImpl) ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.ActivityLog, error) {
	db := r.getDB(ctx)

	var logs []*models.ActivityLog
	err := db.Where("action = ?", action).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activity logs by action: %w", err)
	}

	return logs, nil
}

// ListRecent retrieves the most recent activity logs with pagination
func (r *ActivityLogRepositoryImpl) ListRecent(ctx context.Context, limit, offset int) ([]*models.ActivityLog, error) {
	db := r.getDB(ctx)

	var logs []*models.ActivityLog
	err := db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent activity logs: %w", err)
	}

	return logs, nil
}

// ListByCampaign retrieves activity logs for one campaign record with pagination
func (r *ActivityLogRepositoryImpl) ListByCampaign(ctx context.Context, campaignRecordID uint, limit, offset int) ([]*models.ActivityLog, error) {
	db := r.getDB(ctx)

	var logs []*models.ActivityLog
	err := db.Where("campaign_record_id = ?", campaignRecordID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activity logs by campaign: %w", err)
	}

	return logs, nil
}

// CountSince returns how many rows exist for an action since the given time
func (r *ActivityLogRepositoryImpl) CountSince(ctx context.Context, action string, since time.Time) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.ActivityLog{}).
		Where("action = ? AND created_at >= ?", action, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count activity logs since: %w", err)
	}

	return count, nil
}

// LatestByAction retrieves the newest row for an action, nil when none exists
func (r *ActivityLogRepositoryImpl) LatestByAction(ctx context.Context, action string) (*models.ActivityLog, error) {
	db := r.getDB(ctx)

	var entry models.ActivityLog
	err := db.Where("action = ?", action).
		Order("created_at DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find latest activity log by action: %w", err)
	}

	return &entry, nil
}
