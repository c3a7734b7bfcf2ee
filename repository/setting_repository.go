// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepositoryImpl implements SettingRepository interface
type SettingRepositoryImpl struct {
	*BaseRepository[models.Setting, models.SettingFilter]
}

// NewSettingRepository creates a new setting repository
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &SettingRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Setting, models.SettingFilter](db),
	}
}

func (r *SettingRepositoryImpl) applyFilter(db *gorm.DB, filter models.SettingFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.Key != nil {
		db = db.Where("key = ?", *filter.Key)
	}
	return db
}

// ByFilter retrieves settings matching the filter criteria
func (r *SettingRepositoryImpl) ByFilter(ctx context.Context, filter models.SettingFilter, orderBy string, limit, offset int) ([]*models.Setting, error) {
	db := r.getDB(ctx)

	query := r.applyFilter(db.Model(&models.Setting{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var settings []*models.Setting
	if err := query.Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to find settings by filter: %w", err)
	}

	return settings, nil
}

// Count returns the number of settings matching the filter
func (r *SettingRepositoryImpl) Count(ctx context.Context, filter models.SettingFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.applyFilter(db.Model(&models.Setting{}), filter).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count settings: %w", err)
	}

	return count, nil
}

// ByKey retrieves a setting row by key, nil when absent
func (r *SettingRepositoryImpl) ByKey(ctx context.Context, key string) (*models.Setting, error) {
	db := r.getDB(ctx)

	var setting models.Setting
	err := db.Where("key = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find setting by key: %w", err)
	}

	return &setting, nil
}

// Set upserts a setting value by key
func (r *SettingRepositoryImpl) Set(ctx context.Context, key, value string) error {
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

	now := utils.UTCNow()
	setting := models.Setting{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("failed to upsert setting %q: %w", key, err)
	}

	return nil
}

// All retrieves every stored setting row
func (r *SettingRepositoryImpl) All(ctx context.Context) ([]*models.Setting, error) {
	db := r.getDB(ctx)

	var settings []*models.Setting
	if err := db.Order("key ASC").Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}

	return settings, nil
}
