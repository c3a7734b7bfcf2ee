// Package models contains domain entities and business models for the automation system
package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/amirphl/AutoSEM/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Platform identifies the ad platform a campaign record mirrors.
type Platform string

const (
	PlatformMeta   Platform = "meta"
	PlatformTikTok Platform = "tiktok"
	PlatformGoogle Platform = "google"
)

// Valid checks if the platform is valid
func (p Platform) Valid() bool {
	switch p {
	case PlatformMeta, PlatformTikTok, PlatformGoogle:
		return true
	default:
		return false
	}
}

// String returns the string representation of the platform
func (p Platform) String() string {
	return string(p)
}

// Scan implements the sql.Scanner interface for Platform
func (p *Platform) Scan(value any) error {
	if value == nil {
		*p = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*p = Platform(v)
	case []byte:
		*p = Platform(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Platform", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for Platform
func (p Platform) Value() (driver.Value, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid Platform: %s", p)
	}
	return string(p), nil
}

// CampaignStatus represents the status of a campaign record
type CampaignStatus string

const (
	CampaignStatusDraft  CampaignStatus = "draft"
	CampaignStatusActive CampaignStatus = "active"
	CampaignStatusPaused CampaignStatus = "paused"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive, CampaignStatusPaused:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// CampaignRecord is the local mirror of one remote ad campaign.
//
// Metric fields are a snapshot of cumulative totals for the trailing sync
// window; every sync replaces them wholesale, nothing is ever incremented.
// Derived ratios (CTR, CPC, ROAS) are computed on read and never stored.
type CampaignRecord struct {
	ID                 uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID               uuid.UUID      `gorm:"type:uuid;uniqueIndex:uk_campaign_records_uuid;not null" json:"uuid"`
	Platform           Platform       `gorm:"type:varchar(20);not null;index:idx_campaign_records_platform;uniqueIndex:uk_campaign_records_remote,priority:1" json:"platform"`
	PlatformCampaignID *string        `gorm:"type:varchar(64);uniqueIndex:uk_campaign_records_remote,priority:2" json:"platform_campaign_id,omitempty"`
	Name               string         `gorm:"type:varchar(255);not null" json:"name"`
	Status             CampaignStatus `gorm:"type:varchar(20);not null;default:'draft';index:idx_campaign_records_status" json:"status"`
	DailyBudgetCents   int64          `gorm:"not null;default:0" json:"daily_budget_cents"`

	// Metrics snapshot (cumulative totals for the sync window)
	SpendCents   int64 `gorm:"not null;default:0" json:"spend_cents"`
	RevenueCents int64 `gorm:"not null;default:0" json:"revenue_cents"`
	Impressions  int64 `gorm:"not null;default:0" json:"impressions"`
	Clicks       int64 `gorm:"not null;default:0" json:"clicks"`
	Conversions  int64 `gorm:"not null;default:0" json:"conversions"`

	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CampaignRecord) TableName() string { return "campaign_records" }

// BeforeCreate ensures UUID and timestamps are set.
func (c *CampaignRecord) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// Linked reports whether this record is tied to a real remote campaign.
// Only linked records are eligible for automated mutation; unlinked records
// are inert placeholders.
func (c *CampaignRecord) Linked() bool {
	return c.PlatformCampaignID != nil && *c.PlatformCampaignID != ""
}

// CTR returns clicks/impressions, 0 when there are no impressions.
func (c *CampaignRecord) CTR() float64 {
	if c.Impressions == 0 {
		return 0
	}
	return float64(c.Clicks) / float64(c.Impressions)
}

// CPCCents returns spend/clicks in cents, 0 when there are no clicks.
func (c *CampaignRecord) CPCCents() int64 {
	if c.Clicks == 0 {
		return 0
	}
	return c.SpendCents / c.Clicks
}

// ROAS returns revenue/spend, 0 when there is no spend.
func (c *CampaignRecord) ROAS() float64 {
	if c.SpendCents == 0 {
		return 0
	}
	return float64(c.RevenueCents) / float64(c.SpendCents)
}

// ConversionRate returns conversions/clicks, 0 when there are no clicks.
func (c *CampaignRecord) ConversionRate() float64 {
	if c.Clicks == 0 {
		return 0
	}
	return float64(c.Conversions) / float64(c.Clicks)
}

// NetLossCents returns spend minus revenue for this record (may be negative).
func (c *CampaignRecord) NetLossCents() int64 {
	return c.SpendCents - c.RevenueCents
}

// CampaignRecordFilter represents filter criteria for campaign record queries
type CampaignRecordFilter struct {
	ID                 *uint           `json:"id,omitempty"`
	UUID               *uuid.UUID      `json:"uuid,omitempty"`
	Platform           *Platform       `json:"platform,omitempty"`
	PlatformCampaignID *string         `json:"platform_campaign_id,omitempty"`
	Status             *CampaignStatus `json:"status,omitempty"`
	Linked             *bool           `json:"linked,omitempty"`
	CreatedAfter       *time.Time      `json:"created_after,omitempty"`
	CreatedBefore      *time.Time      `json:"created_before,omitempty"`
}
