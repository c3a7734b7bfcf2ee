package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Activity log action constants
const (
	ActionAutoOptimize         = "AUTO_OPTIMIZE"
	ActionOptimizeDecision     = "OPTIMIZE_DECISION"
	ActionOptimizeAction       = "OPTIMIZE_ACTION"
	ActionOptimizeActionFailed = "OPTIMIZE_ACTION_FAILED"
	ActionPerformanceSync      = "PERFORMANCE_SYNC"
	ActionSyncFailure          = "SYNC_FAILURE"
	ActionSyncFailureCritical  = "SYNC_FAILURE_CRITICAL"
	ActionEmergencyPause       = "EMERGENCY_PAUSE"
	ActionJobFailure           = "JOB_FAILURE"
	ActionJobFailureCritical   = "JOB_FAILURE_CRITICAL"
	ActionSettingsUpdated      = "SETTINGS_UPDATED"
	ActionCampaignPurge        = "CAMPAIGN_PURGE"
	ActionTokenRefresh         = "TOKEN_REFRESH"
	ActionDailySnapshot        = "DAILY_SNAPSHOT"
)

// ActivityLog is an append-only audit record of everything the automation
// did or failed to do. Rows are never updated or deleted.
type ActivityLog struct {
	ID               uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Action           string          `gorm:"type:varchar(40);not null;index:idx_activity_logs_action" json:"action"`
	Description      string          `gorm:"type:text;not null" json:"description"`
	CampaignRecordID *uint           `gorm:"index:idx_activity_logs_campaign" json:"campaign_record_id,omitempty"`
	Platform         *Platform       `gorm:"type:varchar(20)" json:"platform,omitempty"`
	PlatformsFailed  pq.StringArray  `gorm:"type:text[]" json:"platforms_failed,omitempty"`
	Metadata         json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_activity_logs_created_at" json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_logs" }

// ActivityLogFilter represents filter criteria for activity log queries
type ActivityLogFilter struct {
	ID               *uint      `json:"id,omitempty"`
	Action           *string    `json:"action,omitempty"`
	CampaignRecordID *uint      `json:"campaign_record_id,omitempty"`
	Platform         *Platform  `json:"platform,omitempty"`
	CreatedAfter     *time.Time `json:"created_after,omitempty"`
	CreatedBefore    *time.Time `json:"created_before,omitempty"`
}

// NewActivity builds a log row for the given action with optional JSON
// metadata. Marshalling failures are swallowed; the row is still written
// with empty metadata because the audit record matters more than its detail.
func NewActivity(action, description string, metadata any) *ActivityLog {
	entry := &ActivityLog{
		Action:      action,
		Description: description,
	}
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = raw
		}
	}
	return entry
}

// ForCampaign ties the entry to a campaign record and its platform.
func (a *ActivityLog) ForCampaign(c *CampaignRecord) *ActivityLog {
	a.CampaignRecordID = &c.ID
	p := c.Platform
	a.Platform = &p
	return a
}
