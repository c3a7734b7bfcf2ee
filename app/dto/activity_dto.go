package dto

import (
	"encoding/json"
	"time"

	"github.com/amirphl/AutoSEM/models"
)

// ActivityEntryResponse is the API representation of one activity log entry
type ActivityEntryResponse struct {
	ID               uint            `json:"id"`
	Action           string          `json:"action"`
	Description      string          `json:"description"`
	CampaignRecordID *uint           `json:"campaign_record_id,omitempty"`
	Platform         *string         `json:"platform,omitempty"`
	PlatformsFailed  []string        `json:"platforms_failed,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ListActivityResponse wraps a page of activity log entries
type ListActivityResponse struct {
	Entries []ActivityEntryResponse `json:"entries"`
}

// NewActivityEntryResponse maps an activity log entry into its API shape
func NewActivityEntryResponse(e *models.ActivityLog) ActivityEntryResponse {
	resp := ActivityEntryResponse{
		ID:               e.ID,
		Action:           e.Action,
		Description:      e.Description,
		CampaignRecordID: e.CampaignRecordID,
		PlatformsFailed:  e.PlatformsFailed,
		Metadata:         e.Metadata,
		CreatedAt:        e.CreatedAt,
	}
	if e.Platform != nil {
		p := e.Platform.String()
		resp.Platform = &p
	}
	return resp
}
