package dto

import (
	"time"

	"github.com/amirphl/AutoSEM/models"
)

// CampaignResponse is the API representation of a campaign mirror
type CampaignResponse struct {
	UUID               string     `json:"uuid"`
	Platform           string     `json:"platform"`
	PlatformCampaignID *string    `json:"platform_campaign_id,omitempty"`
	Name               string     `json:"name"`
	Status             string     `json:"status"`
	DailyBudgetCents   int64      `json:"daily_budget_cents"`
	SpendCents         int64      `json:"spend_cents"`
	RevenueCents       int64      `json:"revenue_cents"`
	Impressions        int64      `json:"impressions"`
	Clicks             int64      `json:"clicks"`
	Conversions        int64      `json:"conversions"`
	CTR                float64    `json:"ctr"`
	CPCCents           int64      `json:"cpc_cents"`
	ROAS               float64    `json:"roas"`
	LastSyncedAt       *time.Time `json:"last_synced_at,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// ListCampaignsResponse wraps a page of campaign mirrors
type ListCampaignsResponse struct {
	Campaigns []CampaignResponse `json:"campaigns"`
	Total     int64              `json:"total"`
}

// NewCampaignResponse maps a campaign mirror into its API shape
func NewCampaignResponse(c *models.CampaignRecord) CampaignResponse {
	return CampaignResponse{
		UUID:               c.UUID.String(),
		Platform:           c.Platform.String(),
		PlatformCampaignID: c.PlatformCampaignID,
		Name:               c.Name,
		Status:             c.Status.String(),
		DailyBudgetCents:   c.DailyBudgetCents,
		SpendCents:         c.SpendCents,
		RevenueCents:       c.RevenueCents,
		Impressions:        c.Impressions,
		Clicks:             c.Clicks,
		Conversions:        c.Conversions,
		CTR:                c.CTR(),
		CPCCents:           c.CPCCents(),
		ROAS:               c.ROAS(),
		LastSyncedAt:       c.LastSyncedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}
