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

// DailySnapshot is the once-a-day roll-up of campaign and store performance.
type DailySnapshot struct {
	Date               string  `json:"date"`
	ActiveCampaigns    int     `json:"active_campaigns"`
	PausedCampaigns    int     `json:"paused_campaigns"`
	TotalSpendCents    int64   `json:"total_spend_cents"`
	TotalRevenueCents  int64   `json:"total_revenue_cents"`
	StoreRevenueCents  int64   `json:"store_revenue_cents"`
	StoreOrders        int     `json:"store_orders"`
	BlendedROAS        float64 `json:"blended_roas"`
	TotalClicks        int64   `json:"total_clicks"`
	TotalImpressions   int64   `json:"total_impressions"`
	TotalConversions   int64   `json:"total_conversions"`
}

// SnapshotFlow produces the daily performance snapshot and pushes it to
// Klaviyo when configured.
type SnapshotFlow interface {
	TakeDailySnapshot(ctx context.Context) (*DailySnapshot, error)
}

// SnapshotFlowImpl implements SnapshotFlow.
type SnapshotFlowImpl struct {
	campaignRepo repository.CampaignRecordRepository
	activityRepo repository.ActivityLogRepository
	shopify      *platform.ShopifyClient
	klaviyo      *platform.KlaviyoClient
	notifyEmail  string
	logger       *log.Logger
}

// NewSnapshotFlow creates a new snapshot flow. shopify and klaviyo are used
// only when configured.
func NewSnapshotFlow(
	campaignRepo repository.CampaignRecordRepository,
	activityRepo repository.ActivityLogRepository,
	shopify *platform.ShopifyClient,
	klaviyo *platform.KlaviyoClient,
	notifyEmail string,
	logger *log.Logger,
) SnapshotFlow {
	return &SnapshotFlowImpl{
		campaignRepo: campaignRepo,
		activityRepo: activityRepo,
		shopify:      shopify,
		klaviyo:      klaviyo,
		notifyEmail:  notifyEmail,
		logger:       logger,
	}
}

// TakeDailySnapshot aggregates the campaign mirrors plus yesterday's store
// orders into one snapshot, records it, and forwards it to Klaviyo.
func (f *SnapshotFlowImpl) TakeDailySnapshot(ctx context.Context) (*DailySnapshot, error) {
	campaigns, err := f.campaignRepo.ListLinked(ctx, nil)
	if err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	snapshot := &DailySnapshot{Date: now.Format("2006-01-02")}

	for _, c := range campaigns {
		switch c.Status {
		case models.CampaignStatusActive:
			snapshot.ActiveCampaigns++
		case models.CampaignStatusPaused:
			snapshot.PausedCampaigns++
		}
		snapshot.TotalSpendCents += c.SpendCents
		snapshot.TotalRevenueCents += c.RevenueCents
		snapshot.TotalClicks += c.Clicks
		snapshot.TotalImpressions += c.Impressions
		snapshot.TotalConversions += c.Conversions
	}
	if snapshot.TotalSpendCents > 0 {
		snapshot.BlendedROAS = float64(snapshot.TotalRevenueCents) / float64(snapshot.TotalSpendCents)
	}

	if f.shopify != nil && f.shopify.Configured() {
		orders, err := f.shopify.ListOrdersSince(ctx, utils.BeginningOfDay(now).AddDate(0, 0, -1))
		if err != nil {
			if f.logger != nil {
				f.logger.Printf("snapshot could not fetch Shopify orders: %v", err)
			}
		} else {
			snapshot.StoreOrders = len(orders)
			for _, order := range orders {
				snapshot.StoreRevenueCents += order.TotalPriceCents
			}
		}
	}

	recordActivity(ctx, f.activityRepo, f.logger,
		models.NewActivity(models.ActionDailySnapshot,
			fmt.Sprintf("daily snapshot: %d active campaigns, spend %s, revenue %s",
				snapshot.ActiveCampaigns,
				utils.DollarStringFromCents(snapshot.TotalSpendCents),
				utils.DollarStringFromCents(snapshot.TotalRevenueCents)), snapshot))

	if f.klaviyo != nil && f.klaviyo.Configured() && f.notifyEmail != "" {
		err := f.klaviyo.TrackEvent(ctx, "Ads Daily Snapshot", f.notifyEmail, map[string]any{
			"date":             snapshot.Date,
			"active_campaigns": snapshot.ActiveCampaigns,
			"spend":            utils.DollarsFromCents(snapshot.TotalSpendCents),
			"revenue":          utils.DollarsFromCents(snapshot.TotalRevenueCents),
			"store_revenue":    utils.DollarsFromCents(snapshot.StoreRevenueCents),
			"blended_roas":     snapshot.BlendedROAS,
		})
		if err != nil && f.logger != nil {
			f.logger.Printf("failed to push snapshot to Klaviyo: %v", err)
		}
	}

	return snapshot, nil
}
