package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/repository"
	"github.com/amirphl/AutoSEM/utils"
	"github.com/xuri/excelize/v2"
)

// DashboardSummary is the aggregate view served to the dashboard endpoint.
type DashboardSummary struct {
	ActiveCampaigns   int     `json:"active_campaigns"`
	PausedCampaigns   int     `json:"paused_campaigns"`
	UnlinkedCampaigns int     `json:"unlinked_campaigns"`
	TotalSpendCents   int64   `json:"total_spend_cents"`
	TotalRevenueCents int64   `json:"total_revenue_cents"`
	BlendedROAS       float64 `json:"blended_roas"`
	ActionsLast24h    int64   `json:"actions_last_24h"`
	LastSyncAt        *string `json:"last_sync_at,omitempty"`
	LastOptimizeAt    *string `json:"last_optimize_at,omitempty"`
}

// ReportFlow serves the dashboard summary and the activity export.
type ReportFlow interface {
	Dashboard(ctx context.Context) (*DashboardSummary, error)
	ExportActivity(ctx context.Context, since time.Time) ([]byte, error)
}

// ReportFlowImpl implements ReportFlow.
type ReportFlowImpl struct {
	campaignRepo repository.CampaignRecordRepository
	activityRepo repository.ActivityLogRepository
	logger       *log.Logger
}

// NewReportFlow creates a new report flow.
func NewReportFlow(
	campaignRepo repository.CampaignRecordRepository,
	activityRepo repository.ActivityLogRepository,
	logger *log.Logger,
) ReportFlow {
	return &ReportFlowImpl{
		campaignRepo: campaignRepo,
		activityRepo: activityRepo,
		logger:       logger,
	}
}

// Dashboard aggregates the campaign mirrors and recent automation activity.
func (f *ReportFlowImpl) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	campaigns, err := f.campaignRepo.ByFilter(ctx, models.CampaignRecordFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{}
	for _, c := range campaigns {
		if !c.Linked() {
			summary.UnlinkedCampaigns++
			continue
		}
		switch c.Status {
		case models.CampaignStatusActive:
			summary.ActiveCampaigns++
		case models.CampaignStatusPaused:
			summary.PausedCampaigns++
		}
		summary.TotalSpendCents += c.SpendCents
		summary.TotalRevenueCents += c.RevenueCents
	}
	if summary.TotalSpendCents > 0 {
		summary.BlendedROAS = float64(summary.TotalRevenueCents) / float64(summary.TotalSpendCents)
	}

	actions, err := f.activityRepo.CountSince(ctx, models.ActionOptimizeAction, utils.UTCNowAdd(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	summary.ActionsLast24h = actions

	if last, err := f.activityRepo.LatestByAction(ctx, models.ActionPerformanceSync); err == nil && last != nil {
		ts := last.CreatedAt.Format(time.RFC3339)
		summary.LastSyncAt = &ts
	}
	if last, err := f.activityRepo.LatestByAction(ctx, models.ActionAutoOptimize); err == nil && last != nil {
		ts := last.CreatedAt.Format(time.RFC3339)
		summary.LastOptimizeAt = &ts
	}

	return summary, nil
}

// ExportActivity renders the activity log since the given time as an xlsx
// workbook.
func (f *ReportFlowImpl) ExportActivity(ctx context.Context, since time.Time) ([]byte, error) {
	logs, err := f.activityRepo.ByFilter(ctx, models.ActivityLogFilter{CreatedAfter: &since}, "created_at ASC", 0, 0)
	if err != nil {
		return nil, err
	}

	file := excelize.NewFile()
	defer func() {
		if err := file.Close(); err != nil && f.logger != nil {
			f.logger.Printf("failed to close export workbook: %v", err)
		}
	}()

	const sheet = "Activity"
	index, err := file.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create export sheet: %w", err)
	}
	file.SetActiveSheet(index)
	if err := file.DeleteSheet("Sheet1"); err != nil && f.logger != nil {
		f.logger.Printf("failed to drop default sheet: %v", err)
	}

	headers := []string{"Time (UTC)", "Action", "Description", "Campaign Record", "Platform", "Platforms Failed"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write export header: %w", err)
		}
	}

	for rowIdx, entry := range logs {
		row := rowIdx + 2

		campaignRef := ""
		if entry.CampaignRecordID != nil {
			campaignRef = fmt.Sprintf("%d", *entry.CampaignRecordID)
		}
		platformName := ""
		if entry.Platform != nil {
			platformName = entry.Platform.String()
		}
		failed := ""
		for i, p := range entry.PlatformsFailed {
			if i > 0 {
				failed += ", "
			}
			failed += p
		}

		values := []any{
			entry.CreatedAt.Format(time.RFC3339),
			entry.Action,
			entry.Description,
			campaignRef,
			platformName,
			failed,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write export row: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render export workbook: %w", err)
	}

	return buf.Bytes(), nil
}
