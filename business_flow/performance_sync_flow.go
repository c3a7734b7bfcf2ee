package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/platform"
	"github.com/amirphl/AutoSEM/repository"
	"github.com/amirphl/AutoSEM/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// syncFailureCriticalAt is the consecutive failed scheduled run count at
// which SYNC_FAILURE_CRITICAL is written.
const syncFailureCriticalAt = 3

// SyncResult summarizes one performance sync pass.
type SyncResult struct {
	PlatformsSynced  []string `json:"platforms_synced"`
	PlatformsFailed  []string `json:"platforms_failed"`
	CampaignsUpdated int      `json:"campaigns_updated"`
	CampaignsCreated int      `json:"campaigns_created"`
}

// PurgeResult summarizes one phantom cleanup pass.
type PurgeResult struct {
	Purged []string `json:"purged"`
}

// PerformanceSyncFlow defines the sync entry points.
type PerformanceSyncFlow interface {
	SyncAll(ctx context.Context) (*SyncResult, error)
	PurgePhantoms(ctx context.Context) (*PurgeResult, error)
	NoteScheduledOutcome(ctx context.Context, runErr error)
}

// PerformanceSyncFlowImpl implements PerformanceSyncFlow.
type PerformanceSyncFlowImpl struct {
	clients      ClientRegistry
	campaignRepo repository.CampaignRecordRepository
	activityRepo repository.ActivityLogRepository
	settingsFlow SettingsFlow
	retry        platform.RetryPolicy
	logger       *log.Logger

	mu                  sync.Mutex
	consecutiveFailures int
}

// NewPerformanceSyncFlow creates a new performance sync flow.
func NewPerformanceSyncFlow(
	clients ClientRegistry,
	campaignRepo repository.CampaignRecordRepository,
	activityRepo repository.ActivityLogRepository,
	settingsFlow SettingsFlow,
	logger *log.Logger,
) PerformanceSyncFlow {
	return &PerformanceSyncFlowImpl{
		clients:      clients,
		campaignRepo: campaignRepo,
		activityRepo: activityRepo,
		settingsFlow: settingsFlow,
		retry:        platform.DefaultRetryPolicy,
		logger:       logger,
	}
}

// SyncAll mirrors every configured platform: campaigns are auto-discovered,
// metric snapshots are replaced wholesale for the trailing window, and
// statuses are reconciled. A platform failing never blocks the others.
func (f *PerformanceSyncFlowImpl) SyncAll(ctx context.Context) (*SyncResult, error) {
	settings, err := f.settingsFlow.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	configured := f.clients.Configured()
	if len(configured) == 0 {
		return &SyncResult{}, nil
	}

	window := platform.LastDays(settings.SyncWindowDays, utils.UTCNow())
	result := &SyncResult{}

	for _, p := range configured {
		client := f.clients[p]

		created, updated, err := f.syncPlatform(ctx, client, p, window)
		if err != nil {
			result.PlatformsFailed = append(result.PlatformsFailed, p.String())
			if f.logger != nil {
				f.logger.Printf("sync failed for %s: %v", p, err)
			}
			continue
		}
		result.PlatformsSynced = append(result.PlatformsSynced, p.String())
		result.CampaignsCreated += created
		result.CampaignsUpdated += updated
	}

	f.recordOutcome(ctx, result, len(configured))

	if len(result.PlatformsSynced) == 0 {
		return result, NewBusinessError("ALL_PLATFORMS_FAILED", "every platform sync failed", ErrNoPlatformsHealthy)
	}
	return result, nil
}

func (f *PerformanceSyncFlowImpl) syncPlatform(ctx context.Context, client platform.Client, p models.Platform, window platform.DateRange) (created, updated int, err error) {
	var remotes []platform.RemoteCampaign
	err = f.retry.Do(ctx, func(ctx context.Context) error {
		var listErr error
		remotes, listErr = client.ListCampaigns(ctx)
		return listErr
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}

	records := make(map[string]*models.CampaignRecord, len(remotes))
	ids := make([]string, 0, len(remotes))
	for _, remote := range remotes {
		record, err := f.campaignRepo.ByPlatformCampaignID(ctx, p, remote.ID)
		if err != nil {
			return created, updated, err
		}
		if record == nil {
			record = &models.CampaignRecord{
				UUID:               uuid.New(),
				Platform:           p,
				PlatformCampaignID: utils.ToPtr(remote.ID),
				Name:               remote.Name,
				Status:             mapRemoteStatus(remote.Status),
				DailyBudgetCents:   remote.DailyBudgetCents,
			}
			if err := f.campaignRepo.Save(ctx, record); err != nil {
				return created, updated, err
			}
			created++
		}
		records[remote.ID] = record
		ids = append(ids, remote.ID)

		record.Name = remote.Name
		record.Status = mapRemoteStatus(remote.Status)
		if remote.DailyBudgetCents > 0 {
			record.DailyBudgetCents = remote.DailyBudgetCents
		}
	}

	if len(ids) == 0 {
		return created, updated, nil
	}

	var perfs []platform.Performance
	err = f.retry.Do(ctx, func(ctx context.Context) error {
		var perfErr error
		perfs, perfErr = client.GetPerformance(ctx, ids, window)
		return perfErr
	})
	if err != nil {
		return created, updated, fmt.Errorf("failed to fetch performance: %w", err)
	}

	now := utils.UTCNow()
	for _, perf := range perfs {
		record, ok := records[perf.CampaignID]
		if !ok {
			continue
		}

		// Snapshot replacement: the window totals overwrite whatever was
		// there before, they are never accumulated.
		record.SpendCents = perf.SpendCents
		record.RevenueCents = perf.RevenueCents
		record.Impressions = perf.Impressions
		record.Clicks = perf.Clicks
		record.Conversions = perf.Conversions
		record.LastSyncedAt = &now

		if err := f.campaignRepo.Update(ctx, record); err != nil {
			return created, updated, err
		}
		updated++
	}

	return created, updated, nil
}

// NoteScheduledOutcome tracks consecutive scheduled sync runs that failed
// outright and writes SYNC_FAILURE_CRITICAL exactly on the third. The
// scheduler calls it once per scheduled invocation, after in-run retries,
// so retried attempts inside one invocation count as a single failure.
func (f *PerformanceSyncFlowImpl) NoteScheduledOutcome(ctx context.Context, runErr error) {
	f.mu.Lock()
	if runErr != nil {
		f.consecutiveFailures++
	} else {
		f.consecutiveFailures = 0
	}
	failures := f.consecutiveFailures
	f.mu.Unlock()

	if runErr == nil || failures != syncFailureCriticalAt {
		return
	}
	recordActivity(ctx, f.activityRepo, f.logger,
		models.NewActivity(models.ActionSyncFailureCritical,
			fmt.Sprintf("performance sync failed %d scheduled runs in a row: %v", failures, runErr),
			map[string]any{"consecutive_failures": failures}))
}

// recordOutcome writes the activity entry for one sync pass.
func (f *PerformanceSyncFlowImpl) recordOutcome(ctx context.Context, result *SyncResult, configured int) {
	allFailed := len(result.PlatformsSynced) == 0 && configured > 0

	var entry *models.ActivityLog
	switch {
	case allFailed:
		entry = models.NewActivity(models.ActionSyncFailure,
			"performance sync failed on every platform", result)
	case len(result.PlatformsFailed) > 0:
		entry = models.NewActivity(models.ActionPerformanceSync,
			fmt.Sprintf("performance sync updated %d campaigns, platforms failed: %s",
				result.CampaignsUpdated, strings.Join(result.PlatformsFailed, ", ")), result)
	default:
		entry = models.NewActivity(models.ActionPerformanceSync,
			fmt.Sprintf("performance sync updated %d campaigns (%d discovered)",
				result.CampaignsUpdated, result.CampaignsCreated), result)
	}
	entry.PlatformsFailed = pq.StringArray(result.PlatformsFailed)

	recordActivity(ctx, f.activityRepo, f.logger, entry)
}

// PurgePhantoms deletes records that were never linked to a real platform
// campaign. Linked mirrors are never deleted here, even when the remote
// campaign has since disappeared; their history stays intact.
func (f *PerformanceSyncFlowImpl) PurgePhantoms(ctx context.Context) (*PurgeResult, error) {
	result := &PurgeResult{}

	records, err := f.campaignRepo.ListUnlinked(ctx)
	if err != nil {
		return nil, err
	}

	for _, record := range records {
		recordActivity(ctx, f.activityRepo, f.logger,
			models.NewActivity(models.ActionCampaignPurge,
				fmt.Sprintf("campaign %q was never linked to a platform campaign, removing local record", record.Name),
				map[string]string{"uuid": record.UUID.String()}).ForCampaign(record))

		if err := f.campaignRepo.Delete(ctx, record.ID); err != nil {
			return nil, err
		}
		result.Purged = append(result.Purged, record.UUID.String())
	}

	return result, nil
}

// mapRemoteStatus normalizes each platform's delivery status vocabulary to
// the local enum.
func mapRemoteStatus(remote string) models.CampaignStatus {
	switch strings.ToUpper(remote) {
	case "ACTIVE", "ENABLE", "ENABLED":
		return models.CampaignStatusActive
	default:
		return models.CampaignStatusPaused
	}
}
