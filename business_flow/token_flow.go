package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/platform"
	"github.com/amirphl/AutoSEM/repository"
)

// metaAccessTokenKey is the settings row that holds the most recent
// long-lived Meta token. Boot prefers it over the environment value.
const metaAccessTokenKey = "meta_access_token"

// TokenFlow keeps long-lived platform credentials fresh.
type TokenFlow interface {
	RefreshMetaToken(ctx context.Context) error
}

// TokenFlowImpl implements TokenFlow.
type TokenFlowImpl struct {
	meta         *platform.MetaClient
	appID        string
	settingRepo  repository.SettingRepository
	activityRepo repository.ActivityLogRepository
	logger       *log.Logger
}

// NewTokenFlow creates a new token flow.
func NewTokenFlow(
	meta *platform.MetaClient,
	appID string,
	settingRepo repository.SettingRepository,
	activityRepo repository.ActivityLogRepository,
	logger *log.Logger,
) TokenFlow {
	return &TokenFlowImpl{
		meta:         meta,
		appID:        appID,
		settingRepo:  settingRepo,
		activityRepo: activityRepo,
		logger:       logger,
	}
}

// RefreshMetaToken exchanges the current Meta token for a fresh long-lived
// one and persists it so restarts pick it up.
func (f *TokenFlowImpl) RefreshMetaToken(ctx context.Context) error {
	if f.meta == nil || !f.meta.Configured() || f.appID == "" {
		return nil
	}

	token, lifetime, err := f.meta.RefreshToken(ctx, f.appID)
	if err != nil {
		return fmt.Errorf("failed to refresh Meta access token: %w", err)
	}

	if err := f.settingRepo.Set(ctx, metaAccessTokenKey, token); err != nil {
		return err
	}

	recordActivity(ctx, f.activityRepo, f.logger,
		models.NewActivity(models.ActionTokenRefresh,
			fmt.Sprintf("Meta access token refreshed, valid for %s", lifetime),
			map[string]any{"platform": "meta", "lifetime_seconds": int64(lifetime.Seconds())}))

	return nil
}
