// Package businessflow contains the core business logic and use cases for the automation workflows
package businessflow

import (
	"context"
	"log"

	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/platform"
	"github.com/amirphl/AutoSEM/repository"
)

// ClientRegistry maps each platform to its API client. Missing entries mean
// the platform is not wired in this deployment.
type ClientRegistry map[models.Platform]platform.Client

// Configured returns the platforms that have usable credentials, in a stable
// order.
func (r ClientRegistry) Configured() []models.Platform {
	ordered := []models.Platform{models.PlatformMeta, models.PlatformTikTok, models.PlatformGoogle}

	var out []models.Platform
	for _, p := range ordered {
		if client, ok := r[p]; ok && client.Configured() {
			out = append(out, p)
		}
	}
	return out
}

// Get returns the client for a platform or an error when none is registered.
func (r ClientRegistry) Get(p models.Platform) (platform.Client, error) {
	client, ok := r[p]
	if !ok {
		return nil, NewBusinessErrorf("PLATFORM_NOT_WIRED", "no client registered for platform %s", ErrPlatformNotWired, p)
	}
	return client, nil
}

// recordActivity appends one activity log row. The automation never aborts
// because an audit write failed; the failure is logged and swallowed.
func recordActivity(ctx context.Context, repo repository.ActivityLogRepository, logger *log.Logger, entry *models.ActivityLog) {
	if err := repo.Save(ctx, entry); err != nil && logger != nil {
		logger.Printf("failed to record activity %s: %v", entry.Action, err)
	}
}
