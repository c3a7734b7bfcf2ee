package businessflow

import (
	"context"
	"log"
	"time"

	"github.com/amirphl/AutoSEM/app/scheduler"
	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/repository"
	"github.com/amirphl/AutoSEM/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthStatus is the deep health report for the service and its
// dependencies.
type HealthStatus struct {
	Healthy         bool                    `json:"healthy"`
	Checks          map[string]string       `json:"checks"`
	Platforms       map[string]bool         `json:"platforms"`
	Jobs            []scheduler.JobRunState `json:"jobs,omitempty"`
	EmergencyPaused bool                    `json:"emergency_paused"`
	RecentActions   int64                   `json:"recent_actions"`
}

// HealthFlow defines the deep health check.
type HealthFlow interface {
	Check(ctx context.Context) *HealthStatus
}

// HealthFlowImpl implements HealthFlow.
type HealthFlowImpl struct {
	db           *gorm.DB
	cache        *redis.Client
	clients      ClientRegistry
	activityRepo repository.ActivityLogRepository
	jobStates    func() []scheduler.JobRunState
	logger       *log.Logger
}

// NewHealthFlow creates a new health flow. cache and jobStates may be nil.
func NewHealthFlow(
	db *gorm.DB,
	cache *redis.Client,
	clients ClientRegistry,
	activityRepo repository.ActivityLogRepository,
	jobStates func() []scheduler.JobRunState,
	logger *log.Logger,
) HealthFlow {
	return &HealthFlowImpl{
		db:           db,
		cache:        cache,
		clients:      clients,
		activityRepo: activityRepo,
		jobStates:    jobStates,
		logger:       logger,
	}
}

// Check pings the database and cache, reports which platforms hold
// credentials, and summarizes automation state: per-job run history, whether
// an emergency pause fired today, and how many log entries the last 24 hours
// produced. A broken cache degrades the report but only the database marks
// the service unhealthy.
func (f *HealthFlowImpl) Check(ctx context.Context) *HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := &HealthStatus{
		Healthy:   true,
		Checks:    map[string]string{},
		Platforms: map[string]bool{},
	}

	sqlDB, err := f.db.DB()
	if err != nil {
		status.Healthy = false
		status.Checks["database"] = "unreachable: " + err.Error()
	} else if err := sqlDB.PingContext(ctx); err != nil {
		status.Healthy = false
		status.Checks["database"] = "ping failed: " + err.Error()
	} else {
		status.Checks["database"] = "ok"
	}

	if f.cache != nil {
		if err := f.cache.Ping(ctx).Err(); err != nil {
			status.Checks["cache"] = "ping failed: " + err.Error()
		} else {
			status.Checks["cache"] = "ok"
		}
	} else {
		status.Checks["cache"] = "disabled"
	}

	for p, client := range f.clients {
		status.Platforms[p.String()] = client.Configured()
	}

	if f.jobStates != nil {
		status.Jobs = f.jobStates()
	}

	// Daily spend limits reset at midnight UTC, so a pause from a previous
	// day no longer applies.
	startOfDay := utils.UTCNow().Truncate(24 * time.Hour)
	if paused, err := f.activityRepo.CountSince(ctx, models.ActionEmergencyPause, startOfDay); err == nil {
		status.EmergencyPaused = paused > 0
	}

	dayAgo := utils.UTCNow().Add(-24 * time.Hour)
	if count, err := f.activityRepo.Count(ctx, models.ActivityLogFilter{CreatedAfter: &dayAgo}); err == nil {
		status.RecentActions = count
	}

	return status
}
