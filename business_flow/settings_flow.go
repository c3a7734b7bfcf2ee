package businessflow

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/repository"
	"github.com/amirphl/AutoSEM/utils"
	"github.com/redis/go-redis/v9"
)

const (
	settingsCacheKey = "autosem:settings:snapshot"
	settingsCacheTTL = 60 * time.Second
)

// SettingsSnapshot is the fully-typed view of every recognized setting,
// resolved against defaults. Money values are cents.
type SettingsSnapshot struct {
	AutomationEnabled       bool    `json:"automation_enabled"`
	DailySpendLimitCents    int64   `json:"daily_spend_limit_cents"`
	MonthlySpendLimitCents  int64   `json:"monthly_spend_limit_cents"`
	MinROASThreshold        float64 `json:"min_roas_threshold"`
	EmergencyPauseLossCents int64   `json:"emergency_pause_loss_cents"`
	MaxDailyBudgetCents     int64   `json:"max_daily_budget_cents"`
	MinDailyBudgetCents     int64   `json:"min_daily_budget_cents"`
	BudgetIncreaseFactor    float64 `json:"budget_increase_factor"`
	BudgetDecreaseFactor    float64 `json:"budget_decrease_factor"`
	SyncWindowDays          int     `json:"sync_window_days"`
	CPCBoundaryExclusive    bool    `json:"cpc_boundary_exclusive"`
}

// SettingsFlow defines operations for reading and updating automation settings.
type SettingsFlow interface {
	Snapshot(ctx context.Context) (*SettingsSnapshot, error)
	All(ctx context.Context) (map[string]string, error)
	Update(ctx context.Context, changes map[string]string) error
}

// SettingsFlowImpl implements SettingsFlow with an optional Redis
// read-through cache in front of the settings table.
type SettingsFlowImpl struct {
	settingRepo  repository.SettingRepository
	activityRepo repository.ActivityLogRepository
	cache        *redis.Client
	logger       *log.Logger
}

// NewSettingsFlow creates a new settings flow. cache may be nil when Redis
// is not deployed.
func NewSettingsFlow(
	settingRepo repository.SettingRepository,
	activityRepo repository.ActivityLogRepository,
	cache *redis.Client,
	logger *log.Logger,
) SettingsFlow {
	return &SettingsFlowImpl{
		settingRepo:  settingRepo,
		activityRepo: activityRepo,
		cache:        cache,
		logger:       logger,
	}
}

// All returns every recognized setting resolved against defaults, plus any
// extra stored keys.
func (f *SettingsFlowImpl) All(ctx context.Context) (map[string]string, error) {
	resolved := make(map[string]string, len(models.SettingDefaults))
	for key, value := range models.SettingDefaults {
		resolved[key] = value
	}

	rows, err := f.settingRepo.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		resolved[row.Key] = row.Value
	}

	return resolved, nil
}

// Snapshot returns the typed settings view, served from cache when possible.
func (f *SettingsFlowImpl) Snapshot(ctx context.Context) (*SettingsSnapshot, error) {
	if f.cache != nil {
		raw, err := f.cache.Get(ctx, settingsCacheKey).Bytes()
		if err == nil {
			var snapshot SettingsSnapshot
			if err := json.Unmarshal(raw, &snapshot); err == nil {
				return &snapshot, nil
			}
		}
	}

	values, err := f.All(ctx)
	if err != nil {
		return nil, err
	}

	snapshot, err := buildSnapshot(values)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if raw, err := json.Marshal(snapshot); err == nil {
			if err := f.cache.Set(ctx, settingsCacheKey, raw, settingsCacheTTL).Err(); err != nil && f.logger != nil {
				f.logger.Printf("failed to cache settings snapshot: %v", err)
			}
		}
	}

	return snapshot, nil
}

// Update validates and persists setting changes, then invalidates the cache.
// Unknown keys and malformed values are rejected before anything is written.
func (f *SettingsFlowImpl) Update(ctx context.Context, changes map[string]string) error {
	if len(changes) == 0 {
		return NewBusinessError("EMPTY_UPDATE", "at least one setting must be provided", nil)
	}

	for key, value := range changes {
		if _, ok := models.SettingDefaults[key]; !ok {
			return NewBusinessErrorf("UNKNOWN_SETTING", "unknown setting key %q", ErrSettingKeyUnknown, key)
		}
		if err := validateSettingValue(key, value); err != nil {
			return err
		}
	}

	for key, value := range changes {
		if err := f.settingRepo.Set(ctx, key, value); err != nil {
			return err
		}
	}

	if f.cache != nil {
		if err := f.cache.Del(ctx, settingsCacheKey).Err(); err != nil && f.logger != nil {
			f.logger.Printf("failed to invalidate settings cache: %v", err)
		}
	}

	recordActivity(ctx, f.activityRepo, f.logger,
		models.NewActivity(models.ActionSettingsUpdated, "automation settings updated", changes))

	return nil
}

func validateSettingValue(key, value string) error {
	switch key {
	case models.SettingKeyAutomationEnabled, models.SettingKeyCPCBoundaryExclusive:
		if value != "true" && value != "false" {
			return NewBusinessErrorf("INVALID_SETTING", "setting %q must be true or false", ErrSettingValueInvalid, key)
		}
	case models.SettingKeySyncWindowDays:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 90 {
			return NewBusinessErrorf("INVALID_SETTING", "setting %q must be an integer between 1 and 90", ErrSettingValueInvalid, key)
		}
	case models.SettingKeyBudgetIncreaseFactor, models.SettingKeyBudgetDecreaseFactor:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v <= 0 || v > 10 {
			return NewBusinessErrorf("INVALID_SETTING", "setting %q must be a positive factor", ErrSettingValueInvalid, key)
		}
	case models.SettingKeyMinROASThreshold:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 {
			return NewBusinessErrorf("INVALID_SETTING", "setting %q must be zero or a positive number", ErrSettingValueInvalid, key)
		}
	default:
		// Money settings
		cents, err := utils.CentsFromDollarString(value)
		if err != nil || cents < 0 {
			return NewBusinessErrorf("INVALID_SETTING", "setting %q must be a non-negative dollar amount", ErrSettingValueInvalid, key)
		}
	}
	return nil
}

func buildSnapshot(values map[string]string) (*SettingsSnapshot, error) {
	money := func(key string) (int64, error) {
		return utils.CentsFromDollarString(values[key])
	}

	dailyLimit, err := money(models.SettingKeyDailySpendLimit)
	if err != nil {
		return nil, NewBusinessErrorf("INVALID_SETTING", "stored setting %q is malformed", ErrSettingValueInvalid, models.SettingKeyDailySpendLimit)
	}
	monthlyLimit, err := money(models.SettingKeyMonthlySpendLimit)
	if err != nil {
		return nil, NewBusinessErrorf("INVALID_SETTING", "stored setting %q is malformed", ErrSettingValueInvalid, models.SettingKeyMonthlySpendLimit)
	}
	emergencyLoss, err := money(models.SettingKeyEmergencyPauseLoss)
	if err != nil {
		return nil, NewBusinessErrorf("INVALID_SETTING", "stored setting %q is malformed", ErrSettingValueInvalid, models.SettingKeyEmergencyPauseLoss)
	}
	maxBudget, err := money(models.SettingKeyMaxDailyBudget)
	if err != nil {
		return nil, NewBusinessErrorf("INVALID_SETTING", "stored setting %q is malformed", ErrSettingValueInvalid, models.SettingKeyMaxDailyBudget)
	}
	minBudget, err := money(models.SettingKeyMinDailyBudget)
	if err != nil {
		return nil, NewBusinessErrorf("INVALID_SETTING", "stored setting %q is malformed", ErrSettingValueInvalid, models.SettingKeyMinDailyBudget)
	}

	minROAS, err := strconv.ParseFloat(values[models.SettingKeyMinROASThreshold], 64)
	if err != nil {
		return nil, NewBusinessErrorf("INVALID_SETTING", "stored setting %q is malformed", ErrSettingValueInvalid, models.SettingKeyMinROASThreshold)
	}
	increase, err := strconv.ParseFloat(values[models.SettingKeyBudgetIncreaseFactor], 64)
	if err != nil {
		return nil, NewBusinessErrorf("INVALID_SETTING", "stored setting %q is malformed", ErrSettingValueInvalid, models.SettingKeyBudgetIncreaseFactor)
	}
	decrease, err := strconv.ParseFloat(values[models.SettingKeyBudgetDecreaseFactor], 64)
	if err != nil {
		return nil, NewBusinessErrorf("INVALID_SETTING", "stored setting %q is malformed", ErrSettingValueInvalid, models.SettingKeyBudgetDecreaseFactor)
	}
	windowDays, err := strconv.Atoi(values[models.SettingKeySyncWindowDays])
	if err != nil {
		return nil, NewBusinessErrorf("INVALID_SETTING", "stored setting %q is malformed", ErrSettingValueInvalid, models.SettingKeySyncWindowDays)
	}

	return &SettingsSnapshot{
		AutomationEnabled:       values[models.SettingKeyAutomationEnabled] == "true",
		DailySpendLimitCents:    dailyLimit,
		MonthlySpendLimitCents:  monthlyLimit,
		MinROASThreshold:        minROAS,
		EmergencyPauseLossCents: emergencyLoss,
		MaxDailyBudgetCents:     maxBudget,
		MinDailyBudgetCents:     minBudget,
		BudgetIncreaseFactor:    increase,
		BudgetDecreaseFactor:    decrease,
		SyncWindowDays:          windowDays,
		CPCBoundaryExclusive:    values[models.SettingKeyCPCBoundaryExclusive] == "true",
	}, nil
}
