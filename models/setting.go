package models

import "time"

// Recognized setting keys. Unknown keys are stored verbatim and ignored by
// the automation flows.
const (
	SettingKeyAutomationEnabled    = "automation_enabled"
	SettingKeyDailySpendLimit      = "daily_spend_limit"
	SettingKeyMonthlySpendLimit    = "monthly_spend_limit"
	SettingKeyMinROASThreshold     = "min_roas_threshold"
	SettingKeyEmergencyPauseLoss   = "emergency_pause_loss"
	SettingKeyMaxDailyBudget       = "max_daily_budget"
	SettingKeyMinDailyBudget       = "min_daily_budget"
	SettingKeyBudgetIncreaseFactor = "budget_increase_factor"
	SettingKeyBudgetDecreaseFactor = "budget_decrease_factor"
	SettingKeySyncWindowDays       = "sync_window_days"
	SettingKeyCPCBoundaryExclusive = "cpc_boundary_exclusive"
)

// SettingDefaults maps every recognized key to the value assumed when the
// row is absent. Values are stored as strings; numeric values are dollar
// amounts or plain numbers, booleans are "true"/"false".
var SettingDefaults = map[string]string{
	SettingKeyAutomationEnabled:    "true",
	SettingKeyDailySpendLimit:      "200.00",
	SettingKeyMonthlySpendLimit:    "5000.00",
	SettingKeyMinROASThreshold:     "1.5",
	SettingKeyEmergencyPauseLoss:   "500.00",
	SettingKeyMaxDailyBudget:       "25.00",
	SettingKeyMinDailyBudget:       "3.00",
	SettingKeyBudgetIncreaseFactor: "1.25",
	SettingKeyBudgetDecreaseFactor: "0.75",
	SettingKeySyncWindowDays:       "7",
	SettingKeyCPCBoundaryExclusive: "true",
}

// Setting is a single key-value configuration row. Reads fall back to
// SettingDefaults when no row exists for a recognized key.
type Setting struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Key       string    `gorm:"type:varchar(64);uniqueIndex:uk_settings_key;not null" json:"key"`
	Value     string    `gorm:"type:varchar(255);not null" json:"value"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Setting) TableName() string { return "settings" }

// SettingFilter represents filter criteria for setting queries
type SettingFilter struct {
	ID  *uint   `json:"id,omitempty"`
	Key *string `json:"key,omitempty"`
}
