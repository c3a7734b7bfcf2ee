package businessflow

import (
	"context"
	"testing"

	"github.com/amirphl/AutoSEM/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettingsFixture(stored map[string]string) (SettingsFlow, *fakeSettingRepo, *fakeActivityRepo) {
	settingRepo := newFakeSettingRepo(stored)
	activityRepo := &fakeActivityRepo{}
	flow := NewSettingsFlow(settingRepo, activityRepo, nil, nil)
	return flow, settingRepo, activityRepo
}

func TestSnapshot_DefaultsWhenNothingStored(t *testing.T) {
	flow, _, _ := newSettingsFixture(nil)

	snapshot, err := flow.Snapshot(context.Background())
	require.NoError(t, err)

	assert.True(t, snapshot.AutomationEnabled)
	assert.Equal(t, int64(20_000), snapshot.DailySpendLimitCents)
	assert.Equal(t, int64(500_000), snapshot.MonthlySpendLimitCents)
	assert.Equal(t, 1.5, snapshot.MinROASThreshold)
	assert.Equal(t, int64(50_000), snapshot.EmergencyPauseLossCents)
	assert.Equal(t, int64(2_500), snapshot.MaxDailyBudgetCents)
	assert.Equal(t, int64(300), snapshot.MinDailyBudgetCents)
	assert.Equal(t, 1.25, snapshot.BudgetIncreaseFactor)
	assert.Equal(t, 0.75, snapshot.BudgetDecreaseFactor)
	assert.Equal(t, 7, snapshot.SyncWindowDays)
	assert.True(t, snapshot.CPCBoundaryExclusive)
}

func TestSnapshot_StoredValuesOverrideDefaults(t *testing.T) {
	flow, _, _ := newSettingsFixture(map[string]string{
		models.SettingKeyMinROASThreshold:  "2.0",
		models.SettingKeyAutomationEnabled: "false",
		models.SettingKeyDailySpendLimit:   "350.50",
	})

	snapshot, err := flow.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2.0, snapshot.MinROASThreshold)
	assert.False(t, snapshot.AutomationEnabled)
	assert.Equal(t, int64(35_050), snapshot.DailySpendLimitCents)
	assert.Equal(t, int64(2_500), snapshot.MaxDailyBudgetCents, "untouched keys keep their defaults")
}

func TestUpdate_PersistsAndLogs(t *testing.T) {
	flow, settingRepo, activityRepo := newSettingsFixture(nil)

	err := flow.Update(context.Background(), map[string]string{
		models.SettingKeyMinROASThreshold: "2.5",
		models.SettingKeyMaxDailyBudget:   "40.00",
	})
	require.NoError(t, err)

	row, _ := settingRepo.ByKey(context.Background(), models.SettingKeyMinROASThreshold)
	require.NotNil(t, row)
	assert.Equal(t, "2.5", row.Value)

	require.Len(t, activityRepo.byAction(models.ActionSettingsUpdated), 1)
}

func TestUpdate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		changes map[string]string
	}{
		{"empty update", map[string]string{}},
		{"unknown key", map[string]string{"typo_key": "1"}},
		{"bad boolean", map[string]string{models.SettingKeyAutomationEnabled: "yes"}},
		{"negative money", map[string]string{models.SettingKeyDailySpendLimit: "-5"}},
		{"garbage money", map[string]string{models.SettingKeyMaxDailyBudget: "lots"}},
		{"zero factor", map[string]string{models.SettingKeyBudgetIncreaseFactor: "0"}},
		{"negative roas", map[string]string{models.SettingKeyMinROASThreshold: "-1"}},
		{"window too large", map[string]string{models.SettingKeySyncWindowDays: "365"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, settingRepo, _ := newSettingsFixture(nil)

			err := flow.Update(context.Background(), tt.changes)
			require.Error(t, err)

			count, _ := settingRepo.Count(context.Background(), models.SettingFilter{})
			assert.Zero(t, count, "nothing is written when validation fails")
		})
	}
}

func TestUpdate_RejectsAllOrNothing(t *testing.T) {
	flow, settingRepo, _ := newSettingsFixture(nil)

	err := flow.Update(context.Background(), map[string]string{
		models.SettingKeyMinROASThreshold: "2.5",
		"bogus":                           "1",
	})
	require.Error(t, err)
	assert.True(t, IsSettingKeyUnknown(err))

	count, _ := settingRepo.Count(context.Background(), models.SettingFilter{})
	assert.Zero(t, count, "a single bad key rejects the whole batch")
}

func TestUpdate_ZeroROASIsAllowed(t *testing.T) {
	flow, _, _ := newSettingsFixture(nil)

	err := flow.Update(context.Background(), map[string]string{
		models.SettingKeyMinROASThreshold: "0",
	})
	require.NoError(t, err, "zero disables the ROAS rules and is a legal value")
}
