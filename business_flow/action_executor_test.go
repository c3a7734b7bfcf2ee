package businessflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecutorFixture(campaigns ...*models.CampaignRecord) (ActionExecutor, *fakeCampaignRepo, *fakeClient) {
	campaignRepo := newFakeCampaignRepo(campaigns...)
	client := newFakeClient("meta")
	executor := NewActionExecutor(ClientRegistry{models.PlatformMeta: client}, campaignRepo, nil)
	return executor, campaignRepo, client
}

func TestExecute_Pause(t *testing.T) {
	campaign := linkedCampaign(0, models.PlatformMeta, "c1", 1000)
	executor, campaignRepo, client := newExecutorFixture(campaign)

	err := executor.Execute(context.Background(), campaign, &Decision{Kind: DecisionPause, Rule: "underperformer_pause"})
	require.NoError(t, err)

	assert.Equal(t, []string{"c1"}, client.paused)
	assert.Equal(t, models.CampaignStatusPaused, campaign.Status)

	stored, _ := campaignRepo.ByPlatformCampaignID(context.Background(), models.PlatformMeta, "c1")
	assert.Equal(t, models.CampaignStatusPaused, stored.Status)
}

func TestExecute_SetBudget(t *testing.T) {
	campaign := linkedCampaign(0, models.PlatformMeta, "c1", 1000)
	executor, campaignRepo, client := newExecutorFixture(campaign)

	err := executor.Execute(context.Background(), campaign, &Decision{
		Kind: DecisionSetBudget, Rule: "roas_budget_increase", NewBudgetCents: 1250,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1250), client.budgets["c1"])
	assert.Equal(t, int64(1250), campaign.DailyBudgetCents)

	stored, _ := campaignRepo.ByPlatformCampaignID(context.Background(), models.PlatformMeta, "c1")
	assert.Equal(t, int64(1250), stored.DailyBudgetCents)
}

func TestExecute_SetBudget_AdSetFallback(t *testing.T) {
	campaign := linkedCampaign(0, models.PlatformMeta, "c1", 1000)
	executor, campaignRepo, client := newExecutorFixture(campaign)

	client.setBudgetErr = platform.NewError("meta", "SetBudget", platform.ErrorKindRejected,
		fmt.Errorf("%w: campaign budgets are off", platform.ErrAdSetBudget))
	client.adSets = []platform.AdSet{
		{ID: "a1", CampaignID: "c1"},
		{ID: "a2", CampaignID: "c1"},
		{ID: "a3", CampaignID: "c1"},
	}

	err := executor.Execute(context.Background(), campaign, &Decision{
		Kind: DecisionSetBudget, Rule: "roas_budget_increase", NewBudgetCents: 1000,
	})
	require.NoError(t, err)

	// Split evenly, remainder on the first ad set, total preserved.
	assert.Equal(t, int64(334), client.adSetBudgets["a1"])
	assert.Equal(t, int64(333), client.adSetBudgets["a2"])
	assert.Equal(t, int64(333), client.adSetBudgets["a3"])

	stored, _ := campaignRepo.ByPlatformCampaignID(context.Background(), models.PlatformMeta, "c1")
	assert.Equal(t, int64(1000), stored.DailyBudgetCents, "local mirror keeps the campaign-level budget")
}

func TestExecute_SetBudget_AdSetFallbackWithoutAdSets(t *testing.T) {
	campaign := linkedCampaign(0, models.PlatformMeta, "c1", 1000)
	executor, _, client := newExecutorFixture(campaign)

	client.setBudgetErr = platform.NewError("meta", "SetBudget", platform.ErrorKindRejected,
		fmt.Errorf("%w: campaign budgets are off", platform.ErrAdSetBudget))
	client.adSets = nil

	err := executor.Execute(context.Background(), campaign, &Decision{
		Kind: DecisionSetBudget, NewBudgetCents: 1000,
	})
	require.Error(t, err)
	assert.Equal(t, int64(1000), campaign.DailyBudgetCents, "budget unchanged when the fallback has nothing to write to")
}

func TestExecute_RejectsUnlinkedCampaign(t *testing.T) {
	campaign := &models.CampaignRecord{ID: 1, Platform: models.PlatformMeta, Status: models.CampaignStatusActive}
	executor, _, client := newExecutorFixture()

	err := executor.Execute(context.Background(), campaign, &Decision{Kind: DecisionPause})
	require.Error(t, err)
	assert.True(t, IsCampaignNotLinked(err))
	assert.Empty(t, client.paused)
}

func TestExecute_UnknownPlatform(t *testing.T) {
	campaign := linkedCampaign(1, models.PlatformTikTok, "t1", 1000)
	executor, _, _ := newExecutorFixture()

	err := executor.Execute(context.Background(), campaign, &Decision{Kind: DecisionPause})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPlatformNotWired)
}

func TestExecute_PlatformRefusalLeavesMirrorUntouched(t *testing.T) {
	campaign := linkedCampaign(0, models.PlatformMeta, "c1", 1000)
	executor, campaignRepo, client := newExecutorFixture(campaign)
	client.setBudgetErr = platform.NewError("meta", "SetBudget", platform.ErrorKindCredential, assert.AnError)

	err := executor.Execute(context.Background(), campaign, &Decision{
		Kind: DecisionSetBudget, NewBudgetCents: 1250,
	})
	require.Error(t, err)

	stored, _ := campaignRepo.ByPlatformCampaignID(context.Background(), models.PlatformMeta, "c1")
	assert.Equal(t, int64(1000), stored.DailyBudgetCents)
}
