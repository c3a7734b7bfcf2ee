package businessflow

import (
	"context"
	"testing"

	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateCampaign_RuleTable(t *testing.T) {
	settings := defaultTestSettings()

	tests := []struct {
		name           string
		campaign       *models.CampaignRecord
		expectRule     string
		expectKind     DecisionKind
		expectBudget   int64
		expectNoAction bool
	}{
		{
			name: "broken landing page with high CPC is paused",
			campaign: &models.CampaignRecord{
				DailyBudgetCents: 1000,
				SpendCents:       6000, Impressions: 1000, Clicks: 40, Conversions: 0,
			},
			expectRule: "landing_page_pause",
			expectKind: DecisionPause,
		},
		{
			name: "broken landing page with moderate CPC gets budget cut",
			campaign: &models.CampaignRecord{
				DailyBudgetCents: 1000,
				SpendCents:       1800, Impressions: 900, Clicks: 30, Conversions: 0,
			},
			expectRule:   "landing_page_budget_cut",
			expectKind:   DecisionSetBudget,
			expectBudget: 750,
		},
		{
			name: "CPC exactly on the boundary fires no landing page rule",
			campaign: &models.CampaignRecord{
				DailyBudgetCents: 1000,
				SpendCents:       1500, Impressions: 900, Clicks: 30, Conversions: 0,
			},
			expectNoAction: true,
		},
		{
			name: "underperformer with meaningful spend is paused",
			campaign: &models.CampaignRecord{
				DailyBudgetCents: 1000,
				SpendCents:       2000, RevenueCents: 900, Impressions: 10000, Clicks: 100, Conversions: 1,
			},
			expectRule: "underperformer_pause",
			expectKind: DecisionPause,
		},
		{
			name: "winner with cheap clicks is scaled up",
			campaign: &models.CampaignRecord{
				DailyBudgetCents: 1000,
				SpendCents:       500, RevenueCents: 2000, Impressions: 1000, Clicks: 50, Conversions: 2,
			},
			expectRule:   "scale_winner",
			expectKind:   DecisionSetBudget,
			expectBudget: 1200,
		},
		{
			name: "scale winner increase is capped at the max daily budget",
			campaign: &models.CampaignRecord{
				DailyBudgetCents: 2400,
				SpendCents:       500, RevenueCents: 2000, Impressions: 1000, Clicks: 50, Conversions: 2,
			},
			expectRule:   "scale_winner",
			expectKind:   DecisionSetBudget,
			expectBudget: 2500,
		},
		{
			name: "high ROAS raises the budget",
			campaign: &models.CampaignRecord{
				DailyBudgetCents: 1000,
				SpendCents:       1000, RevenueCents: 4000, Impressions: 10000, Clicks: 100, Conversions: 4,
			},
			expectRule:   "roas_budget_increase",
			expectKind:   DecisionSetBudget,
			expectBudget: 1250,
		},
		{
			name: "low ROAS with meaningful spend cuts the budget",
			campaign: &models.CampaignRecord{
				DailyBudgetCents: 1000,
				SpendCents:       5000, RevenueCents: 5000, Impressions: 10000, Clicks: 100, Conversions: 5,
			},
			expectRule:   "roas_budget_decrease",
			expectKind:   DecisionSetBudget,
			expectBudget: 750,
		},
		{
			name: "budget decrease is floored at the min daily budget",
			campaign: &models.CampaignRecord{
				DailyBudgetCents: 350,
				SpendCents:       5000, RevenueCents: 5000, Impressions: 10000, Clicks: 100, Conversions: 5,
			},
			expectRule:   "roas_budget_decrease",
			expectKind:   DecisionSetBudget,
			expectBudget: 300,
		},
		{
			name: "campaign with no metrics is left alone",
			campaign: &models.CampaignRecord{
				DailyBudgetCents: 1000,
			},
			expectNoAction: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := EvaluateCampaign(tt.campaign, settings)

			if tt.expectNoAction {
				assert.Nil(t, decision)
				return
			}

			require.NotNil(t, decision)
			assert.Equal(t, tt.expectRule, decision.Rule)
			assert.Equal(t, tt.expectKind, decision.Kind)
			if tt.expectKind == DecisionSetBudget {
				assert.Equal(t, tt.expectBudget, decision.NewBudgetCents)
			}
		})
	}
}

func TestEvaluateCampaign_FirstMatchWins(t *testing.T) {
	settings := defaultTestSettings()

	// Matches both the landing page pause and (hypothetically) the ROAS
	// increase rule. Only the pause must fire.
	campaign := &models.CampaignRecord{
		DailyBudgetCents: 1000,
		SpendCents:       6000, RevenueCents: 30000,
		Impressions: 1000, Clicks: 40, Conversions: 0,
	}

	decision := EvaluateCampaign(campaign, settings)
	require.NotNil(t, decision)
	assert.Equal(t, "landing_page_pause", decision.Rule)
	assert.Equal(t, DecisionPause, decision.Kind)
}

func TestEvaluateCampaign_ZeroMinROASDisablesROASRules(t *testing.T) {
	settings := defaultTestSettings()
	settings.MinROASThreshold = 0

	campaign := &models.CampaignRecord{
		DailyBudgetCents: 1000,
		SpendCents:       5000, RevenueCents: 900, Impressions: 10000, Clicks: 100, Conversions: 1,
	}

	assert.Nil(t, EvaluateCampaign(campaign, settings), "ROAS-based rules must be skipped when the threshold is zero")
}

func TestEvaluateCampaign_InclusiveBoundaryMode(t *testing.T) {
	settings := defaultTestSettings()
	settings.CPCBoundaryExclusive = false

	// CPC exactly $0.50; inclusive mode lets the budget cut fire.
	campaign := &models.CampaignRecord{
		DailyBudgetCents: 1000,
		SpendCents:       1500, Impressions: 900, Clicks: 30, Conversions: 0,
	}

	decision := EvaluateCampaign(campaign, settings)
	require.NotNil(t, decision)
	assert.Equal(t, "landing_page_budget_cut", decision.Rule)
}

func TestEvaluateCampaign_BoundaryCPCFallsThroughToUnderperformerPause(t *testing.T) {
	settings := defaultTestSettings()

	// CPC exactly $0.50 in exclusive mode skips both landing page rules,
	// but with enough spend and no revenue the underperformer pause fires.
	campaign := &models.CampaignRecord{
		DailyBudgetCents: 1000,
		SpendCents:       2000, Impressions: 1000, Clicks: 40, Conversions: 0,
	}
	require.Equal(t, int64(50), campaign.CPCCents())

	decision := EvaluateCampaign(campaign, settings)
	require.NotNil(t, decision)
	assert.Equal(t, "underperformer_pause", decision.Rule)
	assert.Equal(t, DecisionPause, decision.Kind)
}

func TestEvaluateCampaign_ZeroCPCWinnerStillScales(t *testing.T) {
	settings := defaultTestSettings()

	// Free clicks (organic spillover, credited spend of zero) satisfy the
	// cheap-clicks condition; a zero CPC is the cheapest click there is.
	campaign := &models.CampaignRecord{
		DailyBudgetCents: 1000,
		SpendCents:       0, Impressions: 1000, Clicks: 50,
	}

	decision := EvaluateCampaign(campaign, settings)
	require.NotNil(t, decision)
	assert.Equal(t, "scale_winner", decision.Rule)
	assert.Equal(t, int64(1200), decision.NewBudgetCents)
}

func TestEvaluateCampaign_ClampedNoOpEndsEvaluation(t *testing.T) {
	settings := defaultTestSettings()

	// Matches the landing page budget cut, but the budget already sits on
	// the floor so the cut clamps to a no-op. The campaign also satisfies
	// the underperformer pause, which must NOT fire: the higher rule
	// matched and evaluation ends there.
	campaign := &models.CampaignRecord{
		DailyBudgetCents: settings.MinDailyBudgetCents,
		SpendCents:       6000, Impressions: 1800, Clicks: 60, Conversions: 0,
	}

	assert.Nil(t, EvaluateCampaign(campaign, settings))
}

func TestEvaluateCampaign_DerivedMetricsZeroDenominator(t *testing.T) {
	c := &models.CampaignRecord{}
	assert.Zero(t, c.CTR())
	assert.Zero(t, c.CPCCents())
	assert.Zero(t, c.ROAS())
	assert.Zero(t, c.ConversionRate())
}

func newOptimizerFixture(settings *SettingsSnapshot, campaigns ...*models.CampaignRecord) (OptimizerFlow, *fakeCampaignRepo, *fakeActivityRepo, *fakeClient) {
	campaignRepo := newFakeCampaignRepo(campaigns...)
	activityRepo := &fakeActivityRepo{}
	client := newFakeClient("meta")
	registry := ClientRegistry{models.PlatformMeta: client}
	executor := NewActionExecutor(registry, campaignRepo, nil)
	flow := NewOptimizerFlow(campaignRepo, activityRepo, &staticSettingsFlow{snapshot: settings}, executor, nil)
	return flow, campaignRepo, activityRepo, client
}

func TestOptimizeAll_SkippedWhenAutomationDisabled(t *testing.T) {
	settings := defaultTestSettings()
	settings.AutomationEnabled = false

	flow, _, activityRepo, client := newOptimizerFixture(settings,
		linkedCampaign(0, models.PlatformMeta, "c1", 1000))

	result, err := flow.OptimizeAll(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Empty(t, client.paused)
	assert.Empty(t, activityRepo.entries)
}

func TestOptimizeAll_ExecutesDecisionsAndLogsFirst(t *testing.T) {
	loser := linkedCampaign(0, models.PlatformMeta, "loser", 1000)
	loser.SpendCents, loser.Impressions, loser.Clicks = 6000, 1000, 40

	healthy := linkedCampaign(0, models.PlatformMeta, "healthy", 1000)
	healthy.SpendCents, healthy.RevenueCents = 1000, 2000
	healthy.Impressions, healthy.Clicks, healthy.Conversions = 10000, 100, 3

	flow, campaignRepo, activityRepo, client := newOptimizerFixture(defaultTestSettings(), loser, healthy)

	result, err := flow.OptimizeAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Evaluated)
	assert.Equal(t, 1, result.ActionsTaken)
	assert.Equal(t, 0, result.ActionsFailed)
	assert.False(t, result.EmergencyPause)

	assert.Equal(t, []string{"loser"}, client.paused)
	record, _ := campaignRepo.ByPlatformCampaignID(context.Background(), models.PlatformMeta, "loser")
	assert.Equal(t, models.CampaignStatusPaused, record.Status)

	// Each executed decision leaves two entries: the rule firing, then the
	// outcome after the platform accepted the action.
	decisions := activityRepo.byAction(models.ActionOptimizeDecision)
	outcomes := activityRepo.byAction(models.ActionOptimizeAction)
	require.Len(t, decisions, 1)
	require.Len(t, outcomes, 1)
	require.Len(t, activityRepo.byAction(models.ActionAutoOptimize), 1)
	assert.Empty(t, activityRepo.byAction(models.ActionOptimizeActionFailed))
}

func TestOptimizeAll_FailedExecutionKeepsAuditTrail(t *testing.T) {
	loser := linkedCampaign(0, models.PlatformMeta, "loser", 1000)
	loser.SpendCents, loser.Impressions, loser.Clicks = 6000, 1000, 40

	flow, campaignRepo, activityRepo, client := newOptimizerFixture(defaultTestSettings(), loser)
	client.pauseErr = platform.NewError("meta", "Pause", platform.ErrorKindRejected, assert.AnError)

	result, err := flow.OptimizeAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.ActionsTaken)
	assert.Equal(t, 1, result.ActionsFailed)

	// The decision was logged before execution was attempted, and no
	// success outcome exists for an action the platform refused.
	require.Len(t, activityRepo.byAction(models.ActionOptimizeDecision), 1)
	require.Len(t, activityRepo.byAction(models.ActionOptimizeActionFailed), 1)
	assert.Empty(t, activityRepo.byAction(models.ActionOptimizeAction))

	record, _ := campaignRepo.ByPlatformCampaignID(context.Background(), models.PlatformMeta, "loser")
	assert.Equal(t, models.CampaignStatusActive, record.Status, "local mirror must not change when the platform refused")
}

func TestOptimizeAll_EmergencyPauseOnNetLoss(t *testing.T) {
	burner := linkedCampaign(0, models.PlatformMeta, "burner", 1000)
	burner.SpendCents, burner.RevenueCents = 100_000, 20_000

	second := linkedCampaign(0, models.PlatformMeta, "second", 1000)
	second.SpendCents = 100

	alreadyPaused := linkedCampaign(0, models.PlatformMeta, "parked", 1000)
	alreadyPaused.Status = models.CampaignStatusPaused

	flow, _, activityRepo, client := newOptimizerFixture(defaultTestSettings(), burner, second, alreadyPaused)

	result, err := flow.OptimizeAll(context.Background())
	require.NoError(t, err)

	assert.True(t, result.EmergencyPause)
	assert.ElementsMatch(t, []string{"burner", "second"}, client.paused, "every active campaign is paused, paused ones are left alone")
	assert.Len(t, activityRepo.byAction(models.ActionEmergencyPause), 2)
	assert.Empty(t, activityRepo.byAction(models.ActionOptimizeDecision), "no per-campaign rules run during an emergency")
}

func TestOptimizeAll_EmergencyPauseOnDailySpendLimit(t *testing.T) {
	spender := linkedCampaign(0, models.PlatformMeta, "spender", 1000)
	spender.SpendCents, spender.RevenueCents = 30_000, 29_000

	flow, _, activityRepo, client := newOptimizerFixture(defaultTestSettings(), spender)

	result, err := flow.OptimizeAll(context.Background())
	require.NoError(t, err)

	assert.True(t, result.EmergencyPause)
	assert.Equal(t, []string{"spender"}, client.paused)
	require.Len(t, activityRepo.byAction(models.ActionEmergencyPause), 1)
	assert.Contains(t, activityRepo.byAction(models.ActionEmergencyPause)[0].Description, "daily spend")
}

func TestOptimizeAll_UnlinkedCampaignsAreInert(t *testing.T) {
	unlinked := &models.CampaignRecord{
		Platform:         models.PlatformMeta,
		Name:             "draft idea",
		Status:           models.CampaignStatusActive,
		DailyBudgetCents: 1000,
		SpendCents:       6000, Impressions: 1000, Clicks: 40,
	}

	flow, _, _, client := newOptimizerFixture(defaultTestSettings(), unlinked)

	result, err := flow.OptimizeAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Evaluated)
	assert.Empty(t, client.paused)
}
