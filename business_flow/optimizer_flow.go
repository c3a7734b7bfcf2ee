package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/repository"
	"github.com/amirphl/AutoSEM/utils"
)

// Performance thresholds used by the rules. Money values are cents.
const (
	highCTRThreshold  = 0.03
	lowConversionRate = 0.01

	landingPagePauseCPCCents = 100
	landingPageCutCPCCents   = 50

	underperformerMinSpendCents = 2_000
	roasDecreaseMinSpendCents   = 5_000

	scaleWinnerCPCCents  = 20
	scaleWinnerMinClicks = 10
	scaleWinnerFactor    = 1.20
)

// DecisionKind identifies what an optimization rule wants done.
type DecisionKind string

const (
	DecisionPause     DecisionKind = "pause"
	DecisionSetBudget DecisionKind = "set_budget"
)

// Decision is the outcome of one rule for one campaign.
type Decision struct {
	Kind           DecisionKind `json:"kind"`
	Rule           string       `json:"rule"`
	Reason         string       `json:"reason"`
	NewBudgetCents int64        `json:"new_budget_cents,omitempty"`
}

// Rule evaluates one campaign against the settings snapshot and returns a
// decision, or nil when the rule does not apply.
type Rule struct {
	Name     string
	Evaluate func(c *models.CampaignRecord, s *SettingsSnapshot) *Decision
}

// exceeds compares a CPC against a threshold honoring the configured
// boundary mode. Exclusive mode means a CPC exactly on the threshold does
// not trigger.
func exceeds(cpcCents, thresholdCents int64, exclusive bool) bool {
	if exclusive {
		return cpcCents > thresholdCents
	}
	return cpcCents >= thresholdCents
}

// clampBudget keeps a proposed budget inside the configured floor and cap.
func clampBudget(cents int64, s *SettingsSnapshot) int64 {
	if cents > s.MaxDailyBudgetCents {
		cents = s.MaxDailyBudgetCents
	}
	if cents < s.MinDailyBudgetCents {
		cents = s.MinDailyBudgetCents
	}
	return cents
}

// OptimizationRules is the ordered rule set. For each campaign the first
// matching rule wins and the rest are never evaluated. The global emergency
// checks run before any of these.
var OptimizationRules = []Rule{
	{
		Name: "landing_page_pause",
		Evaluate: func(c *models.CampaignRecord, s *SettingsSnapshot) *Decision {
			if c.CTR() > highCTRThreshold &&
				c.ConversionRate() < lowConversionRate &&
				exceeds(c.CPCCents(), landingPagePauseCPCCents, s.CPCBoundaryExclusive) {
				return &Decision{
					Kind: DecisionPause,
					Rule: "landing_page_pause",
					Reason: fmt.Sprintf("high CTR %.2f%% with conversion rate %.2f%% and CPC %s suggests a broken landing page",
						c.CTR()*100, c.ConversionRate()*100, utils.DollarStringFromCents(c.CPCCents())),
				}
			}
			return nil
		},
	},
	{
		Name: "landing_page_budget_cut",
		Evaluate: func(c *models.CampaignRecord, s *SettingsSnapshot) *Decision {
			if c.CTR() > highCTRThreshold &&
				c.ConversionRate() < lowConversionRate &&
				exceeds(c.CPCCents(), landingPageCutCPCCents, s.CPCBoundaryExclusive) {
				newBudget := clampBudget(utils.ScaleCents(c.DailyBudgetCents, s.BudgetDecreaseFactor), s)
				return &Decision{
					Kind:           DecisionSetBudget,
					Rule:           "landing_page_budget_cut",
					NewBudgetCents: newBudget,
					Reason: fmt.Sprintf("high CTR %.2f%% with conversion rate %.2f%% and elevated CPC %s, cutting budget to %s",
						c.CTR()*100, c.ConversionRate()*100, utils.DollarStringFromCents(c.CPCCents()), utils.DollarStringFromCents(newBudget)),
				}
			}
			return nil
		},
	},
	{
		Name: "underperformer_pause",
		Evaluate: func(c *models.CampaignRecord, s *SettingsSnapshot) *Decision {
			if s.MinROASThreshold == 0 {
				return nil
			}
			if c.SpendCents >= underperformerMinSpendCents && c.ROAS() < s.MinROASThreshold/3 {
				return &Decision{
					Kind: DecisionPause,
					Rule: "underperformer_pause",
					Reason: fmt.Sprintf("ROAS %.2f is far below the %.2f threshold after spending %s",
						c.ROAS(), s.MinROASThreshold, utils.DollarStringFromCents(c.SpendCents)),
				}
			}
			return nil
		},
	},
	{
		Name: "scale_winner",
		Evaluate: func(c *models.CampaignRecord, s *SettingsSnapshot) *Decision {
			if c.CTR() > highCTRThreshold &&
				c.Clicks >= scaleWinnerMinClicks &&
				c.CPCCents() < scaleWinnerCPCCents {
				newBudget := clampBudget(utils.ScaleCents(c.DailyBudgetCents, scaleWinnerFactor), s)
				return &Decision{
					Kind:           DecisionSetBudget,
					Rule:           "scale_winner",
					NewBudgetCents: newBudget,
					Reason: fmt.Sprintf("strong CTR %.2f%% at CPC %s over %d clicks, scaling budget to %s",
						c.CTR()*100, utils.DollarStringFromCents(c.CPCCents()), c.Clicks, utils.DollarStringFromCents(newBudget)),
				}
			}
			return nil
		},
	},
	{
		Name: "roas_budget_increase",
		Evaluate: func(c *models.CampaignRecord, s *SettingsSnapshot) *Decision {
			if s.MinROASThreshold == 0 {
				return nil
			}
			if c.ROAS() > 1.5*s.MinROASThreshold {
				newBudget := clampBudget(utils.ScaleCents(c.DailyBudgetCents, s.BudgetIncreaseFactor), s)
				return &Decision{
					Kind:           DecisionSetBudget,
					Rule:           "roas_budget_increase",
					NewBudgetCents: newBudget,
					Reason: fmt.Sprintf("ROAS %.2f is well above the %.2f threshold, raising budget to %s",
						c.ROAS(), s.MinROASThreshold, utils.DollarStringFromCents(newBudget)),
				}
			}
			return nil
		},
	},
	{
		Name: "roas_budget_decrease",
		Evaluate: func(c *models.CampaignRecord, s *SettingsSnapshot) *Decision {
			if s.MinROASThreshold == 0 {
				return nil
			}
			if c.SpendCents >= roasDecreaseMinSpendCents && c.ROAS() < s.MinROASThreshold {
				newBudget := clampBudget(utils.ScaleCents(c.DailyBudgetCents, s.BudgetDecreaseFactor), s)
				return &Decision{
					Kind:           DecisionSetBudget,
					Rule:           "roas_budget_decrease",
					NewBudgetCents: newBudget,
					Reason: fmt.Sprintf("ROAS %.2f is below the %.2f threshold after spending %s, cutting budget to %s",
						c.ROAS(), s.MinROASThreshold, utils.DollarStringFromCents(c.SpendCents), utils.DollarStringFromCents(newBudget)),
				}
			}
			return nil
		},
	},
}

// EvaluateCampaign runs the ordered rule set over one campaign. The first
// match wins and ends evaluation even when clamping reduced its budget
// change to a no-op; suppressed no-ops never fall through to a lower rule.
func EvaluateCampaign(c *models.CampaignRecord, s *SettingsSnapshot) *Decision {
	for _, rule := range OptimizationRules {
		decision := rule.Evaluate(c, s)
		if decision == nil {
			continue
		}
		if decision.Kind == DecisionSetBudget && decision.NewBudgetCents == c.DailyBudgetCents {
			return nil
		}
		return decision
	}
	return nil
}

// OptimizeResult summarizes one optimization cycle.
type OptimizeResult struct {
	Evaluated      int        `json:"evaluated"`
	ActionsTaken   int        `json:"actions_taken"`
	ActionsFailed  int        `json:"actions_failed"`
	EmergencyPause bool       `json:"emergency_pause"`
	Skipped        bool       `json:"skipped"`
	SkipReason     string     `json:"skip_reason,omitempty"`
	Decisions      []Decision `json:"decisions,omitempty"`
}

// OptimizerFlow defines the optimization cycle entry point.
type OptimizerFlow interface {
	OptimizeAll(ctx context.Context) (*OptimizeResult, error)
}

// OptimizerFlowImpl implements OptimizerFlow.
type OptimizerFlowImpl struct {
	campaignRepo repository.CampaignRecordRepository
	activityRepo repository.ActivityLogRepository
	settingsFlow SettingsFlow
	executor     ActionExecutor
	logger       *log.Logger
}

// NewOptimizerFlow creates a new optimizer flow.
func NewOptimizerFlow(
	campaignRepo repository.CampaignRecordRepository,
	activityRepo repository.ActivityLogRepository,
	settingsFlow SettingsFlow,
	executor ActionExecutor,
	logger *log.Logger,
) OptimizerFlow {
	return &OptimizerFlowImpl{
		campaignRepo: campaignRepo,
		activityRepo: activityRepo,
		settingsFlow: settingsFlow,
		executor:     executor,
		logger:       logger,
	}
}

// OptimizeAll runs one full optimization cycle: global emergency checks
// first, then the ordered rule set per active linked campaign. Every decision
// is logged before it is executed so the audit trail survives execution
// failures.
func (f *OptimizerFlowImpl) OptimizeAll(ctx context.Context) (*OptimizeResult, error) {
	settings, err := f.settingsFlow.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if !settings.AutomationEnabled {
		return &OptimizeResult{Skipped: true, SkipReason: "automation disabled"}, nil
	}

	campaigns, err := f.campaignRepo.ListLinked(ctx, nil)
	if err != nil {
		return nil, err
	}

	result := &OptimizeResult{}

	if reason := f.emergencyReason(ctx, campaigns, settings); reason != "" {
		if err := f.pauseEverything(ctx, campaigns, reason); err != nil {
			return nil, err
		}
		result.EmergencyPause = true
		recordActivity(ctx, f.activityRepo, f.logger,
			models.NewActivity(models.ActionAutoOptimize, "optimization cycle ended in emergency pause", result))
		return result, nil
	}

	for _, campaign := range campaigns {
		if campaign.Status != models.CampaignStatusActive {
			continue
		}
		result.Evaluated++

		decision := EvaluateCampaign(campaign, settings)
		if decision == nil {
			continue
		}
		result.Decisions = append(result.Decisions, *decision)

		// The decision is logged before execution so the audit trail
		// survives a crash mid-action; the outcome entry below says
		// whether the action actually landed.
		recordActivity(ctx, f.activityRepo, f.logger,
			models.NewActivity(models.ActionOptimizeDecision,
				fmt.Sprintf("%s: %s", decision.Rule, decision.Reason), decision).ForCampaign(campaign))

		if err := f.executor.Execute(ctx, campaign, decision); err != nil {
			result.ActionsFailed++
			if f.logger != nil {
				f.logger.Printf("failed to execute %s on campaign %d: %v", decision.Kind, campaign.ID, err)
			}
			recordActivity(ctx, f.activityRepo, f.logger,
				models.NewActivity(models.ActionOptimizeActionFailed,
					fmt.Sprintf("%s failed: %v", decision.Rule, err), decision).ForCampaign(campaign))
			continue
		}
		result.ActionsTaken++
		recordActivity(ctx, f.activityRepo, f.logger,
			models.NewActivity(models.ActionOptimizeAction,
				fmt.Sprintf("%s executed: %s", decision.Rule, decision.Reason), decision).ForCampaign(campaign))
	}

	recordActivity(ctx, f.activityRepo, f.logger,
		models.NewActivity(models.ActionAutoOptimize,
			fmt.Sprintf("optimization cycle evaluated %d campaigns, %d actions taken, %d failed",
				result.Evaluated, result.ActionsTaken, result.ActionsFailed), result))

	return result, nil
}

// emergencyReason returns a non-empty reason when the account as a whole
// must be stopped: net loss over the emergency threshold, or a spend limit
// breached.
func (f *OptimizerFlowImpl) emergencyReason(ctx context.Context, campaigns []*models.CampaignRecord, s *SettingsSnapshot) string {
	var totalSpend, totalRevenue int64
	for _, c := range campaigns {
		totalSpend += c.SpendCents
		totalRevenue += c.RevenueCents
	}

	if s.EmergencyPauseLossCents > 0 && totalSpend-totalRevenue > s.EmergencyPauseLossCents {
		return fmt.Sprintf("net loss %s exceeds emergency threshold %s",
			utils.DollarStringFromCents(totalSpend-totalRevenue),
			utils.DollarStringFromCents(s.EmergencyPauseLossCents))
	}

	if s.DailySpendLimitCents > 0 {
		daily, err := f.campaignRepo.TotalSpendSince(ctx, utils.BeginningOfDay(utils.UTCNow()))
		if err == nil && daily > s.DailySpendLimitCents {
			return fmt.Sprintf("daily spend %s exceeds limit %s",
				utils.DollarStringFromCents(daily), utils.DollarStringFromCents(s.DailySpendLimitCents))
		}
	}

	if s.MonthlySpendLimitCents > 0 {
		monthly, err := f.campaignRepo.TotalSpendSince(ctx, utils.BeginningOfMonth(utils.UTCNow()))
		if err == nil && monthly > s.MonthlySpendLimitCents {
			return fmt.Sprintf("monthly spend %s exceeds limit %s",
				utils.DollarStringFromCents(monthly), utils.DollarStringFromCents(s.MonthlySpendLimitCents))
		}
	}

	return ""
}

// pauseEverything pauses every active linked campaign and records one
// EMERGENCY_PAUSE entry per campaign. Individual pause failures do not stop
// the sweep.
func (f *OptimizerFlowImpl) pauseEverything(ctx context.Context, campaigns []*models.CampaignRecord, reason string) error {
	decision := &Decision{Kind: DecisionPause, Rule: "emergency_pause", Reason: reason}

	for _, campaign := range campaigns {
		if campaign.Status != models.CampaignStatusActive {
			continue
		}

		recordActivity(ctx, f.activityRepo, f.logger,
			models.NewActivity(models.ActionEmergencyPause, reason, decision).ForCampaign(campaign))

		if err := f.executor.Execute(ctx, campaign, decision); err != nil {
			if f.logger != nil {
				f.logger.Printf("emergency pause failed for campaign %d: %v", campaign.ID, err)
			}
			recordActivity(ctx, f.activityRepo, f.logger,
				models.NewActivity(models.ActionOptimizeActionFailed,
					fmt.Sprintf("emergency pause failed: %v", err), decision).ForCampaign(campaign))
		}
	}

	return nil
}
