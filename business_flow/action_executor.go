package businessflow

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/platform"
	"github.com/amirphl/AutoSEM/repository"
)

// ActionExecutor applies an optimization decision to the remote platform and
// mirrors the change locally once the platform accepted it.
type ActionExecutor interface {
	Execute(ctx context.Context, campaign *models.CampaignRecord, decision *Decision) error
}

// ActionExecutorImpl implements ActionExecutor.
type ActionExecutorImpl struct {
	clients      ClientRegistry
	campaignRepo repository.CampaignRecordRepository
	retry        platform.RetryPolicy
	logger       *log.Logger
}

// NewActionExecutor creates a new action executor.
func NewActionExecutor(
	clients ClientRegistry,
	campaignRepo repository.CampaignRecordRepository,
	logger *log.Logger,
) ActionExecutor {
	return &ActionExecutorImpl{
		clients:      clients,
		campaignRepo: campaignRepo,
		retry:        platform.DefaultRetryPolicy,
		logger:       logger,
	}
}

// Execute performs the decision remotely first and updates the local mirror
// only after the platform accepted the change. Unlinked campaigns are
// rejected outright.
func (e *ActionExecutorImpl) Execute(ctx context.Context, campaign *models.CampaignRecord, decision *Decision) error {
	if !campaign.Linked() {
		return NewBusinessErrorf("CAMPAIGN_NOT_LINKED", "campaign %d has no platform campaign", ErrCampaignNotLinked, campaign.ID)
	}

	client, err := e.clients.Get(campaign.Platform)
	if err != nil {
		return err
	}

	remoteID := *campaign.PlatformCampaignID

	switch decision.Kind {
	case DecisionPause:
		err = e.retry.Do(ctx, func(ctx context.Context) error {
			return client.Pause(ctx, remoteID)
		})
		if err != nil {
			return fmt.Errorf("failed to pause campaign %s on %s: %w", remoteID, campaign.Platform, err)
		}
		if err := e.campaignRepo.UpdateStatus(ctx, campaign.ID, models.CampaignStatusPaused); err != nil {
			return err
		}
		campaign.Status = models.CampaignStatusPaused
		return nil

	case DecisionSetBudget:
		err = e.retry.Do(ctx, func(ctx context.Context) error {
			return client.SetBudget(ctx, remoteID, decision.NewBudgetCents)
		})
		if err != nil {
			if errors.Is(err, platform.ErrAdSetBudget) {
				if fbErr := e.setBudgetViaAdSets(ctx, client, remoteID, decision.NewBudgetCents); fbErr != nil {
					return fbErr
				}
			} else {
				return fmt.Errorf("failed to set budget for campaign %s on %s: %w", remoteID, campaign.Platform, err)
			}
		}
		if err := e.campaignRepo.UpdateBudget(ctx, campaign.ID, decision.NewBudgetCents); err != nil {
			return err
		}
		campaign.DailyBudgetCents = decision.NewBudgetCents
		return nil

	default:
		return NewBusinessErrorf("UNKNOWN_DECISION", "unknown decision kind %q", nil, decision.Kind)
	}
}

// setBudgetViaAdSets splits the campaign daily budget evenly across its ad
// sets when the platform refuses campaign-level budgets. The remainder lands
// on the first ad set so the total is preserved.
func (e *ActionExecutorImpl) setBudgetViaAdSets(ctx context.Context, client platform.Client, remoteID string, budgetCents int64) error {
	fallback, ok := client.(platform.BudgetFallback)
	if !ok {
		return fmt.Errorf("platform %s manages budgets on ad sets but offers no ad set access", client.Name())
	}

	var adSets []platform.AdSet
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		var listErr error
		adSets, listErr = fallback.ListAdSets(ctx, remoteID)
		return listErr
	})
	if err != nil {
		return fmt.Errorf("failed to list ad sets for campaign %s: %w", remoteID, err)
	}
	if len(adSets) == 0 {
		return fmt.Errorf("campaign %s has no ad sets to carry the budget", remoteID)
	}

	share := budgetCents / int64(len(adSets))
	remainder := budgetCents % int64(len(adSets))

	for i, adSet := range adSets {
		amount := share
		if i == 0 {
			amount += remainder
		}
		adSetID := adSet.ID
		err := e.retry.Do(ctx, func(ctx context.Context) error {
			return fallback.SetAdSetBudget(ctx, adSetID, amount)
		})
		if err != nil {
			return fmt.Errorf("failed to set ad set %s budget: %w", adSetID, err)
		}
	}

	if e.logger != nil {
		e.logger.Printf("campaign %s budget %d split across %d ad sets", remoteID, budgetCents, len(adSets))
	}
	return nil
}
