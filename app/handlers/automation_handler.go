package handlers

import (
	"context"
	"time"

	"github.com/amirphl/AutoSEM/app/scheduler"
	businessflow "github.com/amirphl/AutoSEM/business_flow"
	"github.com/gofiber/fiber/v3"
)

// Sync and optimize cycles talk to every ad platform, so they get a much
// longer budget than regular API requests.
const cycleTimeout = 5 * time.Minute

// AutomationHandlerInterface defines the contract for automation handlers.
type AutomationHandlerInterface interface {
	RunOptimize(c fiber.Ctx) error
	RunSync(c fiber.Ctx) error
	PurgePhantoms(c fiber.Ctx) error
	Status(c fiber.Ctx) error
	Start(c fiber.Ctx) error
	Stop(c fiber.Ctx) error
}

// AutomationHandler exposes manual triggers and scheduler control.
type AutomationHandler struct {
	optimizerFlow businessflow.OptimizerFlow
	syncFlow      businessflow.PerformanceSyncFlow
	sched         *scheduler.AutomationScheduler
}

// NewAutomationHandler creates a new automation handler.
func NewAutomationHandler(
	optimizerFlow businessflow.OptimizerFlow,
	syncFlow businessflow.PerformanceSyncFlow,
	sched *scheduler.AutomationScheduler,
) *AutomationHandler {
	return &AutomationHandler{
		optimizerFlow: optimizerFlow,
		syncFlow:      syncFlow,
		sched:         sched,
	}
}

// RunOptimize runs one optimization cycle immediately.
// @Summary Run optimization cycle
// @Description Evaluate every active campaign against the rule set and execute the resulting actions
// @Tags Automation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Cycle completed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /automation/run-cycle [post]
func (h *AutomationHandler) RunOptimize(c fiber.Ctx) error {
	ctx := createRequestContextWithTimeout(c, "/api/v1/automation/run-cycle", cycleTimeout)
	res, err := h.optimizerFlow.OptimizeAll(ctx)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Optimization cycle failed", "OPTIMIZE_FAILED", err.Error())
	}
	return successResponse(c, fiber.StatusOK, "Optimization cycle completed", res)
}

// RunSync runs one performance sync immediately.
// @Summary Run performance sync
// @Description Refresh every campaign mirror from its ad platform
// @Tags Automation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Sync completed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 502 {object} dto.APIResponse "All platforms failed"
// @Router /automation/sync-performance [post]
func (h *AutomationHandler) RunSync(c fiber.Ctx) error {
	ctx := createRequestContextWithTimeout(c, "/api/v1/automation/sync-performance", cycleTimeout)
	res, err := h.syncFlow.SyncAll(ctx)
	if err != nil {
		if be, ok := err.(*businessflow.BusinessError); ok && be.Code == "ALL_PLATFORMS_FAILED" {
			return errorResponse(c, fiber.StatusBadGateway, "Every platform sync failed", be.Code, res)
		}
		return errorResponse(c, fiber.StatusInternalServerError, "Performance sync failed", "SYNC_FAILED", err.Error())
	}
	return successResponse(c, fiber.StatusOK, "Performance sync completed", res)
}

// PurgePhantoms deletes records that were never linked to a platform campaign.
// @Summary Purge phantom campaigns
// @Description Delete local records that were never linked to a real platform campaign
// @Tags Automation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Purge completed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /campaigns/purge-phantoms [post]
func (h *AutomationHandler) PurgePhantoms(c fiber.Ctx) error {
	ctx := createRequestContextWithTimeout(c, "/api/v1/campaigns/purge-phantoms", cycleTimeout)
	res, err := h.syncFlow.PurgePhantoms(ctx)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Phantom purge failed", "PURGE_FAILED", err.Error())
	}
	return successResponse(c, fiber.StatusOK, "Phantom purge completed", res)
}

// Status reports scheduler state and per-job health.
// @Summary Scheduler status
// @Description Report whether the scheduler is running and the health of each job
// @Tags Automation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Status retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /automation/status [get]
func (h *AutomationHandler) Status(c fiber.Ctx) error {
	return successResponse(c, fiber.StatusOK, "Scheduler status retrieved", fiber.Map{
		"running": h.sched.IsRunning(),
		"jobs":    h.sched.Status(),
	})
}

// Start starts the background scheduler.
// @Summary Start scheduler
// @Description Start the background job scheduler
// @Tags Automation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Scheduler started"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /automation/start [post]
func (h *AutomationHandler) Start(c fiber.Ctx) error {
	h.sched.Start(context.Background())
	return successResponse(c, fiber.StatusOK, "Scheduler started", fiber.Map{"running": h.sched.IsRunning()})
}

// Stop stops the background scheduler, waiting for in-flight jobs.
// @Summary Stop scheduler
// @Description Stop the background job scheduler
// @Tags Automation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Scheduler stopped"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /automation/stop [post]
func (h *AutomationHandler) Stop(c fiber.Ctx) error {
	h.sched.Stop()
	return successResponse(c, fiber.StatusOK, "Scheduler stopped", fiber.Map{"running": h.sched.IsRunning()})
}
