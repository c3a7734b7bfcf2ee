package handlers

import (
	"github.com/amirphl/AutoSEM/app/dto"
	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/repository"
	"github.com/gofiber/fiber/v3"
)

// ActivityHandlerInterface defines the contract for activity log handlers.
type ActivityHandlerInterface interface {
	List(c fiber.Ctx) error
}

// ActivityHandler serves the append-only activity log.
type ActivityHandler struct {
	activityRepo repository.ActivityLogRepository
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(activityRepo repository.ActivityLogRepository) *ActivityHandler {
	return &ActivityHandler{activityRepo: activityRepo}
}

// List returns recent activity, newest first.
// @Summary List activity
// @Description List activity log entries, optionally filtered by action
// @Tags Activity
// @Produce json
// @Security BearerAuth
// @Param action query string false "Action filter (e.g. AUTO_OPTIMIZE)"
// @Param limit query int false "Page size (default 50)"
// @Param offset query int false "Page offset"
// @Success 200 {object} dto.APIResponse{data=dto.ListActivityResponse} "Retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /activity [get]
func (h *ActivityHandler) List(c fiber.Ctx) error {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	ctx := createRequestContext(c, "/api/v1/activity")

	var logs []*models.ActivityLog
	var err error
	if action := c.Query("action"); action != "" {
		logs, err = h.activityRepo.ListByAction(ctx, action, limit, offset)
	} else {
		logs, err = h.activityRepo.ListRecent(ctx, limit, offset)
	}
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list activity", "ACTIVITY_LIST_FAILED", nil)
	}

	resp := dto.ListActivityResponse{Entries: make([]dto.ActivityEntryResponse, 0, len(logs))}
	for _, entry := range logs {
		resp.Entries = append(resp.Entries, dto.NewActivityEntryResponse(entry))
	}
	return successResponse(c, fiber.StatusOK, "Activity retrieved", resp)
}
