package handlers

import (
	"fmt"
	"time"

	businessflow "github.com/amirphl/AutoSEM/business_flow"
	"github.com/amirphl/AutoSEM/utils"
	"github.com/gofiber/fiber/v3"
)

// ReportHandlerInterface defines the contract for reporting handlers.
type ReportHandlerInterface interface {
	Dashboard(c fiber.Ctx) error
	ExportActivity(c fiber.Ctx) error
}

// ReportHandler serves the dashboard summary and the activity export.
type ReportHandler struct {
	flow businessflow.ReportFlow
}

// NewReportHandler creates a new report handler.
func NewReportHandler(flow businessflow.ReportFlow) *ReportHandler {
	return &ReportHandler{flow: flow}
}

// Dashboard returns aggregate campaign and automation health numbers.
// @Summary Dashboard summary
// @Description Aggregate spend, revenue, ROAS, and recent automation activity
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /dashboard/summary [get]
func (h *ReportHandler) Dashboard(c fiber.Ctx) error {
	summary, err := h.flow.Dashboard(createRequestContext(c, "/api/v1/dashboard/summary"))
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to build dashboard", "DASHBOARD_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Dashboard retrieved", summary)
}

// ExportActivity streams the activity log as an Excel workbook.
// @Summary Export activity
// @Description Download the activity log since a given date as an xlsx file
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param since query string false "RFC 3339 start date (default 30 days ago)"
// @Success 200 {file} file "Workbook"
// @Failure 400 {object} dto.APIResponse "Invalid date"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /activity/export [get]
func (h *ReportHandler) ExportActivity(c fiber.Ctx) error {
	since := utils.UTCNow().AddDate(0, 0, -30)
	if v := c.Query("since"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "since must be RFC 3339", "INVALID_DATE", v)
		}
		since = parsed.UTC()
	}

	data, err := h.flow.ExportActivity(createRequestContextWithTimeout(c, "/api/v1/activity/export", 2*time.Minute), since)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to export activity", "EXPORT_FAILED", nil)
	}

	filename := fmt.Sprintf("activity-%s.xlsx", utils.UTCNow().Format("2006-01-02"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Send(data)
}
