package handlers

import (
	businessflow "github.com/amirphl/AutoSEM/business_flow"
	"github.com/amirphl/AutoSEM/utils"
	"github.com/gofiber/fiber/v3"
)

// HealthHandlerInterface defines the contract for health handlers.
type HealthHandlerInterface interface {
	Live(c fiber.Ctx) error
	Deep(c fiber.Ctx) error
}

// HealthHandler serves liveness and dependency health checks.
type HealthHandler struct {
	flow    businessflow.HealthFlow
	version string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(flow businessflow.HealthFlow, version string) *HealthHandler {
	return &HealthHandler{flow: flow, version: version}
}

// Live is a cheap liveness probe that touches no dependencies.
// @Summary Liveness check
// @Description Report that the process is up
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse "Healthy"
// @Router /health [get]
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return successResponse(c, fiber.StatusOK, "Service is healthy", fiber.Map{
		"status":    "ok",
		"timestamp": utils.UTCNow().Unix(),
		"version":   h.version,
		"service":   "autosem-api",
	})
}

// Deep checks the database, cache, and platform configuration.
// @Summary Deep health check
// @Description Check database and cache connectivity plus platform configuration
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse "Healthy"
// @Failure 503 {object} dto.APIResponse "Degraded"
// @Router /health/deep [get]
func (h *HealthHandler) Deep(c fiber.Ctx) error {
	status := h.flow.Check(createRequestContext(c, "/api/v1/health/deep"))
	if !status.Healthy {
		return errorResponse(c, fiber.StatusServiceUnavailable, "Service degraded", "SERVICE_DEGRADED", status)
	}
	return successResponse(c, fiber.StatusOK, "Service is healthy", status)
}
