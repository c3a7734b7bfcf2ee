package handlers

import (
	"github.com/amirphl/AutoSEM/app/dto"
	businessflow "github.com/amirphl/AutoSEM/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// SettingsHandlerInterface defines the contract for settings handlers.
type SettingsHandlerInterface interface {
	Get(c fiber.Ctx) error
	Update(c fiber.Ctx) error
}

// SettingsHandler handles automation settings requests.
type SettingsHandler struct {
	flow      businessflow.SettingsFlow
	validator *validator.Validate
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(flow businessflow.SettingsFlow) *SettingsHandler {
	return &SettingsHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// Get returns every setting resolved against defaults.
// @Summary Get settings
// @Description Get all automation settings with defaults applied
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SettingsResponse} "Retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /settings [get]
func (h *SettingsHandler) Get(c fiber.Ctx) error {
	settings, err := h.flow.All(createRequestContext(c, "/api/v1/settings"))
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load settings", "SETTINGS_LOAD_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Settings retrieved", dto.SettingsResponse{Settings: settings})
}

// Update applies a batch of setting changes atomically.
// @Summary Update settings
// @Description Update automation settings. One invalid entry rejects the whole batch.
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateSettingsRequest true "Settings to change"
// @Success 200 {object} dto.APIResponse{data=dto.SettingsResponse} "Updated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /settings [put]
func (h *SettingsHandler) Update(c fiber.Ctx) error {
	var req dto.UpdateSettingsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request format", "INVALID_REQUEST_FORMAT", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "At least one setting is required", "VALIDATION_ERROR", nil)
	}

	ctx := createRequestContext(c, "/api/v1/settings")
	if err := h.flow.Update(ctx, req.Settings); err != nil {
		if be, ok := err.(*businessflow.BusinessError); ok {
			switch be.Code {
			case "EMPTY_UPDATE", "UNKNOWN_SETTING", "INVALID_SETTING":
				return errorResponse(c, fiber.StatusBadRequest, "Invalid settings", be.Code, be.Error())
			}
		}
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to update settings", "SETTINGS_UPDATE_FAILED", nil)
	}

	settings, err := h.flow.All(ctx)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load settings", "SETTINGS_LOAD_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Settings updated", dto.SettingsResponse{Settings: settings})
}
