package handlers

import (
	"strconv"

	"github.com/amirphl/AutoSEM/app/dto"
	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// CampaignHandlerInterface defines the contract for campaign mirror handlers.
type CampaignHandlerInterface interface {
	List(c fiber.Ctx) error
	Get(c fiber.Ctx) error
}

// CampaignHandler serves read access to the local campaign mirrors.
type CampaignHandler struct {
	campaignRepo repository.CampaignRecordRepository
}

// NewCampaignHandler creates a new campaign handler.
func NewCampaignHandler(campaignRepo repository.CampaignRecordRepository) *CampaignHandler {
	return &CampaignHandler{campaignRepo: campaignRepo}
}

// List lists campaign mirrors with optional filters.
// @Summary List campaigns
// @Description List local campaign mirrors, optionally filtered by platform, status, and link state
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param platform query string false "Platform filter (meta, tiktok, google)"
// @Param status query string false "Status filter (draft, active, paused)"
// @Param linked query bool false "Link state filter"
// @Param limit query int false "Page size (default 50)"
// @Param offset query int false "Page offset"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResponse} "Retrieved"
// @Failure 400 {object} dto.APIResponse "Invalid filter"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /campaigns [get]
func (h *CampaignHandler) List(c fiber.Ctx) error {
	var filter models.CampaignRecordFilter

	if v := c.Query("platform"); v != "" {
		p := models.Platform(v)
		if !p.Valid() {
			return errorResponse(c, fiber.StatusBadRequest, "Unknown platform", "INVALID_PLATFORM", v)
		}
		filter.Platform = &p
	}
	if v := c.Query("status"); v != "" {
		s := models.CampaignStatus(v)
		if !s.Valid() {
			return errorResponse(c, fiber.StatusBadRequest, "Unknown status", "INVALID_STATUS", v)
		}
		filter.Status = &s
	}
	if v := c.Query("linked"); v != "" {
		linked, err := strconv.ParseBool(v)
		if err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "linked must be a boolean", "INVALID_FILTER", v)
		}
		filter.Linked = &linked
	}

	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	ctx := createRequestContext(c, "/api/v1/campaigns")
	records, err := h.campaignRepo.ByFilter(ctx, filter, "id ASC", limit, offset)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list campaigns", "CAMPAIGN_LIST_FAILED", nil)
	}
	total, err := h.campaignRepo.Count(ctx, filter)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to count campaigns", "CAMPAIGN_LIST_FAILED", nil)
	}

	resp := dto.ListCampaignsResponse{
		Campaigns: make([]dto.CampaignResponse, 0, len(records)),
		Total:     total,
	}
	for _, record := range records {
		resp.Campaigns = append(resp.Campaigns, dto.NewCampaignResponse(record))
	}
	return successResponse(c, fiber.StatusOK, "Campaigns retrieved", resp)
}

// Get returns one campaign mirror by UUID.
// @Summary Get campaign
// @Description Get a single campaign mirror by UUID
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignResponse} "Retrieved"
// @Failure 400 {object} dto.APIResponse "Invalid UUID"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Not found"
// @Router /campaigns/{uuid} [get]
func (h *CampaignHandler) Get(c fiber.Ctx) error {
	parsed, err := uuid.Parse(c.Params("uuid"))
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid campaign UUID", "INVALID_UUID", nil)
	}

	record, err := h.campaignRepo.ByUUID(createRequestContext(c, "/api/v1/campaigns/:uuid"), parsed)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load campaign", "CAMPAIGN_GET_FAILED", nil)
	}
	if record == nil {
		return errorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
	}
	return successResponse(c, fiber.StatusOK, "Campaign retrieved", dto.NewCampaignResponse(record))
}

func queryInt(c fiber.Ctx, key string, defaultValue int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}
