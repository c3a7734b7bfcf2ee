package handlers

import (
	"github.com/amirphl/AutoSEM/app/dto"
	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/repository"
	"github.com/gofiber/fiber/v3"
)

// ProductHandlerInterface defines the contract for product mirror handlers.
type ProductHandlerInterface interface {
	List(c fiber.Ctx) error
}

// ProductHandler serves read access to the Shopify product mirrors.
type ProductHandler struct {
	productRepo repository.ProductRepository
}

// NewProductHandler creates a new product handler.
func NewProductHandler(productRepo repository.ProductRepository) *ProductHandler {
	return &ProductHandler{productRepo: productRepo}
}

// List lists product mirrors with optional filters.
// @Summary List products
// @Description List local Shopify product mirrors, optionally filtered by status and vendor
// @Tags Products
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter (active, draft, archived)"
// @Param vendor query string false "Vendor filter"
// @Param limit query int false "Page size (default 50)"
// @Param offset query int false "Page offset"
// @Success 200 {object} dto.APIResponse{data=dto.ListProductsResponse} "Retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /products [get]
func (h *ProductHandler) List(c fiber.Ctx) error {
	var filter models.ProductFilter

	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := c.Query("vendor"); v != "" {
		filter.Vendor = &v
	}
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	ctx := createRequestContext(c, "/api/v1/products")

	products, err := h.productRepo.ByFilter(ctx, filter, "title ASC", limit, offset)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list products", "LIST_FAILED", nil)
	}
	total, err := h.productRepo.Count(ctx, filter)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to count products", "LIST_FAILED", nil)
	}

	resp := dto.ListProductsResponse{
		Products: make([]dto.ProductResponse, 0, len(products)),
		Total:    total,
	}
	for _, p := range products {
		resp.Products = append(resp.Products, dto.NewProductResponse(p))
	}
	return successResponse(c, fiber.StatusOK, "Products retrieved", resp)
}
