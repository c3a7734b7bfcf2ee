package handlers

import (
	"crypto/subtle"

	"github.com/amirphl/AutoSEM/app/dto"
	"github.com/amirphl/AutoSEM/app/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"golang.org/x/crypto/bcrypt"
)

// AuthAdminHandlerInterface defines the contract for admin auth handlers.
type AuthAdminHandlerInterface interface {
	Login(c fiber.Ctx) error
	Refresh(c fiber.Ctx) error
}

// AuthAdminHandler authenticates the single configured operator account.
type AuthAdminHandler struct {
	tokenService services.TokenService
	username     string
	passwordHash string
	validator    *validator.Validate
}

// NewAuthAdminHandler creates a new admin auth handler. passwordHash is a
// bcrypt hash of the operator password.
func NewAuthAdminHandler(tokenService services.TokenService, username, passwordHash string) *AuthAdminHandler {
	return &AuthAdminHandler{
		tokenService: tokenService,
		username:     username,
		passwordHash: passwordHash,
		validator:    validator.New(),
	}
}

// Login authenticates the operator and issues a token pair.
// @Summary Admin login
// @Description Authenticate the operator account and receive a JWT pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.AdminLoginRequest true "Credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AdminLoginResponse} "Authenticated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Router /auth/admin/login [post]
func (h *AuthAdminHandler) Login(c fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request format", "INVALID_REQUEST_FORMAT", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		var details []map[string]string
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				details = append(details, map[string]string{
					"field": fieldError.Field(),
					"tag":   fieldError.Tag(),
				})
			}
		}
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", details)
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.username)) == 1
	passwordErr := bcrypt.CompareHashAndPassword([]byte(h.passwordHash), []byte(req.Password))
	if !usernameOK || passwordErr != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid username or password", "INVALID_CREDENTIALS", nil)
	}

	accessToken, refreshToken, err := h.tokenService.GenerateAdminTokens(1)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to issue tokens", "TOKEN_ISSUE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Login successful", dto.AdminLoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.tokenService.AccessTokenTTL().Seconds()),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh exchanges a refresh token for a new token pair.
// @Summary Refresh admin tokens
// @Description Exchange a refresh token for a new JWT pair
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.AdminLoginResponse} "Refreshed"
// @Failure 401 {object} dto.APIResponse "Invalid refresh token"
// @Router /auth/admin/refresh [post]
func (h *AuthAdminHandler) Refresh(c fiber.Ctx) error {
	var req refreshRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request format", "INVALID_REQUEST_FORMAT", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Refresh token is required", "VALIDATION_ERROR", nil)
	}

	accessToken, refreshToken, err := h.tokenService.RefreshAdminToken(req.RefreshToken)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid refresh token", "INVALID_REFRESH_TOKEN", nil)
	}

	return successResponse(c, fiber.StatusOK, "Tokens refreshed", dto.AdminLoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.tokenService.AccessTokenTTL().Seconds()),
	})
}
