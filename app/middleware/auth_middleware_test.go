package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/AutoSEM/app/services"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthTestApp(t *testing.T) (*fiber.App, services.TokenService) {
	t.Helper()

	tokenService, err := services.NewTokenService(time.Hour, 24*time.Hour, "autosem", "autosem-api", "0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	app := fiber.New()
	m := NewAuthMiddleware(tokenService)
	app.Get("/protected", m.AdminAuthenticate(), func(c fiber.Ctx) error {
		adminID, ok := GetAdminIDFromContext(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"admin_id": adminID})
	})

	return app, tokenService
}

func TestAdminAuthenticate_MissingHeader(t *testing.T) {
	app, _ := newAuthTestApp(t)

	req := httptest.NewRequest("GET", "/protected", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminAuthenticate_BadFormat(t *testing.T) {
	app, _ := newAuthTestApp(t)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminAuthenticate_InvalidToken(t *testing.T) {
	app, _ := newAuthTestApp(t)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminAuthenticate_RejectsRefreshToken(t *testing.T) {
	app, tokenService := newAuthTestApp(t)

	_, refresh, err := tokenService.GenerateAdminTokens(1)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminAuthenticate_ValidToken(t *testing.T) {
	app, tokenService := newAuthTestApp(t)

	access, _, err := tokenService.GenerateAdminTokens(1)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
