package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func newGuardedApp(token string) *fiber.App {
	app := fiber.New()
	app.Get("/guarded", RequireAdminToken(token), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	return app
}

func TestRequireAdminToken(t *testing.T) {
	app := newGuardedApp("s3cret")

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("X-Admin-Token", "s3cret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireAdminTokenUnconfigured(t *testing.T) {
	app := newGuardedApp("")

	// No token configured: the routes look like they don't exist.
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("X-Admin-Token", "anything")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
