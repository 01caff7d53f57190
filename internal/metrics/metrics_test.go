package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics(t *testing.T) {
	m := New("ETF Analytics", "9.9.9")
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/metrics", m.Handler())
	app.Get("/test", func(c *fiber.Ctx) error { return c.SendString("ok") })

	for i := 0; i < 2; i++ {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil), -1)
		require.NoError(t, err)
	}
	m.ObserveUpload(0)
	m.ObserveUpload(1004)

	body := scrape(t, app)
	assert.Contains(t, body, `app_info{app_name="ETF Analytics",version="9.9.9"} 1`)
	assert.Contains(t, body, `http_requests_total{method="GET",path="/test",status="200"} 2`)
	assert.Contains(t, body, `http_request_duration_seconds_count{method="GET",path="/test",status="200"} 2`)
	assert.Contains(t, body, `etf_uploads_total{code="0"} 1`)
	assert.Contains(t, body, `etf_uploads_total{code="1004"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetrics_RecordsFiberErrors(t *testing.T) {
	m := New("ETF Analytics", "test")
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/metrics", m.Handler())
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.ErrBadRequest })

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), -1)
	require.NoError(t, err)

	assert.Contains(t, scrape(t, app), `http_requests_total{method="GET",path="/boom",status="400"} 1`)
}
