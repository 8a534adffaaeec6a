package observability_test

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/infrastructure/observability"
	"github.com/jhoicas/Facturacion-api/pkg/config"
)

func TestObserveOperation_CuentaPorOperacionYResultado(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	m.ObserveOperation("SubmitToSri", "success", 1200*time.Millisecond)
	m.ObserveOperation("SubmitToSri", "rejected", 900*time.Millisecond)
	m.ObserveOperation("SubmitToSri", "success", 300*time.Millisecond)

	n, err := testutil.GatherAndCount(reg, "sri_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = testutil.GatherAndCount(reg, "sri_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != "sri_operations_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 3.0, total)
}

func TestHTTPMiddleware_UsaRutaRegistrada(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	app := fiber.New()
	app.Use(m.HTTPMiddleware())
	app.Get("/api/documents/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for _, id := range []string{"a", "b", "c"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/documents/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	n, err := testutil.GatherAndCount(reg, "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "una sola serie para la ruta parametrizada")
}

func TestHandler_ExponeColectores(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	m.ObserveOperation("GenerateXml", "success", 50*time.Millisecond)

	app := fiber.New()
	app.Get("/metrics", observability.Handler(reg))

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `sri_operations_total{operation="GenerateXml",outcome="success"} 1`)
}

func TestSetupOTel_Deshabilitado(t *testing.T) {
	shutdown, err := observability.SetupOTel(context.Background(), config.OTELConfig{Enabled: false}, "test")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}
