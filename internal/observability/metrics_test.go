package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics("test")
	m.RecordRequest("/customers", http.MethodPost, 200, 10*time.Millisecond)
	m.RecordRequest("/customers", http.MethodPost, 200, 10*time.Millisecond)
	m.RecordError("/customers", http.MethodPost, "VALIDATION_FAILED")
	m.RecordCustomerEvent("customer_created")
	m.RecordVisitAlert()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/customers", http.MethodPost, "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("/customers", http.MethodPost, "VALIDATION_FAILED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.customerEvents.WithLabelValues("customer_created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.visitAlerts))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.RecordVisitAlert() })
}

func TestRequestLoggerRecordsRoute(t *testing.T) {
	m := NewMetrics("test")
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/admins/:adminID", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admins/ADM-1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/admins/:adminID", http.MethodGet, "204")))
}
