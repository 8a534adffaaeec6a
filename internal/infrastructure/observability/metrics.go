package observability

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
)

var _ billing.OperationMetrics = (*Metrics)(nil)

// Metrics colectores Prometheus de las operaciones SRI y del tráfico HTTP.
// Las etiquetas son de cardinalidad acotada: operación, resultado, método, ruta registrada y status.
type Metrics struct {
	sriOps      *prometheus.CounterVec
	sriLatency  *prometheus.HistogramVec
	httpReqs    *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
}

// NewMetrics crea y registra los colectores en reg (prometheus.DefaultRegisterer en main,
// un registry propio en tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sriOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sri_operations_total",
				Help: "Operaciones del flujo SRI por operación y resultado.",
			},
			[]string{"operation", "outcome"},
		),
		sriLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sri_operation_duration_seconds",
				Help:    "Duración de las operaciones del flujo SRI.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
		httpReqs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total de requests HTTP.",
			},
			[]string{"method", "path", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duración de los requests HTTP.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
	reg.MustRegister(m.sriOps, m.sriLatency, m.httpReqs, m.httpLatency)
	return m
}

// ObserveOperation implementa billing.OperationMetrics.
func (m *Metrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	m.sriOps.WithLabelValues(operation, outcome).Inc()
	m.sriLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// HTTPMiddleware mide cada request con la ruta registrada (c.Route().Path), no la URL cruda.
func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		path := c.Route().Path
		method := c.Method()
		m.httpReqs.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		m.httpLatency.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler expone los colectores de g en formato Prometheus (GET /metrics).
func Handler(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
