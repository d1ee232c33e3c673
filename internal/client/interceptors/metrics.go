package interceptors

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — счётчики исходящих запросов клиента.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics создаёт коллекторы и регистрирует их в reg.
// reg == nil — коллекторы работают, но нигде не зарегистрированы.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "expense",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Outgoing API requests by method and status code (\"error\" for transport failures).",
		}, []string{"method", "code"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "expense",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Outgoing API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// WithMetrics считает каждую попытку. Путь в метки не попадает: в нём идентификаторы.
func WithMetrics(m *Metrics) Middleware {
	if m == nil {
		return nil
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)

			code := "error"
			if err == nil {
				code = strconv.Itoa(resp.StatusCode)
			}

			m.Requests.WithLabelValues(r.Method, code).Inc()
			m.Duration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())

			return resp, err
		})
	}
}
