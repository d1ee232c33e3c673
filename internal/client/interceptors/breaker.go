package interceptors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/pribylovaa/go-expense-tracker/internal/config"
)

// errServerStatus — 5xx считается отказом для breaker, но ответ отдаётся вызывающему.
var errServerStatus = errors.New("server error status")

// NewBreaker создаёт circuit breaker по конфигурации.
// Размыкается после MaxFailures подряд неудачных попыток, через OpenTimeout
// пропускает пробный запрос.
func NewBreaker(cfg config.BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker {
	if logger == nil {
		logger = slog.Default()
	}

	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "expense-api",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
}

// WithBreaker пропускает попытки через cb. Отказом считаются транспортные
// ошибки и ответы 5xx. При разомкнутом breaker запрос не уходит в сеть.
func WithBreaker(cb *gobreaker.CircuitBreaker) Middleware {
	if cb == nil {
		return nil
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			res, err := cb.Execute(func() (interface{}, error) {
				resp, err := next.RoundTrip(r)
				if err != nil {
					return nil, err
				}
				if resp.StatusCode >= http.StatusInternalServerError {
					return resp, errServerStatus
				}

				return resp, nil
			})

			resp, _ := res.(*http.Response)
			if errors.Is(err, errServerStatus) {
				return resp, nil
			}
			if err != nil {
				return nil, fmt.Errorf("breaker: %w", err)
			}

			return resp, nil
		})
	}
}
