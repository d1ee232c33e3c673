package interceptors

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/go-expense-tracker/internal/pkg/log"
)

// WithLogging — логирование исходящих запросов.
// Поведение:
//   - добавляет поля request_id/method/path, прокладывает обогащённый логгер в контекст (pkg/log);
//   - пишет одну финальную запись на попытку: msg="http", status, dur;
//     транспортная ошибка — уровень Warn с полем err.
//
// Безопасность: не логирует тела, query и заголовки (Authorization в том числе).
func WithLogging(base *slog.Logger) Middleware {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			rid := r.Header.Get(HeaderRequestID)
			if rid == "" {
				rid = "-"
			}

			l := base.With(
				slog.String("request_id", rid),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			r = r.WithContext(log.Into(r.Context(), l))

			resp, err := next.RoundTrip(r)
			if err != nil {
				l.Warn("http",
					slog.String("err", err.Error()),
					slog.Duration("dur", time.Since(start)),
				)
				return resp, err
			}

			l.Info("http",
				slog.Int("status", resp.StatusCode),
				slog.Duration("dur", time.Since(start)),
			)

			return resp, nil
		})
	}
}
