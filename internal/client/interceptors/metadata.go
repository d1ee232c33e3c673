package interceptors

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type CtxKey string

const CtxRequestID CtxKey = "request_id"

const HeaderRequestID = "X-Request-Id"

// WithRequestID кладёт request_id в контекст; его подхватит WithMetadata.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, CtxRequestID, rid)
}

// RequestID достаёт request_id из контекста.
func RequestID(ctx context.Context) string {
	rid, _ := ctx.Value(CtxRequestID).(string)
	return rid
}

// WithMetadata — добавляет в исходящий запрос заголовки:
//   - X-Request-Id (из заголовка, из контекста или новый uuid),
//   - User-Agent (если передан параметром).
//
// Исходный *http.Request не модифицируется.
func WithMetadata(userAgent string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			rid := r.Header.Get(HeaderRequestID)
			if rid == "" {
				rid = RequestID(r.Context())
			}
			if rid == "" {
				rid = uuid.NewString()
			}

			ctx := WithRequestID(r.Context(), rid)
			out := r.Clone(ctx)
			out.Header.Set(HeaderRequestID, rid)
			if userAgent != "" {
				out.Header.Set("User-Agent", userAgent)
			}

			return next.RoundTrip(out)
		})
	}
}
