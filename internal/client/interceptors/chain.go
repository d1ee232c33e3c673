// interceptors предоставляет набор http.RoundTripper-обёрток для исходящих
// запросов клиента: metadata -> timeout -> logging -> metrics -> breaker.
package interceptors

import "net/http"

// Middleware оборачивает транспорт.
type Middleware func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc — адаптер функции к http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain собирает цепочку: первый middleware — внешний.
// base == nil — http.DefaultTransport. nil-элементы пропускаются.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		rt = mws[i](rt)
	}

	return rt
}
