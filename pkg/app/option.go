package app

import (
	"net/http"

	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/tixchain/ticket-server/pkg/metrics"
)

const healthPath = "/healthz"

// Middleware wraps the application's HTTP handler.
type Middleware func(next http.Handler) http.Handler

// Option configures the environment run by Run().
type Option func(o *opts)

type opts struct {
	middleware []Middleware
}

// WithMiddleware configures the app's HTTP servers to use the provided
// middleware.
//
// Middleware is evaluated in addition order, after the app's default
// middleware.
func WithMiddleware(m Middleware) Option {
	return func(o *opts) {
		o.middleware = append(o.middleware, m)
	}
}

// chain wraps handler so the first registered middleware runs first.
func (o *opts) chain(handler http.Handler) http.Handler {
	for i := len(o.middleware) - 1; i >= 0; i-- {
		handler = o.middleware[i](handler)
	}
	return handler
}

// NewRelicMiddleware starts a New Relic web transaction per request and
// attaches it, along with the application, to the request context where
// method tracers and custom metrics pick them up.
func NewRelicMiddleware(nr *newrelic.Application) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			txn := nr.StartTransaction(r.Method + " " + r.URL.Path)
			defer txn.End()

			txn.SetWebRequestHTTP(r)
			w = txn.SetWebResponse(w)
			r = newrelic.RequestWithTransactionContext(r, txn)
			next.ServeHTTP(w, r.WithContext(metrics.NewContext(r.Context(), nr)))
		})
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
