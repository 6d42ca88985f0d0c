package handler

import (
	"net/http"

	"github.com/damon-houk/purchase-conversion-service/internal/application/service"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/metrics"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// NewRouter wires every handler and the shared middleware chain onto one router
func NewRouter(svc *service.TransactionService, m *metrics.Metrics, log logger.Logger) *mux.Router {
	if log == nil {
		log = logger.NewNop()
	}
	if m == nil {
		m = metrics.New(nil)
	}

	chain := []mux.MiddlewareFunc{
		middleware.RequestIDMiddleware,
		middleware.LoggingMiddleware(log),
		middleware.MetricsMiddleware(m),
	}

	router := mux.NewRouter()
	router.Use(chain...)

	// mux skips Use middleware when no route matches, so wrap the fallbacks
	router.NotFoundHandler = wrap(chain, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sendErrorResponse(w, log, "Not found",
			"No route matches "+r.URL.Path, http.StatusNotFound, middleware.GetRequestID(r.Context()))
	}))
	router.MethodNotAllowedHandler = wrap(chain, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sendErrorResponse(w, log, "Method not allowed",
			r.Method+" is not supported on "+r.URL.Path, http.StatusMethodNotAllowed, middleware.GetRequestID(r.Context()))
	}))

	NewTransactionHandler(svc, log).RegisterRoutes(router)
	NewConversionHandler(svc, log).RegisterRoutes(router)
	NewHealthHandler(log).RegisterRoutes(router)
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	return router
}

// wrap applies chain to h with the first middleware outermost, the same order
// Router.Use uses
func wrap(chain []mux.MiddlewareFunc, h http.Handler) http.Handler {
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}
