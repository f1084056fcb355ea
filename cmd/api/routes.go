package main

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/mcclellann/banklend/pkg/metrics"
	"go.uber.org/zap"
)

type routerConfig struct {
	apiPrefix    string
	allowOrigins []string
	metrics      *metrics.Metrics
}

// newRouter mounts the API under apiPrefix and wraps it with recovery, CORS,
// logging and metrics middleware.
func newRouter(server *Server, cfg routerConfig) http.Handler {
	observe := requestMiddleware(server.logger, cfg.metrics)

	router := mux.NewRouter()
	router.Use(observe)

	router.HandleFunc("/", server.rootHandler).Methods("GET")
	router.HandleFunc("/health", server.healthHandler).Methods("GET")
	if cfg.metrics != nil {
		router.Handle("/metrics", cfg.metrics.Handler()).Methods("GET")
	}

	api := router.PathPrefix(cfg.apiPrefix).Subrouter()
	api.HandleFunc("/loans", server.createLoanHandler).Methods("POST")
	api.HandleFunc("/loans/active", server.listActiveLoansHandler).Methods("GET")
	api.HandleFunc("/loans/all", server.listLoansHandler).Methods("GET")
	api.HandleFunc("/loans/{loan_id}/payments", server.recordPaymentHandler).Methods("POST")
	api.HandleFunc("/loans/{loan_id}/ledger", server.getLedgerHandler).Methods("GET")
	api.HandleFunc("/customers", server.listCustomersHandler).Methods("GET")
	api.HandleFunc("/customers", server.createCustomerHandler).Methods("POST")
	api.HandleFunc("/customers/{customer_id}/overview", server.customerOverviewHandler).Methods("GET")

	// mux skips Use middleware for unmatched requests, so these are wrapped directly.
	for _, r := range []*mux.Router{router, api} {
		r.NotFoundHandler = observe(http.HandlerFunc(server.notFoundHandler))
		r.MethodNotAllowedHandler = observe(http.HandlerFunc(server.methodNotAllowedHandler))
	}

	var h http.Handler = router
	if len(cfg.allowOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(cfg.allowOrigins),
			handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		)(h)
	}
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{server.logger}),
	)(h)
}

// recoveryLogger routes panics caught by handlers.RecoveryHandler to zap.
type recoveryLogger struct {
	log *zap.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error("panic recovered", zap.Any("panic", v))
}
