package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/andt14111999/test-exchange-sub006/internal/observability"
	"github.com/andt14111999/test-exchange-sub006/internal/query"
)

// HTTPServer exposes the read-only query API plus health and metrics
// endpoints. Query routes are registered on a grpc-gateway mux so path
// parameters follow the same {name} pattern as the rest of the platform's
// gateways.
type HTTPServer struct {
	svc     *query.Service
	health  *observability.HealthChecker
	logger  zerolog.Logger
	metrics *observability.Metrics
	srv     *http.Server
}

func NewHTTPServer(addr string, svc *query.Service, health *observability.HealthChecker, logger zerolog.Logger, metrics *observability.Metrics) *HTTPServer {
	s := &HTTPServer{
		svc:     svc,
		health:  health,
		logger:  logger,
		metrics: metrics,
	}

	gw := runtime.NewServeMux()
	s.registerQueryRoutes(gw)

	root := http.NewServeMux()
	root.Handle("/v1/", gw)
	root.Handle("/metrics", promhttp.Handler())
	root.HandleFunc("/healthz", health.LivenessHandler)
	root.HandleFunc("/readyz", health.ReadinessHandler)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *HTTPServer) registerQueryRoutes(gw *runtime.ServeMux) {
	s.handle(gw, "/v1/accounts/{key}", "get_account",
		func(params map[string]string, _ *http.Request) (interface{}, error) {
			return s.svc.GetAccount(params["key"])
		})
	s.handle(gw, "/v1/accounts/{key}/history", "get_account_history",
		func(params map[string]string, r *http.Request) (interface{}, error) {
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			return s.svc.GetAccountHistory(params["key"], limit)
		})
	s.handle(gw, "/v1/deposits/{id}", "get_deposit",
		func(params map[string]string, _ *http.Request) (interface{}, error) {
			return s.svc.GetDeposit(params["id"])
		})
	s.handle(gw, "/v1/withdrawals/{id}", "get_withdrawal",
		func(params map[string]string, _ *http.Request) (interface{}, error) {
			return s.svc.GetWithdrawal(params["id"])
		})
	s.handle(gw, "/v1/locks/{id}", "get_balance_lock",
		func(params map[string]string, _ *http.Request) (interface{}, error) {
			return s.svc.GetBalanceLock(params["id"])
		})
	s.handle(gw, "/v1/pools/{pair}", "get_pool",
		func(params map[string]string, _ *http.Request) (interface{}, error) {
			return s.svc.GetPool(params["pair"])
		})
	s.handle(gw, "/v1/pools/{pair}/liquidity", "get_pool_liquidity",
		func(params map[string]string, _ *http.Request) (interface{}, error) {
			return s.svc.GetPoolLiquidity(params["pair"])
		})
	s.handle(gw, "/v1/positions/{id}", "get_position",
		func(params map[string]string, _ *http.Request) (interface{}, error) {
			return s.svc.GetPosition(params["id"])
		})
}

func (s *HTTPServer) handle(gw *runtime.ServeMux, pattern, endpoint string, fn func(map[string]string, *http.Request) (interface{}, error)) {
	err := gw.HandlePath(http.MethodGet, pattern,
		func(w http.ResponseWriter, r *http.Request, params map[string]string) {
			start := time.Now()
			payload, err := fn(params, r)
			status := "ok"

			switch {
			case errors.Is(err, query.ErrNotFound):
				status = "not_found"
				writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			case err != nil:
				status = "error"
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			default:
				writeJSON(w, http.StatusOK, payload)
			}

			if s.metrics != nil {
				s.metrics.QueryRequests.WithLabelValues(endpoint, status).Inc()
				s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
			}
		})
	if err != nil {
		// Patterns are compile-time constants; a registration failure is
		// a programming error.
		panic(err)
	}
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
