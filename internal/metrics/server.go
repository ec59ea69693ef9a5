package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/t77yq/sentinel/internal/health"
)

// Server serves /metrics, /health, and /ready for one daemon process
type Server struct {
	logger   *zap.Logger
	checker  *health.Checker
	srv      *http.Server
	listener net.Listener
}

// NewServer wires the registry and health checker onto an HTTP mux.
// checker may be nil; /health and /ready then always report ok.
func NewServer(logger *zap.Logger, addr string, registry *prometheus.Registry, checker *health.Checker) *Server {
	s := &Server{
		logger:  logger.Named("metrics"),
		checker: checker,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.listener = listener

	go func() {
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	s.logger.Info("Metrics server listening", zap.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound address; valid after Start
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.srv.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type healthResponse struct {
	Status health.Status   `json:"status"`
	Checks []health.Result `json:"checks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := healthResponse{Status: health.StatusOK}

	if s.checker != nil {
		response.Checks = s.checker.Run(r.Context())
		for _, result := range response.Checks {
			if result.Status != health.StatusOK {
				response.Status = health.StatusFailed
				break
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if response.Status != health.StatusOK {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.checker != nil && !s.checker.Healthy(r.Context()) {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
