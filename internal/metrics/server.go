package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"github.com/goran-ethernal/TokenIndexor/pkg/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sugawarayuuta/sonnet"
)

const systemMetricsInterval = 15 * time.Second

// Server exposes the Prometheus registry and a JSON health report.
type Server struct {
	config *config.MetricsConfig
	server *http.Server
	addr   net.Addr
	stopCh chan struct{}
	log    *logger.Logger
}

// NewServer creates a new metrics server.
func NewServer(cfg *config.MetricsConfig, log *logger.Logger) *Server {
	return &Server{
		config: cfg,
		stopCh: make(chan struct{}),
		log:    log,
	}
}

// Handler returns the mux served by the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.config.Path, promhttp.Handler())
	mux.HandleFunc("/health", serveHealth)
	return mux
}

type healthReport struct {
	Status     string          `json:"status"`
	Components map[string]bool `json:"components"`
}

// serveHealth answers 200 while every feed's last cycle succeeded and 503
// once any of them failed. Feeds that have not run yet are not listed.
func serveHealth(w http.ResponseWriter, _ *http.Request) {
	report := healthReport{Status: "ok", Components: HealthSnapshot()}
	code := http.StatusOK
	for _, healthy := range report.Components {
		if !healthy {
			report.Status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}

	body, err := sonnet.Marshal(report)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

// Start binds the listen address and serves in the background.
// It is a no-op when metrics are disabled.
func (s *Server) Start(ctx context.Context) error {
	if s.config == nil || !s.config.Enabled {
		return nil
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", s.config.ListenAddress, err)
	}
	s.addr = ln.Addr()

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go s.updateSystemMetrics(ctx)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("metrics server error: %v", err)
		}
	}()

	s.log.Infof("metrics server listening on %s%s", s.addr, s.config.Path)
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Stop stops the metrics HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	close(s.stopCh)

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown metrics server: %w", err)
	}

	return nil
}

func (s *Server) updateSystemMetrics(ctx context.Context) {
	t := time.NewTimer(0)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			UpdateSystemMetrics()
			t.Reset(systemMetricsInterval)
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}
