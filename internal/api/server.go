package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/geocontrol/internal/audit"
	"github.com/nerrad567/geocontrol/internal/auth"
	"github.com/nerrad567/geocontrol/internal/infrastructure/config"
	"github.com/nerrad567/geocontrol/internal/infrastructure/logging"
	"github.com/nerrad567/geocontrol/internal/infrastructure/metrics"
	"github.com/nerrad567/geocontrol/internal/infrastructure/ratelimit"
	"github.com/nerrad567/geocontrol/internal/measurement"
	"github.com/nerrad567/geocontrol/internal/network"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// MeasurementService is the measurement pipeline as seen by the handlers.
type MeasurementService interface {
	GetSeries(ctx context.Context, ref measurement.SensorRef, r measurement.Range) (measurement.SeriesResult, error)
	GetStats(ctx context.Context, ref measurement.SensorRef, r measurement.Range) (measurement.Stats, error)
	GetOutliers(ctx context.Context, ref measurement.SensorRef, r measurement.Range) (measurement.SeriesResult, error)
	GetSeriesForNetwork(ctx context.Context, networkCode string, sensorMACs []string, r measurement.Range) ([]measurement.SeriesResult, error)
	GetStatsForNetwork(ctx context.Context, networkCode string, sensorMACs []string, r measurement.Range) ([]measurement.NetworkStats, error)
	GetOutliersForNetwork(ctx context.Context, networkCode string, sensorMACs []string, r measurement.Range) ([]measurement.SeriesResult, error)
	Store(ctx context.Context, ref measurement.SensorRef, ms []measurement.Measurement) error
}

// HealthChecker is a component whose status is reported by /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies of the API server.
type Deps struct {
	Config       config.APIConfig
	WS           config.WebSocketConfig
	Security     config.SecurityConfig
	MetricsPath  string
	Logger       *logging.Logger
	Users        auth.UserRepository
	Networks     network.Repository
	Measurements MeasurementService
	Audit        audit.Repository   // optional
	Hub          *Hub               // optional; created when nil
	Metrics      *metrics.Metrics   // optional
	RateLimiter  *ratelimit.Limiter // optional
	Health       map[string]HealthChecker
	Version      string
}

// Server is the GeoControl HTTP server.
type Server struct {
	cfg          config.APIConfig
	wsCfg        config.WebSocketConfig
	secCfg       config.SecurityConfig
	metricsPath  string
	logger       *logging.Logger
	users        auth.UserRepository
	networks     network.Repository
	measurements MeasurementService
	audit        audit.Repository
	hub          *Hub
	metrics      *metrics.Metrics
	limiter      *ratelimit.Limiter
	health       map[string]HealthChecker
	version      string
	server       *http.Server
	cancel       context.CancelFunc
}

// New creates a server. It is not listening until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Networks == nil {
		return nil, fmt.Errorf("network repository is required")
	}
	if deps.Measurements == nil {
		return nil, fmt.Errorf("measurement service is required")
	}
	if deps.Security.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.WS, deps.Logger, deps.Metrics)
	}

	return &Server{
		cfg:          deps.Config,
		wsCfg:        deps.WS,
		secCfg:       deps.Security,
		metricsPath:  deps.MetricsPath,
		logger:       deps.Logger,
		users:        deps.Users,
		networks:     deps.Networks,
		measurements: deps.Measurements,
		audit:        deps.Audit,
		hub:          hub,
		metrics:      deps.Metrics,
		limiter:      deps.RateLimiter,
		health:       deps.Health,
		version:      deps.Version,
	}, nil
}

// Hub returns the live-stream hub, for registering it as a measurement sink.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start runs the WebSocket hub and begins listening in the background.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", s.server.Addr, "cert", s.cfg.TLS.CertFile)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close stops the hub and shuts the listener down gracefully.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
