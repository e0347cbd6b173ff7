package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/geocontrol/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)
	if s.limiter != nil {
		r.Use(s.limiter.Middleware(s.handleTooManyRequests))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	if s.metrics != nil && s.metricsPath != "" {
		r.Handle(s.metricsPath, s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth", s.handleLogin)

		// The live stream authenticates with ?token= since browsers cannot
		// set headers on a WebSocket handshake.
		r.Get(s.websocketPath(), s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/users", func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermUserManage))
				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)
				r.Get("/{userName}", s.handleGetUser)
				r.Delete("/{userName}", s.handleDeleteUser)
			})

			r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAudit)

			r.Route("/networks", func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermNetworkRead))

				r.Get("/", s.handleListNetworks)
				r.With(s.requirePermission(auth.PermNetworkWrite)).Post("/", s.handleCreateNetwork)

				r.Route("/{networkCode}", func(r chi.Router) {
					r.Get("/", s.handleGetNetwork)
					r.With(s.requirePermission(auth.PermNetworkWrite)).Patch("/", s.handleUpdateNetwork)
					r.With(s.requirePermission(auth.PermNetworkWrite)).Delete("/", s.handleDeleteNetwork)

					r.Get("/measurements", s.handleNetworkMeasurements)
					r.Get("/stats", s.handleNetworkStats)
					r.Get("/outliers", s.handleNetworkOutliers)

					r.Route("/gateways", s.gatewayRoutes)
				})
			})
		})
	})

	return r
}

func (s *Server) gatewayRoutes(r chi.Router) {
	write := s.requirePermission(auth.PermNetworkWrite)

	r.Get("/", s.handleListGateways)
	r.With(write).Post("/", s.handleCreateGateway)

	r.Route("/{gatewayMac}", func(r chi.Router) {
		r.Get("/", s.handleGetGateway)
		r.With(write).Patch("/", s.handleUpdateGateway)
		r.With(write).Delete("/", s.handleDeleteGateway)

		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", s.handleListSensors)
			r.With(write).Post("/", s.handleCreateSensor)

			r.Route("/{sensorMac}", func(r chi.Router) {
				r.Get("/", s.handleGetSensor)
				r.With(write).Patch("/", s.handleUpdateSensor)
				r.With(write).Delete("/", s.handleDeleteSensor)

				r.Get("/measurements", s.handleSensorMeasurements)
				r.With(s.requirePermission(auth.PermMeasurementWrite)).Post("/measurements", s.handleStoreMeasurements)
				r.Get("/stats", s.handleSensorStats)
				r.Get("/outliers", s.handleSensorOutliers)
			})
		})
	})
}

func (s *Server) websocketPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}
