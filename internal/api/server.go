// Package api provides the HTTP server for islandcalc.
// It exposes stateless calculation, per-session calculator state and the
// token spot price as JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/islandcalc/islandcalc/internal/app/calculator"
	"github.com/islandcalc/islandcalc/internal/app/session"
	"github.com/islandcalc/islandcalc/internal/domain"
	"github.com/islandcalc/islandcalc/internal/health"
)

// Version is reported by /api/version.
var Version = "0.1.0"

// PriceSource is the price feed as seen by the API. pricefeed.Source
// satisfies it.
type PriceSource interface {
	Last() (domain.PriceQuote, bool)
	Refresh(ctx context.Context, force bool) (domain.PriceQuote, bool)
	History(limit int) ([]domain.PriceQuote, error)
}

// Server is the islandcalc HTTP API server.
type Server struct {
	econ           *calculator.Economy
	sessions       *session.Store
	prices         PriceSource     // nil when the feed is disabled
	health         *health.Checker // nil if not set
	metricsEnabled bool
	corsOrigins    []string
	logger         *log.Entry
}

// NewServer creates a new API server. prices may be nil.
func NewServer(econ *calculator.Economy, sessions *session.Store, prices PriceSource) *Server {
	return &Server{
		econ:        econ,
		sessions:    sessions,
		prices:      prices,
		corsOrigins: []string{"*"},
		logger:      log.WithField("component", "api"),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth attaches a health checker reported by /health.
func (s *Server) SetHealth(h *health.Checker) { s.health = h }

// SetCORSOrigins sets the allowed origins. Empty keeps "*".
func (s *Server) SetCORSOrigins(origins []string) {
	if len(origins) > 0 {
		s.corsOrigins = origins
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": Version,
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/tables", s.handleTables)
		r.Post("/calculate", s.handleCalculate)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/{id}", s.handleGetSession)
			r.Patch("/{id}", s.handleUpdateSession)
			r.Delete("/{id}", s.handleDeleteSession)
			r.Post("/{id}/boosts", s.handleAddBoost)
			r.Delete("/{id}/boosts/{index}", s.handleRemoveBoost)
		})

		r.Route("/price", func(r chi.Router) {
			r.Get("/", s.handlePrice)
			r.Post("/refresh", s.handleRefreshPrice)
			r.Get("/history", s.handlePriceHistory)
		})
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
		})
		return
	}

	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": s.health.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    errorType(status),
		},
	})
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request_error"
	case http.StatusNotFound:
		return "not_found_error"
	case http.StatusServiceUnavailable:
		return "unavailable_error"
	default:
		return "error"
	}
}

// writeDomainError maps sentinel errors to status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnknownIntensity),
		errors.Is(err, domain.ErrUnknownBoostTier),
		errors.Is(err, domain.ErrBoostIndexInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrPriceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// corsMiddleware adds CORS headers for browser clients.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowOrigin(r.Header.Get("Origin")))
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowOrigin(origin string) string {
	for _, o := range s.corsOrigins {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}
