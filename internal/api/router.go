// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api exposes the crash pipeline over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/wingedpig/faultline/internal/alert"
	"github.com/wingedpig/faultline/internal/analyze"
	"github.com/wingedpig/faultline/internal/api/handlers"
	"github.com/wingedpig/faultline/internal/api/middleware"
	"github.com/wingedpig/faultline/internal/store"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Host    string
	Port    int
	TLSCert string // Path to TLS certificate file
	TLSKey  string // Path to TLS private key file
}

// Dependencies holds all dependencies for API handlers.
type Dependencies struct {
	Coordinator handlers.Coordinator
	Store       *store.SQLiteStore
	Analyzer    *analyze.Analyzer
	Alerter     *alert.Alerter
	Log         zerolog.Logger
	Version     string // Application version string
}

// NewRouter creates a new API router.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging(deps.Log))
	r.Use(middleware.Recovery(deps.Coordinator.Detector(), deps.Log))
	r.Use(middleware.CORS)

	// API v1 routes
	api := r.PathPrefix("/api/v1").Subrouter()

	// Dashboard and coordinator-level operations
	dashboardHandler := handlers.NewDashboardHandler(deps.Coordinator)
	api.HandleFunc("/dashboard", dashboardHandler.Get).Methods("GET")
	api.HandleFunc("/health", dashboardHandler.Health).Methods("GET")
	api.HandleFunc("/export", dashboardHandler.Export).Methods("POST")
	api.HandleFunc("/simulate", dashboardHandler.Simulate).Methods("POST")
	api.HandleFunc("/data", dashboardHandler.Clear).Methods("DELETE")

	// Crash report handlers
	reportsHandler := handlers.NewReportsHandler(deps.Store)
	api.HandleFunc("/reports", reportsHandler.List).Methods("GET")
	api.HandleFunc("/reports/statistics", reportsHandler.Statistics).Methods("GET")
	api.HandleFunc("/reports/{id}", reportsHandler.Get).Methods("GET")
	api.HandleFunc("/reports/{id}", reportsHandler.Delete).Methods("DELETE")

	// Analysis handlers
	analysisHandler := handlers.NewAnalysisHandler(deps.Analyzer)
	api.HandleFunc("/analysis", analysisHandler.Get).Methods("GET")
	api.HandleFunc("/analysis/metrics", analysisHandler.Metrics).Methods("GET")

	// Alert handlers
	alertsHandler := handlers.NewAlertsHandler(deps.Alerter)
	api.HandleFunc("/alerts", alertsHandler.History).Methods("GET")
	api.HandleFunc("/alerts", alertsHandler.ClearHistory).Methods("DELETE")
	api.HandleFunc("/alerts/stats", alertsHandler.Stats).Methods("GET")
	api.HandleFunc("/alerts/snooze", alertsHandler.Snooze).Methods("POST")
	api.HandleFunc("/alerts/unsnooze", alertsHandler.Unsnooze).Methods("POST")

	// Detector control and host integration
	controlHandler := handlers.NewControlHandler(deps.Coordinator)
	api.HandleFunc("/status", controlHandler.Status).Methods("GET")
	api.HandleFunc("/monitoring/start", controlHandler.Start).Methods("POST")
	api.HandleFunc("/monitoring/stop", controlHandler.Stop).Methods("POST")
	api.HandleFunc("/heartbeat", controlHandler.Heartbeat).Methods("POST")
	api.HandleFunc("/breadcrumbs", controlHandler.Breadcrumb).Methods("POST")
	api.HandleFunc("/breadcrumbs", controlHandler.Breadcrumbs).Methods("GET")

	// Event stream
	eventsHandler := handlers.NewEventsHandler(deps.Coordinator, deps.Log)
	api.HandleFunc("/events/ws", eventsHandler.WebSocket).Methods("GET")

	// Debug/profiling endpoints
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	return r
}

// Server represents the API server.
type Server struct {
	router *mux.Router
	cfg    ServerConfig
	log    zerolog.Logger
	server *http.Server
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, deps Dependencies) *Server {
	return &Server{
		router: NewRouter(deps),
		cfg:    cfg,
		log:    deps.Log.With().Str("component", "api").Logger(),
	}
}

// Router returns the underlying router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ListenAndServe starts the server.
// If TLS is configured (tls_cert and tls_key), uses HTTPS.
func (s *Server) ListenAndServe() error {
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	cert, key, err := tlsFiles(s.cfg.TLSCert, s.cfg.TLSKey)
	if err != nil {
		return fmt.Errorf("tls configuration: %w", err)
	}

	if cert != "" {
		s.log.Info().Str("addr", addr).Msg("api server listening (TLS enabled)")
		return s.server.ListenAndServeTLS(cert, key)
	}

	s.log.Info().Str("addr", addr).Msg("api server listening")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.log.Info().Msg("shutting down api server")

	// Create a timeout context if none provided
	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	return s.server.Shutdown(shutdownCtx)
}
