// Package api exposes the agent over HTTP: one operation per endpoint
// plus a server-sent-event stream of binding state changes.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/athena-agent/internal/agent"
	"github.com/athena-agent/internal/binding"
	"github.com/athena-agent/internal/logging"
	"github.com/athena-agent/internal/types"
)

// AgentService is the slice of the orchestrator the handlers use
type AgentService interface {
	CreateCase(ctx context.Context, address string) (*types.Case, error)
	SecureEvidence(ctx context.Context, content string, evType types.EvidenceType, metadata string) (*types.EvidenceRecord, error)
	CalculateBudget(ctx context.Context, params agent.BudgetParams) (*types.EscapePlan, error)
	OptimizeYield(ctx context.Context) (*types.YieldResult, error)
	TriggerSOS(ctx context.Context, destinationAddress string) (*types.SOSResult, error)
	ClearLocalState(ctx context.Context) error
	GetState() *types.AgentState
	RefreshVaultState(ctx context.Context) types.VaultState
	DanglingIntent() *types.SOSIntent
	IsOnline() bool
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
}

// DefaultServerConfig returns sensible timeouts. WriteTimeout is zero
// because the SSE stream holds its response open indefinitely.
func DefaultServerConfig(host, port string, rps int) *ServerConfig {
	return &ServerConfig{
		Host:            host,
		Port:            port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    0,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateLimitRPS:    rps,
	}
}

// Server is the HTTP API server
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	agent      AgentService
	binding    *binding.Binding
	config     *ServerConfig
	logger     *logging.Logger
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, agentService AgentService, bnd *binding.Binding) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		agent:   agentService,
		binding: bnd,
		config:  config,
		logger:  logging.WithField("component", "api"),
	}

	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RateLimitRPS)

	// Middleware order matters: logging wraps everything, rate limiting
	// runs after CORS so preflights are never throttled.
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/case", s.handleCreateCase).Methods("POST")
	api.HandleFunc("/evidence", s.handleSecureEvidence).Methods("POST")
	api.HandleFunc("/plan", s.handleCalculateBudget).Methods("POST")
	api.HandleFunc("/optimize", s.handleOptimizeYield).Methods("POST")
	api.HandleFunc("/sos", s.handleTriggerSOS).Methods("POST")
	api.HandleFunc("/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/state", s.handleClearState).Methods("DELETE")
	api.HandleFunc("/vault", s.handleGetVault).Methods("GET")
	api.HandleFunc("/events", s.handleEvents).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "athena-agent",
		"online":  s.agent.IsOnline(),
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler tree. Used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}
