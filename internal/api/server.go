// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/wallet-hub/internal/logging"
	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/service"
	"github.com/wallet-hub/internal/storage"
	"github.com/wallet-hub/internal/types"
)

// Service interfaces for dependency injection and testing

// ResolverInterface defines the interface for account resolution operations
type ResolverInterface interface {
	ResolveActive(ctx context.Context, userID string, chain types.ChainType, sessionAccounts []models.LinkedAccount) (models.ActiveAccount, error)
	ListAccounts(ctx context.Context, userID string) ([]models.LinkedAccount, error)
}

// AggregatorInterface defines the interface for snapshot operations
type AggregatorInterface interface {
	Snapshot(ctx context.Context, userID string, active models.ActiveAccount) (*storage.WalletSnapshot, error)
	Refresh(ctx context.Context, userID string, active models.ActiveAccount) (*storage.WalletSnapshot, error)
	ClearChain(ctx context.Context, userID string, chain types.ChainType)
}

// OrchestratorInterface defines the interface for transfer flow operations
type OrchestratorInterface interface {
	Begin(userID string, active models.ActiveAccount) service.FlowView
	Flow(userID, flowID string) (service.FlowView, error)
	Abandon(userID, flowID string) error
	SelectRecipient(userID, flowID, address string, recipientUserID *string) (service.FlowView, error)
	ConfirmDetails(userID, flowID string, amount decimal.Decimal, memo *string) (service.FlowView, error)
	EditDetails(userID, flowID string) (service.FlowView, error)
	Execute(ctx context.Context, userID, flowID string) error
	RetryRecording(ctx context.Context, userID, flowID string) error
	SaveRecipientAsContact(userID, flowID, name string) error
	SaveAsTemplate(userID, flowID, name string) error
}

// RecorderInterface defines the interface for direct ledger recording
type RecorderInterface interface {
	Record(ctx context.Context, senderID string, intent models.TransferIntent) (*models.LedgerTransaction, bool, error)
}

// ExportGuardInterface defines the interface for key export requests
type ExportGuardInterface interface {
	RequestExport(ctx context.Context, userID string, target models.LinkedAccount, accessToken, ipAddress string) (string, error)
}

// Server represents the HTTP API server.
type Server struct {
	router       *mux.Router
	httpServer   *http.Server
	resolver     ResolverInterface
	aggregator   AggregatorInterface
	orchestrator OrchestratorInterface
	recorder     RecorderInterface
	exportGuard  ExportGuardInterface
	logger       *logging.Logger
	config       *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	PerUserRPS      int
	// ExecuteTimeout bounds a detached transfer pipeline run. Zero means
	// unbounded: the signing stage waits on human approval.
	ExecuteTimeout time.Duration
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	resolver ResolverInterface,
	aggregator AggregatorInterface,
	orchestrator OrchestratorInterface,
	recorder RecorderInterface,
	exportGuard ExportGuardInterface,
	logger *logging.Logger,
) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		resolver:     resolver,
		aggregator:   aggregator,
		orchestrator: orchestrator,
		recorder:     recorder,
		exportGuard:  exportGuard,
		logger:       logger,
		config:       config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.PerUserRPS)

	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
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

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// API v1 routes
	api := s.router.PathPrefix("/api").Subrouter()

	// Account endpoints
	api.HandleFunc("/accounts", s.handleListAccounts).Methods("GET")
	api.HandleFunc("/accounts/active", s.handleResolveActive).Methods("POST")

	// Wallet snapshot endpoints
	api.HandleFunc("/wallet/snapshot", s.handleSnapshot).Methods("POST")
	api.HandleFunc("/wallet/refresh", s.handleRefresh).Methods("POST")

	// Transfer flow endpoints
	api.HandleFunc("/transfers", s.handleBeginTransfer).Methods("POST")
	api.HandleFunc("/transfers/{id}", s.handleGetTransfer).Methods("GET")
	api.HandleFunc("/transfers/{id}", s.handleAbandonTransfer).Methods("DELETE")
	api.HandleFunc("/transfers/{id}/recipient", s.handleSelectRecipient).Methods("POST")
	api.HandleFunc("/transfers/{id}/details", s.handleConfirmDetails).Methods("POST")
	api.HandleFunc("/transfers/{id}/edit", s.handleEditDetails).Methods("POST")
	api.HandleFunc("/transfers/{id}/execute", s.handleExecuteTransfer).Methods("POST")
	api.HandleFunc("/transfers/{id}/retry-recording", s.handleRetryRecording).Methods("POST")
	api.HandleFunc("/transfers/{id}/contact", s.handleSaveContact).Methods("POST")
	api.HandleFunc("/transfers/{id}/template", s.handleSaveTemplate).Methods("POST")

	// Ledger endpoint
	api.HandleFunc("/ledger/transactions", s.handleRecordTransaction).Methods("POST")

	// Key export endpoint
	api.HandleFunc("/exports", s.handleRequestExport).Methods("POST")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "wallet-hub",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// requireUserID extracts the authenticated user from the request. In
// production this comes from the auth gateway in front of the service.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "User ID required", nil)
		return "", false
	}
	return userID, true
}
