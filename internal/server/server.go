// Package server exposes the receipt service as a JSON API for the
// mobile-web frontend.
package server

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/moriyama/receipt-snap/internal/notion"
	"github.com/moriyama/receipt-snap/internal/receipt"
)

// Settings keys for the persisted Notion credentials. Values saved from
// the settings screen override the environment defaults.
const (
	settingNotionAPIKey     = "notion_api_key"
	settingNotionReceiptsDB = "notion_receipts_database_id"
	settingNotionItemsDB    = "notion_items_database_id"
)

// syncClientFactory builds a mirror client from a resolved config; tests
// swap it to point at a fake endpoint
type syncClientFactory func(cfg notion.Config) *notion.Client

// Server handles HTTP requests for receipts
type Server struct {
	service   *receipt.Service
	notionEnv notion.Config
	newSyncer syncClientFactory
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(service *receipt.Service, notionEnv notion.Config, basicAuth BasicAuth) *Server {
	return NewServerWithDeps(service, notionEnv, basicAuth, notion.NewClient, http.NewServeMux())
}

// NewServerWithDeps creates a new Server with a custom mux and sync
// client factory for testing
func NewServerWithDeps(service *receipt.Service, notionEnv notion.Config, basicAuth BasicAuth, newSyncer syncClientFactory, mux *http.ServeMux) *Server {
	s := &Server{
		service:   service,
		notionEnv: notionEnv,
		newSyncer: newSyncer,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// notionConfig resolves the mirror credentials: environment defaults,
// overridden per-field by persisted settings. The result is an explicit
// value handed to one client, never a global.
func (s *Server) notionConfig() notion.Config {
	cfg := s.notionEnv
	if v, err := s.service.Setting(settingNotionAPIKey); err == nil && v != "" {
		cfg.APIKey = v
	}
	if v, err := s.service.Setting(settingNotionReceiptsDB); err == nil && v != "" {
		cfg.ReceiptsDatabaseID = v
	}
	if v, err := s.service.Setting(settingNotionItemsDB); err == nil && v != "" {
		cfg.ItemsDatabaseID = v
	}
	return cfg
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Receipt Snap"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// setCORSHeaders sets CORS headers on a response. The frontend is served
// from a different origin, so the API stays permissive.
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux.
// Routes must be registered from most specific to least specific.
func (s *Server) registerRoutes() {
	// Receipts
	s.mux.HandleFunc("POST /api/receipts/analyze", s.requireAuth(s.handleAnalyzeReceipt))
	s.mux.HandleFunc("GET /api/receipts/{id}/image", s.requireAuth(s.handleGetReceiptImage))
	s.mux.HandleFunc("GET /api/receipts/{id}", s.requireAuth(s.handleGetReceipt))
	s.mux.HandleFunc("DELETE /api/receipts/{id}", s.requireAuth(s.handleDeleteReceipt))
	s.mux.HandleFunc("GET /api/receipts", s.requireAuth(s.handleListReceipts))
	s.mux.HandleFunc("POST /api/receipts", s.requireAuth(s.handleCreateReceipt))

	// Read-only views
	s.mux.HandleFunc("GET /api/categories", s.requireAuth(s.handleListCategories))
	s.mux.HandleFunc("GET /api/totals", s.requireAuth(s.handleTotals))

	// Budgets
	s.mux.HandleFunc("GET /api/budgets", s.requireAuth(s.handleListBudgets))
	s.mux.HandleFunc("PUT /api/budgets", s.requireAuth(s.handleSaveBudget))

	// Notion mirror
	s.mux.HandleFunc("GET /api/sync/status", s.requireAuth(s.handleSyncStatus))
	s.mux.HandleFunc("POST /api/sync", s.requireAuth(s.handleRunSync))

	// Settings
	s.mux.HandleFunc("GET /api/settings", s.requireAuth(s.handleGetSettings))
	s.mux.HandleFunc("PUT /api/settings", s.requireAuth(s.handlePutSettings))
	s.mux.HandleFunc("POST /api/settings/test", s.requireAuth(s.handleTestSettings))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
