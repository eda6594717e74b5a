package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"packliste/internal/auth"
	"packliste/internal/email"
	"packliste/internal/handler"
	"packliste/internal/middleware"
	"packliste/internal/store"
	ws "packliste/internal/websocket"
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	authH          *handler.AuthHandler
	listH          *handler.ListHandler
	sectionH       *handler.SectionHandler
	itemH          *handler.ItemHandler
	tokens         *auth.Tokens
	loginCodeStore *store.LoginCodeStore
	rateLimiter    *middleware.RateLimiter
	logger         *slog.Logger
}

func New(db *sql.DB, jwtSecret string, emailClient *email.Client, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	tokens := auth.NewTokens(jwtSecret)

	userStore := store.NewUserStore(db)
	loginCodeStore := store.NewLoginCodeStore(db)
	listStore := store.NewListStore(db)
	sectionStore := store.NewSectionStore(db)
	itemStore := store.NewItemStore(db)

	return &Server{
		db:             db,
		hub:            hub,
		authH:          handler.NewAuthHandler(userStore, loginCodeStore, tokens, emailClient, logger.With("component", "auth")),
		listH:          handler.NewListHandler(listStore, hub, logger.With("component", "list")),
		sectionH:       handler.NewSectionHandler(sectionStore, listStore, hub, logger.With("component", "section")),
		itemH:          handler.NewItemHandler(itemStore, listStore, hub, logger.With("component", "item")),
		tokens:         tokens,
		loginCodeStore: loginCodeStore,
		rateLimiter:    middleware.NewRateLimiter(),
		logger:         logger,
	}
}

// LoginCodeStore returns the login code store for cleanup tasks.
func (s *Server) LoginCodeStore() *store.LoginCodeStore {
	return s.loginCodeStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /api/auth/forgot", s.rateLimitedHandler(s.authH.Forgot))
	outerMux.HandleFunc("POST /api/auth/reset", s.rateLimitedHandler(s.authH.Reset))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens)
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// List API routes
	mux.HandleFunc("GET /api/lists", s.listH.List)
	mux.HandleFunc("POST /api/lists", s.listH.Create)
	mux.HandleFunc("PUT /api/lists/{id}", s.listH.Update)
	mux.HandleFunc("DELETE /api/lists/{id}", s.listH.Delete)
	mux.HandleFunc("POST /api/lists/{id}/touch", s.listH.Touch)
	mux.HandleFunc("POST /api/lists/{id}/reset", s.itemH.Reset)

	// Section API routes
	mux.HandleFunc("GET /api/sections", s.sectionH.List)
	mux.HandleFunc("POST /api/sections", s.sectionH.Create)
	mux.HandleFunc("PUT /api/sections/reorder", s.sectionH.Reorder)
	mux.HandleFunc("PUT /api/sections/{id}", s.sectionH.Update)
	mux.HandleFunc("DELETE /api/sections/{id}", s.sectionH.Delete)

	// Item API routes
	mux.HandleFunc("GET /api/items", s.itemH.List)
	mux.HandleFunc("POST /api/items", s.itemH.Create)
	mux.HandleFunc("PUT /api/items/reorder", s.itemH.Reorder)
	mux.HandleFunc("POST /api/items/reassign", s.itemH.Reassign)
	mux.HandleFunc("PUT /api/items/{id}", s.itemH.Update)
	mux.HandleFunc("DELETE /api/items/{id}", s.itemH.Delete)

	// WebSocket change events
	mux.HandleFunc("GET /api/ws", ws.HandleWebSocket(s.hub))
}
