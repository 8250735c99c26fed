package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/qbbc/clubadmin/internal/handler"
	"github.com/qbbc/clubadmin/internal/middleware"
	"github.com/qbbc/clubadmin/internal/overlay"
	"github.com/qbbc/clubadmin/internal/store"
	ws "github.com/qbbc/clubadmin/internal/websocket"
)

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	memberStore  *store.MemberStore
	adminStore   *store.AdminAccountStore
	sessionStore *store.SessionStore
	memberH      *handler.MemberHandler
	adminH       *handler.AdminAccountHandler
	authH        *handler.AuthHandler
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	memberStore := store.NewMemberStore(db, logger.With("component", "member_store"))
	adminStore := store.NewAdminAccountStore(db, logger.With("component", "admin_store"))
	sessionStore := store.NewSessionStore(db)

	overlaySvc := overlay.NewService(memberStore, adminStore, hub, logger.With("component", "overlay"))

	return &Server{
		db:           db,
		hub:          hub,
		memberStore:  memberStore,
		adminStore:   adminStore,
		sessionStore: sessionStore,
		memberH:      handler.NewMemberHandler(memberStore, hub, logger.With("component", "member")),
		adminH:       handler.NewAdminAccountHandler(overlaySvc, sessionStore, logger.With("component", "admin_account")),
		authH:        handler.NewAuthHandler(overlaySvc, sessionStore, logger.With("component", "auth")),
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// MemberStore returns the member store for seeding.
func (s *Server) MemberStore() *store.MemberStore {
	return s.memberStore
}

// AdminAccountStore returns the admin account store for seeding.
func (s *Server) AdminAccountStore() *store.AdminAccountStore {
	return s.adminStore
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes behind the session gate
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	sessionMiddleware := middleware.RequireSession(s.sessionStore)
	outerMux.Handle("/", sessionMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)

	// Member roster
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("POST /api/members", s.memberH.Create)
	mux.HandleFunc("GET /api/members/export", s.memberH.Export)
	mux.HandleFunc("POST /api/members/import", s.memberH.Import)
	mux.HandleFunc("PUT /api/members/{id}", s.memberH.Update)
	mux.HandleFunc("DELETE /api/members/{id}", s.memberH.Delete)
	mux.HandleFunc("POST /api/members/{id}/status", s.memberH.SetStatus)
	mux.HandleFunc("POST /api/members/{id}/toggle/{field}", s.memberH.Toggle)

	// Dashboard
	mux.HandleFunc("GET /api/stats", s.memberH.Stats)

	// Admin account overlay, elevated roles only
	mux.Handle("GET /api/admin-accounts", middleware.RequireElevated(http.HandlerFunc(s.adminH.List)))
	mux.Handle("GET /api/admin-accounts/candidates", middleware.RequireElevated(http.HandlerFunc(s.adminH.Candidates)))
	mux.Handle("POST /api/admin-accounts/assign", middleware.RequireElevated(http.HandlerFunc(s.adminH.Assign)))
	mux.Handle("POST /api/admin-accounts/{id}/revoke", middleware.RequireElevated(http.HandlerFunc(s.adminH.Revoke)))
	mux.Handle("PUT /api/admin-accounts/{id}", middleware.RequireElevated(http.HandlerFunc(s.adminH.Update)))

	// Change broadcast channel
	mux.Handle("GET /ws", ws.Handle(s.hub, s.logger.With("component", "websocket")))
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
