// Package http exposes the ledger engine as a JSON API.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"cashplet/internal/app"
	"cashplet/internal/auth"
	"cashplet/internal/middleware/ratelimit"
	"cashplet/internal/middleware/security"
	"cashplet/internal/middleware/trace"
	"cashplet/internal/services"
	"cashplet/internal/store"
)

const requestTimeout = 30 * time.Second

type Server struct {
	httpServer *http.Server
	store      store.Store
	auth       *auth.Service
	publisher  services.EventPublisher
	limiter    *ratelimit.Limiter
	kv         app.KV

	unsubAuth func()

	mu           sync.Mutex
	coordinators map[string]*services.Coordinator
	appStates    map[string]app.State
}

// NewServer wires the API around a store, the session service, an
// optional event publisher, and the KV used to persist per-user UI state.
func NewServer(port string, st store.Store, authSvc *auth.Service, publisher services.EventPublisher, kv app.KV) *Server {
	if kv == nil {
		kv = app.NewMemKV()
	}
	s := &Server{
		store:        st,
		auth:         authSvc,
		publisher:    publisher,
		limiter:      ratelimit.NewLimiter(120),
		kv:           kv,
		coordinators: make(map[string]*services.Coordinator),
		appStates:    make(map[string]app.State),
	}

	s.httpServer = &http.Server{
		Addr:         ":" + port,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.unsubAuth = authSvc.OnAuthStateChange(s.onAuthStateChange)
	return s
}

// onAuthStateChange reloads the full ledger into the user's cached
// application state whenever a session opens. Sign-out keeps the cached
// state; the next sign-in overwrites it with a fresh load.
func (s *Server) onAuthStateChange(u *auth.User) {
	if u == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	sess, st := s.appSessionFor(*u)
	st, err := sess.Load(ctx, st)
	if err != nil {
		slog.Warn("Ledger reload on sign-in failed", "user_id", u.ID, "error", err)
		return
	}
	s.saveAppState(u.ID, st)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /api/auth/signout", s.handleSignOut)

	mux.HandleFunc("GET /api/ledger", s.withUser(s.handleLedger))

	mux.HandleFunc("POST /api/records", s.withUser(s.handleCreateRecord))
	mux.HandleFunc("PUT /api/records/{id}", s.withUser(s.handleUpdateRecord))
	mux.HandleFunc("DELETE /api/records/{id}", s.withUser(s.handleDeleteRecord))

	mux.HandleFunc("POST /api/accounts", s.withUser(s.handleCreateAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.withUser(s.handleDeleteAccount))

	mux.HandleFunc("POST /api/categories", s.withUser(s.handleCreateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.withUser(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/state", s.withUser(s.handleGetState))
	mux.HandleFunc("PUT /api/state", s.withUser(s.handlePutState))
	mux.HandleFunc("GET /api/dashboard", s.withUser(s.handleDashboard))

	mux.HandleFunc("GET /api/summary/range", s.withUser(s.handleRangeSummary))
	mux.HandleFunc("GET /api/summary/categories", s.withUser(s.handleCategorySpend))
	mux.HandleFunc("GET /api/summary/budget", s.withUser(s.handleBudgetGoals))
	mux.HandleFunc("GET /api/networth", s.withUser(s.handleNetWorth))

	var handler http.Handler = mux
	handler = s.limiter.Middleware(clientIP)(handler)
	handler = trace.Middleware(handler)
	handler = security.Headers(handler)
	return handler
}

// Start blocks serving requests until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.unsubAuth()
	s.limiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

// coordinatorFor returns the per-owner mutation coordinator, creating it
// on first use. Serializing mutations per owner keeps overlapping
// submissions from racing the balance updates.
func (s *Server) coordinatorFor(owner string) *services.Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coordinators[owner]
	if !ok {
		c = services.NewCoordinator(s.store, s.publisher)
		s.coordinators[owner] = c
	}
	return c
}

// withUser resolves the bearer token and rejects unauthenticated calls.
func (s *Server) withUser(next func(http.ResponseWriter, *http.Request, auth.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, ok := s.auth.Resolve(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		next(w, r.WithContext(ctx), user)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
