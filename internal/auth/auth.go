// Package auth implements the session capability of the external store:
// email/password registration, sign-in, and an auth-state subscription
// stream the application uses to trigger data loads.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"cashplet/internal/cache"
	"cashplet/internal/store"
)

const (
	minPasswordLength = 6
	sessionTTL        = 12 * time.Hour
	maxSessions       = 1024
)

// User-facing messages for the common sign-up failures. Anything else
// surfaces as a plain store error.
const (
	MsgEmailInUse         = "This email is already in use. Try logging in instead."
	MsgWeakPassword       = "Password is too weak. It must be at least 6 characters."
	MsgInvalidCredentials = "Invalid login credentials."
)

// User is the authenticated identity owning a ledger.
type User struct {
	ID    string
	Email string
}

// Session pairs a user with the bearer token minted at sign-in.
type Session struct {
	User  User
	Token string
}

// Error carries a friendly message alongside the underlying cause.
type Error struct {
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.cause }

// Service owns session tokens and the auth-state listener registry.
type Service struct {
	users    store.UserStore
	sessions *cache.TTLCache[User]

	mu        sync.Mutex
	current   *User
	token     string
	listeners map[int]func(*User)
	nextID    int
}

func NewService(users store.UserStore) *Service {
	return &Service{
		users:     users,
		sessions:  cache.NewTTL[User](maxSessions, sessionTTL),
		listeners: make(map[int]func(*User)),
	}
}

// SignUp registers a new user and opens a session immediately, matching
// the store's auto-login behavior.
func (s *Service) SignUp(ctx context.Context, email, password string) (*Session, error) {
	if len(password) < minPasswordLength {
		return nil, &Error{Message: MsgWeakPassword}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.users.CreateUser(ctx, email, string(hash))
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, &Error{Message: MsgEmailInUse, cause: err}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", id)
	return s.open(User{ID: id, Email: email}), nil
}

// SignIn opens a session for an existing user. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	id, hash, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &Error{Message: MsgInvalidCredentials, cause: err}
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, &Error{Message: MsgInvalidCredentials, cause: err}
	}

	slog.InfoContext(ctx, "User signed in", "user_id", id)
	return s.open(User{ID: id, Email: email}), nil
}

// SignOut closes the current session. The auth listeners observe the
// transition to nil.
func (s *Service) SignOut() {
	s.mu.Lock()
	if s.token != "" {
		s.sessions.Delete(s.token)
	}
	s.token = ""
	s.current = nil
	fns := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(nil)
	}
}

// GetSession returns the current user, or nil when signed out.
func (s *Service) GetSession() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	u := *s.current
	return &u
}

// Token returns the bearer token of the current session.
func (s *Service) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Resolve maps a bearer token to its user; used by the HTTP layer.
func (s *Service) Resolve(token string) (User, bool) {
	return s.sessions.Get(token)
}

// Revoke invalidates one bearer token. When it belongs to the current
// session the auth listeners observe a sign-out.
func (s *Service) Revoke(token string) {
	s.sessions.Delete(token)

	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		return
	}
	s.token = ""
	s.current = nil
	fns := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(nil)
	}
}

// OnAuthStateChange registers a listener that fires immediately with the
// current state and again on every transition. The returned function
// unsubscribes it.
func (s *Service) OnAuthStateChange(fn func(*User)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	current := s.current
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) open(u User) *Session {
	token := newToken()
	s.sessions.Set(token, u)

	s.mu.Lock()
	s.token = token
	s.current = &u
	fns := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(&u)
	}
	return &Session{User: u, Token: token}
}

func (s *Service) snapshotListeners() []func(*User) {
	fns := make([]func(*User), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func newToken() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("session token: %v", err))
	}
	return hex.EncodeToString(b)
}
