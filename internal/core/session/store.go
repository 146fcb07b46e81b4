// Package session owns the staff session: restore at startup, login, logout
// and the auth state observed by the gate.
package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"colony-staff/internal/adapters/backend"
	"colony-staff/internal/adapters/storage"
	"colony-staff/internal/core/domain"
)

// Durable keys
const (
	KeyToken      = "token"
	KeyIsLoggedIn = "isLoggedIn"
)

// revokeTimeout bounds the best-effort server logout
const revokeTimeout = 3 * time.Second

// Authenticator performs the backend side of login and logout
type Authenticator interface {
	Login(ctx context.Context, loginField, password string) (*backend.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// Credentials are what the staff member types on the login screen
type Credentials struct {
	LoginField string
	Password   string
}

// LoginError is a failed login with the alert to show
type LoginError struct {
	Alert domain.Alert
	Err   error
}

func (e *LoginError) Error() string { return e.Alert.String() }
func (e *LoginError) Unwrap() error { return e.Err }

// Store is the single owner of the session record
type Store struct {
	kv   storage.KV
	auth Authenticator

	mu        sync.Mutex
	session   domain.Session
	ready     chan struct{}
	readyOnce sync.Once
	subs      map[int]chan domain.AuthState
	nextID    int
}

// NewStore creates an empty, not yet restored store
func NewStore(kv storage.KV, auth Authenticator) *Store {
	return &Store{
		kv:    kv,
		auth:  auth,
		ready: make(chan struct{}),
		subs:  make(map[int]chan domain.AuthState),
	}
}

// Restore re-hydrates the session from durable storage. A read failure leaves
// the session unauthenticated; the error is returned for logging.
func (s *Store) Restore(ctx context.Context) error {
	token, flag, err := s.readPersisted(ctx)

	s.mu.Lock()
	if err == nil && token != "" && flag == "true" {
		s.session = domain.Session{Token: token, IsLoggedIn: true}
	}
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) })

	s.mu.Lock()
	s.publish()
	s.mu.Unlock()

	if err != nil {
		log.Printf("⚠️ Session restore failed, starting logged out: %v", err)
		return err
	}
	if s.State().Status == domain.StatusAuthenticated {
		log.Println("✅ Session restored")
	}
	return nil
}

func (s *Store) readPersisted(ctx context.Context) (string, string, error) {
	token, _, err := s.kv.Get(ctx, KeyToken)
	if err != nil {
		return "", "", err
	}
	flag, _, err := s.kv.Get(ctx, KeyIsLoggedIn)
	if err != nil {
		return "", "", err
	}
	return token, flag, nil
}

// Ready is closed once Restore has completed
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// State returns Pending until restore completes, then the tagged auth state
func (s *Store) State() domain.AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() domain.AuthState {
	select {
	case <-s.ready:
	default:
		return domain.AuthState{Status: domain.StatusPending}
	}
	if s.session.Valid() {
		return domain.Authenticated(s.session.Token)
	}
	return domain.Unauthenticated()
}

// Session returns a copy of the session record
func (s *Store) Session() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.session
	if out.StaffInfo != nil {
		staff := *out.StaffInfo
		out.StaffInfo = &staff
	}
	return out
}

// Token returns the bearer token, empty when logged out
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.Valid() {
		return ""
	}
	return s.session.Token
}

// Login authenticates against the backend. On failure the session is untouched
// and a *LoginError carries the alert.
func (s *Store) Login(ctx context.Context, creds Credentials) error {
	// 1. Authenticate
	res, err := s.auth.Login(ctx, strings.TrimSpace(creds.LoginField), creds.Password)
	if err != nil {
		return loginFailed(err)
	}

	// 2. Set session
	s.mu.Lock()
	s.session = domain.Session{Token: res.Token, IsLoggedIn: true, StaffInfo: res.Staff}
	s.readyOnce.Do(func() { close(s.ready) })
	s.publish()
	s.mu.Unlock()

	// 3. Persist token and flag together; the session stays usable if this fails
	if err := s.kv.SetMany(ctx, map[string]string{
		KeyToken:      res.Token,
		KeyIsLoggedIn: "true",
	}); err != nil {
		log.Printf("⚠️ Session not persisted, it will not survive a restart: %v", err)
	}

	log.Printf("✅ Staff logged in: %s", creds.LoginField)
	return nil
}

func loginFailed(err error) *LoginError {
	alert := domain.Alert{Title: "Login Failed", Message: "Check your ID and password"}
	if apiErr, ok := backend.AsAPIError(err); ok && apiErr.Message != "" {
		alert.Message = apiErr.Message
	}
	return &LoginError{Alert: alert, Err: err}
}

// Logout resets the whole session, removes both durable keys in one call and
// revokes the token on the server on a best-effort basis
func (s *Store) Logout(ctx context.Context) error {
	// 1. Reset in memory
	s.mu.Lock()
	token := s.session.Token
	wasAuthenticated := s.session.Valid()
	s.session = domain.Session{}
	if wasAuthenticated {
		s.publish()
	}
	s.mu.Unlock()

	// 2. Remove persisted session
	err := s.kv.Delete(ctx, KeyToken, KeyIsLoggedIn)
	if err != nil {
		log.Printf("❌ Failed to clear stored session: %v", err)
	}

	// 3. Revoke on the server; never blocks the local logout
	if token != "" && s.auth != nil {
		revokeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revokeTimeout)
		defer cancel()
		if rerr := s.auth.Logout(revokeCtx, token); rerr != nil && !errors.Is(rerr, context.Canceled) {
			log.Printf("⚠️ Server logout failed: %v", rerr)
		}
	}

	log.Println("✅ Staff logged out")
	return err
}

// Subscribe delivers the current auth state and every later change.
// Slow readers only see the latest state. Call the returned func to unsubscribe.
func (s *Store) Subscribe() (<-chan domain.AuthState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan domain.AuthState, 1)
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.stateLocked()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

// publish must be called with mu held
func (s *Store) publish() {
	state := s.stateLocked()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- state
	}
}
