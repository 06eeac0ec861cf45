// Package session owns the authenticated identity: who is logged in, their
// role, and the bearer credential. It is the single writer of the persisted
// credential; every other component only reads it through TokenSource.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/canteenhq/canteen-go/api"
	"github.com/canteenhq/canteen-go/core"
)

// Persisted state keys. The flag mirrors the identity/token pair so a
// half-written state (token without identity) is detectable on restore.
const (
	keyAuthenticated = "auth:flag"
	keyIdentity      = "auth:identity"
	keyToken         = "auth:token"
)

// State is the session lifecycle state. The store starts Unknown, settles
// into Authenticated or Anonymous on restore/login, and never returns to
// Unknown afterwards.
type State int

const (
	StateUnknown State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// AuthAPI is the slice of the backend client the session store uses.
type AuthAPI interface {
	AdminLogin(ctx context.Context, creds api.Credentials) (core.Identity, string, error)
	AdminMe(ctx context.Context) (core.Identity, error)
	StudentLogin(ctx context.Context, req api.StudentLoginRequest) (core.Identity, string, error)
}

// Store is the session store.
type Store struct {
	backend AuthAPI
	storage core.Storage
	logger  core.Logger

	mu       sync.RWMutex
	state    State
	identity core.Identity
	token    string

	onLogout func()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLogoutHook registers the navigation side effect fired whenever the
// session transitions to anonymous (explicit logout or rejected credential).
func WithLogoutHook(fn func()) Option {
	return func(s *Store) { s.onLogout = fn }
}

// New creates a session store in the Unknown state. Call Restore to settle
// it before serving reads.
func New(backend AuthAPI, storage core.Storage, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		storage: storage,
		logger:  &core.NoOpLogger{},
		state:   StateUnknown,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TokenSource exposes the bearer credential for the API client.
func (s *Store) TokenSource() api.TokenSource {
	return func() string {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.token
	}
}

// Token returns the current bearer credential, "" when anonymous.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsAuthenticated reports whether an identity is active.
func (s *Store) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

// Identity returns the active identity, if any.
func (s *Store) Identity() (core.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateAuthenticated {
		return core.Identity{}, false
	}
	return s.identity, true
}

// Role returns the active role, or "" when anonymous.
func (s *Store) Role() core.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateAuthenticated {
		return ""
	}
	return s.identity.Role
}

// Login authenticates an admin or staff member. On failure the prior
// session state is left untouched.
func (s *Store) Login(ctx context.Context, username, password string) (core.Identity, error) {
	identity, token, err := s.backend.AdminLogin(ctx, api.Credentials{Username: username, Password: password})
	if err != nil {
		return core.Identity{}, err
	}
	if err := s.AdoptIdentity(ctx, identity, token); err != nil {
		return core.Identity{}, err
	}
	return identity, nil
}

// LoginStudent authenticates a returning student.
func (s *Store) LoginStudent(ctx context.Context, registrationNo, password string) (core.Identity, error) {
	identity, token, err := s.backend.StudentLogin(ctx, api.StudentLoginRequest{
		RegistrationNo: registrationNo,
		Password:       password,
	})
	if err != nil {
		return core.Identity{}, err
	}
	identity.Role = core.RoleStudent
	if err := s.AdoptIdentity(ctx, identity, token); err != nil {
		return core.Identity{}, err
	}
	return identity, nil
}

// AdoptIdentity commits an identity obtained through a side-channel login
// flow (student OTP verification, admin login). It refuses partial
// identities rather than silently storing them.
func (s *Store) AdoptIdentity(ctx context.Context, identity core.Identity, token string) error {
	if identity.ID == "" || !identity.Role.Valid() || token == "" {
		return &core.ClientError{
			Op:      "session.AdoptIdentity",
			Kind:    "auth",
			Message: "Login did not return a complete identity.",
			Err:     core.ErrMissingCredential,
		}
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	s.identity = identity
	s.token = token
	s.mu.Unlock()

	s.persist(ctx, identity, token)

	s.logger.Info("Session established", map[string]interface{}{
		"operation": "session_login",
		"user_id":   identity.ID,
		"role":      string(identity.Role),
	})
	return nil
}

// Logout clears the identity and persisted credential and fires the
// navigation hook. Idempotent: logging out while anonymous is a no-op.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	wasAuthenticated := s.state == StateAuthenticated
	s.state = StateAnonymous
	s.identity = core.Identity{}
	s.token = ""
	s.mu.Unlock()

	s.clearPersisted(ctx)

	if !wasAuthenticated {
		return
	}
	s.logger.Info("Session ended", map[string]interface{}{
		"operation": "session_logout",
	})
	if s.onLogout != nil {
		s.onLogout()
	}
}

// HandleUnauthorized is wired into the API client's unauthorized hook: a
// rejected credential mid-session forces a logout. The anonymous check is
// the redirect-loop guard - a 401 on a login attempt or after logout must
// not trigger another logout round.
func (s *Store) HandleUnauthorized() {
	if s.State() != StateAuthenticated {
		return
	}
	s.logger.Warn("Credential rejected by backend, ending session", map[string]interface{}{
		"operation": "session_expired",
	})
	s.Logout(context.Background())
}

// Restore reconstructs the session from persisted state at process start.
// A cached identity restores without a network call; a bare token falls
// back to a validation call; anything else (including corrupt state)
// settles as anonymous.
func (s *Store) Restore(ctx context.Context) State {
	flag, _ := s.storage.Get(ctx, keyAuthenticated)
	identityJSON, _ := s.storage.Get(ctx, keyIdentity)
	token, _ := s.storage.Get(ctx, keyToken)

	if flag == "true" && identityJSON != "" && token != "" {
		var identity core.Identity
		if err := json.Unmarshal([]byte(identityJSON), &identity); err == nil &&
			identity.ID != "" && identity.Role.Valid() {
			s.mu.Lock()
			s.state = StateAuthenticated
			s.identity = identity
			s.token = token
			s.mu.Unlock()
			s.logger.Info("Session restored from persisted identity", map[string]interface{}{
				"operation": "session_restore",
				"user_id":   identity.ID,
				"role":      string(identity.Role),
			})
			return StateAuthenticated
		}
		// Corrupt identity record: discard it and try the token path.
		s.logger.Warn("Discarding unparseable persisted identity", map[string]interface{}{
			"operation": "session_restore",
		})
		_ = s.storage.Delete(ctx, keyIdentity)
		_ = s.storage.Delete(ctx, keyAuthenticated)
	}

	if token != "" {
		s.mu.Lock()
		s.token = token
		s.mu.Unlock()

		identity, err := s.backend.AdminMe(ctx)
		if err == nil && identity.ID != "" {
			if adoptErr := s.AdoptIdentity(ctx, identity, token); adoptErr == nil {
				return StateAuthenticated
			}
		}
		s.logger.Warn("Persisted token failed validation", map[string]interface{}{
			"operation": "session_restore",
		})
	}

	s.mu.Lock()
	s.state = StateAnonymous
	s.identity = core.Identity{}
	s.token = ""
	s.mu.Unlock()
	s.clearPersisted(ctx)
	return StateAnonymous
}

// persistence; failures are logged and never block the in-memory session

func (s *Store) persist(ctx context.Context, identity core.Identity, token string) {
	data, err := json.Marshal(identity)
	if err == nil {
		err = s.storage.Set(ctx, keyIdentity, string(data), 0)
	}
	if err == nil {
		err = s.storage.Set(ctx, keyToken, token, 0)
	}
	if err == nil {
		err = s.storage.Set(ctx, keyAuthenticated, "true", 0)
	}
	if err != nil {
		s.logger.Error("Failed to persist session", map[string]interface{}{
			"operation": "session_persist",
			"error":     err.Error(),
		})
	}
}

func (s *Store) clearPersisted(ctx context.Context) {
	for _, key := range []string{keyAuthenticated, keyIdentity, keyToken} {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Error("Failed to clear persisted session", map[string]interface{}{
				"operation": "session_persist",
				"key":       key,
				"error":     err.Error(),
			})
		}
	}
}
