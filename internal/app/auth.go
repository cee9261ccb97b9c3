package app

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tourguide/internal/domain"
)

const (
	maxUsernameLen = 15
	minPasswordLen = 6
)

type session struct {
	state         domain.AuthState
	identity      *domain.Identity
	pendingState  string // anti-forgery value while awaiting the callback
	consumedState string // last state value spent on a successful exchange
	createdAt     time.Time
}

// AuthService owns the per-session login state machine. Sessions are keyed by
// an opaque id minted at first contact; all state is in-memory and vanishes
// with the process. Credential durability, when wanted, comes from the
// CredentialStore adapter.
type AuthService struct {
	creds    domain.CredentialStore
	provider domain.IdentityProvider

	mu       sync.Mutex
	sessions map[string]*session
}

func NewAuthService(creds domain.CredentialStore, provider domain.IdentityProvider) *AuthService {
	return &AuthService{
		creds:    creds,
		provider: provider,
		sessions: make(map[string]*session),
	}
}

// NewSession mints a fresh unauthenticated session and returns its id.
func (s *AuthService) NewSession() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &session{state: domain.StateUnauthenticated, createdAt: time.Now()}
	s.mu.Unlock()
	return id
}

// Session reports the current state and identity for an id. An unknown id is
// simply unauthenticated.
func (s *AuthService) Session(id string) (domain.AuthState, *domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.StateUnauthenticated, nil
	}
	if sess.identity == nil {
		return sess.state, nil
	}
	ident := *sess.identity
	return sess.state, &ident
}

func (s *AuthService) get(id string) *session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{state: domain.StateUnauthenticated, createdAt: time.Now()}
		s.sessions[id] = sess
	}
	return sess
}

// Login checks (username, password) against the credential store. On success
// the session becomes Authenticated; on failure it is left untouched and
// ErrInvalidCredentials is returned.
func (s *AuthService) Login(ctx context.Context, sessionID, username, password string) error {
	hash, ok, err := s.creds.Get(ctx, username)
	if err != nil {
		return err
	}
	if !ok || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return domain.ErrInvalidCredentials
	}

	s.mu.Lock()
	sess := s.get(sessionID)
	sess.state = domain.StateAuthenticated
	sess.identity = &domain.Identity{Username: username, Name: username, Provider: "local"}
	sess.pendingState = ""
	s.mu.Unlock()
	return nil
}

// Register validates and stores a new local credential pair. Rules are checked
// in fixed priority order and the first violation short-circuits the rest. A
// successful registration does not authenticate the session; the caller still
// logs in.
func (s *AuthService) Register(ctx context.Context, username, password, confirm string) error {
	if !lowercaseLettersOnly(username) {
		return &domain.RegistrationError{Rule: domain.RuleUsernameCasing}
	}
	if len(username) > maxUsernameLen {
		return &domain.RegistrationError{Rule: domain.RuleUsernameLength}
	}
	if len(password) < minPasswordLen {
		return &domain.RegistrationError{Rule: domain.RulePasswordLength}
	}
	if !strings.ContainsAny(password, "0123456789") {
		return &domain.RegistrationError{Rule: domain.RulePasswordDigit}
	}
	if password != confirm {
		return &domain.RegistrationError{Rule: domain.RuleConfirmMismatch}
	}
	if _, exists, err := s.creds.Get(ctx, username); err != nil {
		return err
	} else if exists {
		return &domain.RegistrationError{Rule: domain.RuleDuplicateAccount}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.creds.Save(ctx, username, string(hash)); err != nil {
		return err
	}
	return nil
}

// SeedLocalUsers hashes and stores plaintext pairs from a seed file, skipping
// usernames that already exist.
func (s *AuthService) SeedLocalUsers(ctx context.Context, users map[string]string) error {
	for username, password := range users {
		if _, exists, err := s.creds.Get(ctx, username); err != nil {
			return err
		} else if exists {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		if err := s.creds.Save(ctx, username, string(hash)); err != nil {
			return err
		}
	}
	return nil
}

// BeginExternalLogin generates a fresh anti-forgery state value, records it on
// the session, and returns the provider's authorization URL.
func (s *AuthService) BeginExternalLogin(sessionID string) (string, error) {
	state, err := newStateToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	sess := s.get(sessionID)
	sess.state = domain.StateAwaitingCallback
	sess.pendingState = state
	sess.identity = nil
	s.mu.Unlock()
	return s.provider.AuthCodeURL(state), nil
}

// CompleteExternalLogin finishes the authorization-code flow. The returned
// state must match the value recorded by BeginExternalLogin; a mismatch never
// reaches the provider. The pending state is consumed before the exchange, so
// a replayed callback cannot re-enter the exchange path with the same state.
// Every failure lands the session back at Unauthenticated.
func (s *AuthService) CompleteExternalLogin(ctx context.Context, sessionID, code, returnedState string) (domain.Identity, error) {
	s.mu.Lock()
	sess := s.get(sessionID)

	if sess.state != domain.StateAwaitingCallback || sess.pendingState == "" {
		// A replay of an already-consumed callback is a spent code, not forgery.
		replay := returnedState != "" && returnedState == sess.consumedState
		s.reset(sess)
		s.mu.Unlock()
		if replay {
			return domain.Identity{}, &domain.ExternalAuthError{Cause: domain.ErrInvalidCredentials}
		}
		return domain.Identity{}, domain.ErrStateMismatch
	}

	if returnedState != sess.pendingState {
		s.reset(sess)
		s.mu.Unlock()
		return domain.Identity{}, domain.ErrStateMismatch
	}

	// Consume the state before touching the network.
	sess.pendingState = ""
	sess.consumedState = returnedState
	s.mu.Unlock()

	ident, err := s.provider.FetchIdentity(ctx, code)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.reset(sess)
		return domain.Identity{}, &domain.ExternalAuthError{Cause: err}
	}
	sess.state = domain.StateAuthenticated
	sess.identity = &ident
	return ident, nil
}

// Logout unconditionally resets the session, from any state.
func (s *AuthService) Logout(sessionID string) {
	s.mu.Lock()
	if sess, ok := s.sessions[sessionID]; ok {
		s.reset(sess)
		sess.consumedState = ""
	}
	s.mu.Unlock()
}

func (s *AuthService) reset(sess *session) {
	sess.state = domain.StateUnauthenticated
	sess.identity = nil
	sess.pendingState = ""
}

func lowercaseLettersOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func newStateToken() (string, error) {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
