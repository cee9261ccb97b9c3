package app_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"tourguide/internal/app"
	"tourguide/internal/domain"
	"tourguide/internal/storage/memory"
)

// fakeProvider records the state handed to AuthCodeURL and tracks consumed
// codes, rejecting a code on its second exchange the way a real provider does.
type fakeProvider struct {
	lastState string
	consumed  map[string]bool
	failWith  error
	identity  domain.Identity
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		consumed: map[string]bool{},
		identity: domain.Identity{Username: "jane@example.com", Name: "Jane", Email: "jane@example.com", Provider: "google"},
	}
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	p.lastState = state
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) FetchIdentity(ctx context.Context, code string) (domain.Identity, error) {
	if p.failWith != nil {
		return domain.Identity{}, p.failWith
	}
	if p.consumed[code] {
		return domain.Identity{}, errors.New("invalid_grant: code already redeemed")
	}
	p.consumed[code] = true
	return p.identity, nil
}

func newAuthService(t *testing.T) (*app.AuthService, *fakeProvider) {
	t.Helper()
	p := newFakeProvider()
	return app.NewAuthService(memory.New(), p), p
}

// ---- registration rules ----

func TestRegister_RuleOrder(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	cases := []struct {
		name                        string
		username, password, confirm string
		rule                        domain.RegistrationRule
	}{
		{"digits in username", "abc123", "pass1234", "pass1234", domain.RuleUsernameCasing},
		{"uppercase in username", "Abc", "pass1234", "pass1234", domain.RuleUsernameCasing},
		{"username too long", "thisusernameiswaytoolong", "pass1234", "pass1234", domain.RuleUsernameLength},
		{"password too short", "abc", "a1", "a1", domain.RulePasswordLength},
		{"password without digit", "abc", "abcdef", "abcdef", domain.RulePasswordDigit},
		{"confirmation mismatch", "abc", "abc123", "abc124", domain.RuleConfirmMismatch},
		// casing outranks length: both violated, casing wins
		{"casing checked before length", "ThisUsernameIsWayTooLong", "x", "y", domain.RuleUsernameCasing},
	}
	for _, tc := range cases {
		err := svc.Register(ctx, tc.username, tc.password, tc.confirm)
		var rej *domain.RegistrationError
		if !errors.As(err, &rej) {
			t.Fatalf("%s: expected RegistrationError, got %v", tc.name, err)
		}
		if rej.Rule != tc.rule {
			t.Fatalf("%s: got rule %q, want %q", tc.name, rej.Rule, tc.rule)
		}
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	if err := svc.Register(ctx, "abc", "abc123", "abc123"); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	err := svc.Register(ctx, "abc", "other9", "other9")
	var rej *domain.RegistrationError
	if !errors.As(err, &rej) || rej.Rule != domain.RuleDuplicateAccount {
		t.Fatalf("expected duplicate-account rejection, got %v", err)
	}
}

func TestRegister_DoesNotAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)
	sid := svc.NewSession()

	if err := svc.Register(ctx, "abc", "abc123", "abc123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if state, _ := svc.Session(sid); state != domain.StateUnauthenticated {
		t.Fatalf("registration must not authenticate, state = %v", state)
	}
}

// ---- local login ----

func TestLogin_RegisteredPair(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)
	sid := svc.NewSession()

	if err := svc.Register(ctx, "abc", "abc123", "abc123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Login(ctx, sid, "abc", "abc123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	state, ident := svc.Session(sid)
	if state != domain.StateAuthenticated || ident == nil || ident.Username != "abc" || ident.Provider != "local" {
		t.Fatalf("unexpected session: state=%v ident=%+v", state, ident)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)
	sid := svc.NewSession()

	if err := svc.Register(ctx, "abc", "abc123", "abc123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Login(ctx, sid, "abc", "wrong99"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if state, ident := svc.Session(sid); state != domain.StateUnauthenticated || ident != nil {
		t.Fatalf("failed login must leave session unauthenticated, state=%v", state)
	}
}

func TestSeedLocalUsers_SkipsExisting(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)
	sid := svc.NewSession()

	if err := svc.Register(ctx, "gopal", "first1", "first1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.SeedLocalUsers(ctx, map[string]string{"gopal": "seeded9", "sita": "himal7"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// existing account keeps its original password
	if err := svc.Login(ctx, sid, "gopal", "first1"); err != nil {
		t.Fatalf("original password should still work: %v", err)
	}
	if err := svc.Login(ctx, sid, "sita", "himal7"); err != nil {
		t.Fatalf("seeded user login: %v", err)
	}
}

// ---- external login ----

func TestExternalLogin_HappyPath(t *testing.T) {
	ctx := context.Background()
	svc, prov := newAuthService(t)
	sid := svc.NewSession()

	authURL, err := svc.BeginExternalLogin(sid)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if prov.lastState == "" || !strings.Contains(authURL, prov.lastState) {
		t.Fatalf("auth URL %q must carry the state token %q", authURL, prov.lastState)
	}
	if state, _ := svc.Session(sid); state != domain.StateAwaitingCallback {
		t.Fatalf("expected awaiting-callback state, got %v", state)
	}

	ident, err := svc.CompleteExternalLogin(ctx, sid, "code-1", prov.lastState)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if ident.Email != "jane@example.com" {
		t.Fatalf("unexpected identity: %+v", ident)
	}
	if state, _ := svc.Session(sid); state != domain.StateAuthenticated {
		t.Fatalf("expected authenticated, got %v", state)
	}
}

func TestExternalLogin_StateMismatch(t *testing.T) {
	ctx := context.Background()
	svc, prov := newAuthService(t)
	sid := svc.NewSession()

	if _, err := svc.BeginExternalLogin(sid); err != nil {
		t.Fatalf("begin: %v", err)
	}
	_, err := svc.CompleteExternalLogin(ctx, sid, "code-1", "forged-state")
	if !errors.Is(err, domain.ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch, got %v", err)
	}
	if state, _ := svc.Session(sid); state != domain.StateUnauthenticated {
		t.Fatalf("mismatch must reset session, got %v", state)
	}
	// the provider was never asked to redeem the code
	if prov.consumed["code-1"] {
		t.Fatalf("code must not reach the provider on state mismatch")
	}
}

func TestExternalLogin_CallbackWithoutBegin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)
	sid := svc.NewSession()

	_, err := svc.CompleteExternalLogin(ctx, sid, "code-1", "whatever")
	if !errors.Is(err, domain.ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch, got %v", err)
	}
}

func TestExternalLogin_CodeReplay(t *testing.T) {
	ctx := context.Background()
	svc, prov := newAuthService(t)
	sid := svc.NewSession()

	if _, err := svc.BeginExternalLogin(sid); err != nil {
		t.Fatalf("begin: %v", err)
	}
	state := prov.lastState
	if _, err := svc.CompleteExternalLogin(ctx, sid, "code-1", state); err != nil {
		t.Fatalf("first complete: %v", err)
	}

	// replaying the same callback must fail as a spent code, not crash
	_, err := svc.CompleteExternalLogin(ctx, sid, "code-1", state)
	var ext *domain.ExternalAuthError
	if !errors.As(err, &ext) {
		t.Fatalf("expected ExternalAuthError on replay, got %v", err)
	}
	if st, _ := svc.Session(sid); st != domain.StateUnauthenticated {
		t.Fatalf("replay must land at unauthenticated, got %v", st)
	}
}

func TestExternalLogin_ProviderFailure(t *testing.T) {
	ctx := context.Background()
	svc, prov := newAuthService(t)
	sid := svc.NewSession()

	if _, err := svc.BeginExternalLogin(sid); err != nil {
		t.Fatalf("begin: %v", err)
	}
	cause := errors.New("token endpoint timeout")
	prov.failWith = cause

	_, err := svc.CompleteExternalLogin(ctx, sid, "code-1", prov.lastState)
	var ext *domain.ExternalAuthError
	if !errors.As(err, &ext) {
		t.Fatalf("expected ExternalAuthError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("wrapped error must carry the cause, got %v", err)
	}
	if state, _ := svc.Session(sid); state != domain.StateUnauthenticated {
		t.Fatalf("provider failure must reset session, got %v", state)
	}
}

// ---- logout ----

func TestLogout_FromAnyState(t *testing.T) {
	ctx := context.Background()
	svc, prov := newAuthService(t)

	// from Authenticated
	sid := svc.NewSession()
	if err := svc.Register(ctx, "abc", "abc123", "abc123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Login(ctx, sid, "abc", "abc123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	svc.Logout(sid)
	if state, ident := svc.Session(sid); state != domain.StateUnauthenticated || ident != nil {
		t.Fatalf("logout from authenticated: state=%v ident=%+v", state, ident)
	}

	// from AwaitingExternalCallback
	sid2 := svc.NewSession()
	if _, err := svc.BeginExternalLogin(sid2); err != nil {
		t.Fatalf("begin: %v", err)
	}
	svc.Logout(sid2)
	if state, _ := svc.Session(sid2); state != domain.StateUnauthenticated {
		t.Fatalf("logout from awaiting-callback: state=%v", state)
	}
	// the pending handshake is gone: the old state token is now a mismatch
	if _, err := svc.CompleteExternalLogin(ctx, sid2, "code-1", prov.lastState); !errors.Is(err, domain.ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch after logout, got %v", err)
	}
}
