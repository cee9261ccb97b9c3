package domain

import "context"

// CredentialStore holds local (username, password-hash) pairs. The default
// adapter is in-memory; a SQL adapter provides durability when configured.
type CredentialStore interface {
	Save(ctx context.Context, username, passwordHash string) error
	Get(ctx context.Context, username string) (hash string, ok bool, err error)
}

// IdentityProvider is the external OAuth2 collaborator. AuthCodeURL builds the
// authorization redirect for a given anti-forgery state value; FetchIdentity
// exchanges the callback code for a token and resolves the user's profile.
// FetchIdentity performs network I/O and must be treated as fallible; it is
// never retried automatically.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	FetchIdentity(ctx context.Context, code string) (Identity, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
