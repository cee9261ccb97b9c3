package httpserver

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs and verifies the session tokens handed out after login.
// The token only carries the session id; the authenticator's in-memory state
// stays authoritative, so logout invalidates a token immediately even though
// its signature is still good.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl}
}

type sessionClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

func (t *TokenIssuer) Issue(sessionID, username string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		SID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *TokenIssuer) Parse(token string) (sessionID string, err error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.SID == "" {
		return "", errors.New("invalid session token")
	}
	return claims.SID, nil
}
