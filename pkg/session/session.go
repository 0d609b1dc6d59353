// Package session exposes the current user's identity to queries and
// mutations. Sessions are issued elsewhere; this package only reads the
// access token's claims and gates identity-bound work on them.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/alumni-portal-client/pkg/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// ErrInvalidToken is returned for access tokens whose claims cannot be read.
var ErrInvalidToken = errors.New("invalid access token")

// Session is the identity of the current user.
type Session struct {
	UserID      int64
	Username    string
	Email       string
	Roles       []string
	AccessToken string
	ExpiresAt   time.Time
}

// Authenticated reports whether s carries a usable, unexpired token.
// It is safe to call on a nil session.
func (s *Session) Authenticated() bool {
	return s.AuthenticatedAt(time.Now())
}

// AuthenticatedAt is Authenticated evaluated at now.
func (s *Session) AuthenticatedAt(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// Token returns the access token, or "" for a nil session.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	return s.AccessToken
}

// CacheScope identifies the session in cache keys. It is derived from the
// access token rather than the unverified user_id claim, so a token that
// claims another user's id lands in a different scope. Anonymous sessions
// return "".
func (s *Session) CacheScope() string {
	if s == nil || s.AccessToken == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s.AccessToken))
	return hex.EncodeToString(sum[:16])
}

// HasRole reports whether the session has role.
func (s *Session) HasRole(role string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// MarshalZerologObject logs the session without exposing the token.
func (s *Session) MarshalZerologObject(e *zerolog.Event) {
	if s == nil {
		e.Bool("authenticated", false)
		return
	}
	e.Int64("user_id", s.UserID).
		Bool("authenticated", s.Authenticated()).
		Str("token", logging.Redact(s.AccessToken))
}

// Enabled is the Enabled flag for queries that need an identity.
func Enabled(s *Session) bool {
	return s.Authenticated()
}

// FromAccessToken builds a session from a JWT access token. The signature
// is not verified: the backend verifies it on every request, the client
// only needs the identity claims.
func FromAccessToken(token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sess := &Session{AccessToken: token}

	if uid, ok := claims["user_id"]; ok {
		id, err := toInt64(uid)
		if err != nil {
			return nil, fmt.Errorf("%w: user_id: %v", ErrInvalidToken, err)
		}
		sess.UserID = id
	} else if sub, err := claims.GetSubject(); err == nil && sub != "" {
		id, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: sub: %v", ErrInvalidToken, err)
		}
		sess.UserID = id
	}

	sess.Username, _ = claims["username"].(string)
	sess.Email, _ = claims["email"].(string)

	if roles, ok := claims["roles"].([]any); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				sess.Roles = append(sess.Roles, s)
			}
		}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: exp: %v", ErrInvalidToken, err)
	}
	if exp != nil {
		sess.ExpiresAt = exp.Time
	}

	return sess, nil
}

// FromAuthorizationHeader parses "Bearer <token>". An empty header yields
// a nil session (anonymous) and no error.
func FromAuthorizationHeader(header string) (*Session, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return nil, fmt.Errorf("%w: expected bearer authorization", ErrInvalidToken)
	}
	return FromAccessToken(token)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
