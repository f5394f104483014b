package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-admin-auth/internal/domain"
	jwtinfra "github.com/go-admin-auth/internal/infrastructure/jwt"
)

// TokenCookieName carries the bearer for browser sessions started by the
// magic-link pages.
const TokenCookieName = "xauth_token"

type contextKey string

const (
	ClaimsKey  contextKey = "claims"
	SessionKey contextKey = "session"
)

type tokenVerifier interface {
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

type sessionReader interface {
	Current(ctx context.Context, token string) (*domain.Session, error)
}

// Auth validates the bearer JWT and then the session it carries, so a logged-out
// session is rejected even while its JWT is still valid. The bearer is taken
// from the Authorization header, else from the token cookie.
func Auth(verifier tokenVerifier, sessions sessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearer(r)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			claims, err := verifier.Verify(tokenStr)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			sess, err := sessions.Current(r.Context(), claims.SessionToken)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					writeJSONError(w, http.StatusUnauthorized, "session expired")
					return
				}
				writeJSONError(w, http.StatusInternalServerError, "session lookup failed")
				return
			}
			if sess.UserID != claims.UserID {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			ctx = context.WithValue(ctx, SessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		tok, ok := strings.CutPrefix(h, "Bearer ")
		return tok, ok && tok != ""
	}
	if c, err := r.Cookie(TokenCookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*jwtinfra.Claims)
	return c, ok
}

// SessionFromContext returns the session validated by Auth.
func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(SessionKey).(*domain.Session)
	return s, ok
}
