package http

import (
	"log/slog"

	"github.com/go-admin-auth/internal/application/magiclink"
	"github.com/go-admin-auth/internal/application/session"
	jwtinfra "github.com/go-admin-auth/internal/infrastructure/jwt"
)

// TokenVerifier is the minimal interface the router requires to check bearers.
type TokenVerifier interface {
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

// Deps holds the application services behind the router.
type Deps struct {
	// Guardian is the built-in magiclink.Service or a remote guardian client.
	Guardian magiclink.Guardian
	Sessions session.Service
	Verifier TokenVerifier
	Logger   *slog.Logger
}
