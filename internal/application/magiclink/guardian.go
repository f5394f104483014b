// Package magiclink signs admins in with one-time codes delivered by email,
// SMS or phone call.
package magiclink

import (
	"context"
	"time"

	"github.com/go-admin-auth/internal/domain"
)

// LinkRequest asks for a magic code. Username is the email address or phone
// number for the method; it may be omitted when UserID or SessionToken already
// identify the user.
type LinkRequest struct {
	Username     string                `json:"username"`
	Method       domain.DeliveryMethod `json:"method"`
	UserID       string                `json:"userId,omitempty"`
	SessionToken string                `json:"sessionToken,omitempty"`
}

type LinkResult struct {
	MagicCodeSent   bool                  `json:"magicCodeSent"`
	UserID          string                `json:"userId"`
	Method          domain.DeliveryMethod `json:"method"`
	MagicAuthFormat string                `json:"magicAuthFormat"`
}

type CodeSubmission struct {
	UserID       string `json:"userId" validate:"required"`
	MagicCode    string `json:"magicCode" validate:"required,numeric"`
	SessionToken string `json:"sessionToken,omitempty"`
}

type LoginResult struct {
	Token        string    `json:"token"`
	SessionToken string    `json:"sessionToken"`
	UserID       string    `json:"userId"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Guardian is the authentication service the magic-link pages talk to. The
// built-in Service implements it locally; a remote guardian can be used instead.
type Guardian interface {
	RequestLoginLink(ctx context.Context, req LinkRequest) (*LinkResult, error)
	SubmitMagicCode(ctx context.Context, sub CodeSubmission) (*LoginResult, error)
}
