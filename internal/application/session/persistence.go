package session

import (
	"context"
	"time"

	"github.com/go-admin-auth/internal/domain"
)

// Precision is the expiry resolution every backend keeps. DynamoDB stores
// expiry in milliseconds, so NewSession rounds expiresAt down to Precision and
// GetSession returns the rounded value.
const Precision = time.Millisecond

// Persistence is the session storage contract shared by every backend.
//
// Lookups that find nothing return an error wrapping domain.ErrNotFound.
// Deletes of absent tokens or users are not errors.
type Persistence interface {
	// NewSession stores a session and returns its token. A non-empty string
	// under data["token"] is used as the token and is not stored in the payload;
	// otherwise a random token is generated.
	NewSession(ctx context.Context, userID string, expiresAt time.Time, data map[string]any) (string, error)
	// GetSession returns the session for token whether or not it has expired.
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteAllSessionsForUser(ctx context.Context, userID string) error
	// CleanExpiredTokens removes sessions whose expiry is strictly before now
	// and reports how many were removed.
	CleanExpiredTokens(ctx context.Context) (int, error)
	// GetConfirmationSessionByUserID returns the first unexpired session of the
	// user whose payload type equals sessionType.
	GetConfirmationSessionByUserID(ctx context.Context, userID, sessionType string) (*domain.Session, error)
}

// SplitToken extracts the caller-supplied token from data. The returned payload
// is a copy without the "token" key, or nil when nothing remains.
func SplitToken(data map[string]any) (token string, payload map[string]any) {
	if len(data) == 0 {
		return "", nil
	}
	payload = make(map[string]any, len(data))
	for k, v := range data {
		if k == "token" {
			if s, ok := v.(string); ok {
				token = s
			}
			continue
		}
		payload[k] = v
	}
	if len(payload) == 0 {
		payload = nil
	}
	return token, payload
}

// IsConfirmation reports whether s belongs to userID, carries sessionType and
// has not expired at now.
func IsConfirmation(s *domain.Session, userID, sessionType string, now time.Time) bool {
	t := s.Type()
	return s.UserID == userID && t != "" && t == sessionType && !s.Expired(now)
}
