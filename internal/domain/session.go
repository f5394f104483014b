package domain

import "time"

// Session types stored under the "type" key of Session.Data.
const (
	SessionTypeLogin     = "login"
	SessionTypeMagicLink = "magic_link"
)

// Session is a login or confirmation session. Token is the only credential handed
// to the client; uniqueness is assumed, not enforced, by the stores.
type Session struct {
	Token     string         `json:"token" dynamodbav:"token"`
	UserID    string         `json:"user_id" dynamodbav:"user_id"`
	ExpiresAt time.Time      `json:"expires_at" dynamodbav:"-"`
	Data      map[string]any `json:"data,omitempty" dynamodbav:"data,omitempty"`
}

// Type returns the confirmation type recorded in the payload, or "".
func (s *Session) Type() string {
	if s == nil || s.Data == nil {
		return ""
	}
	t, _ := s.Data["type"].(string)
	return t
}

// Expired reports whether the session expired strictly before now.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
