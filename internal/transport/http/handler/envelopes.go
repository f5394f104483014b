package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-admin-auth/internal/application/magiclink"
	"github.com/go-admin-auth/internal/domain"
	"github.com/go-admin-auth/internal/infrastructure/guardian"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// AuthEnvelope wraps a completed magic-code login.
type AuthEnvelope struct {
	Bearer  string       `json:"Bearer,omitempty"`
	Session *SafeSession `json:"session,omitempty"`
}

// SessionEnvelope wraps current-session responses.
type SessionEnvelope struct {
	Session *SafeSession `json:"session,omitempty"`
}

// SafeSession is the client view of a session. The payload is never exposed
// since confirmation sessions carry code hashes.
type SafeSession struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toSafeSession(s *domain.Session) *SafeSession {
	if s == nil {
		return nil
	}
	return &SafeSession{Token: s.Token, UserID: s.UserID, Type: s.Type(), ExpiresAt: s.ExpiresAt}
}

func loginSession(res *magiclink.LoginResult) *SafeSession {
	return &SafeSession{
		Token:     res.SessionToken,
		UserID:    res.UserID,
		Type:      domain.SessionTypeLogin,
		ExpiresAt: res.ExpiresAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}

// httpError maps domain sentinels onto status codes. Unknown errors are logged
// and reported as 500 without their message.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case guardian.IsNetworkError(err):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
