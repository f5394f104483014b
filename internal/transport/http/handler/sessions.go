package handler

import (
	"net/http"

	"github.com/go-admin-auth/internal/application/session"
	"github.com/go-admin-auth/internal/transport/http/middleware"
)

// SessionHandler handles session endpoints. Every route sits behind middleware.Auth.
type SessionHandler struct {
	svc session.Service
}

func NewSessionHandler(svc session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{Session: toSafeSession(sess)})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Logout(r.Context(), sess.Token); err != nil {
		httpError(w, err)
		return
	}
	clearTokenCookie(w)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}

func (h *SessionHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.LogoutAll(r.Context(), sess.UserID); err != nil {
		httpError(w, err)
		return
	}
	clearTokenCookie(w)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out everywhere"})
}

func clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
