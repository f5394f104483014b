package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-admin-auth/internal/application/magiclink"
	"github.com/go-admin-auth/internal/pkg/validate"
)

// MagicLinkHandler exposes the guardian as a JSON API.
type MagicLinkHandler struct {
	guardian magiclink.Guardian
}

func NewMagicLinkHandler(g magiclink.Guardian) *MagicLinkHandler {
	return &MagicLinkHandler{guardian: g}
}

func (h *MagicLinkHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req magiclink.LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.guardian.RequestLoginLink(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *MagicLinkHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub magiclink.CodeSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&sub); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	res, err := h.guardian.SubmitMagicCode(r.Context(), sub)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Bearer: res.Token, Session: loginSession(res)})
}
