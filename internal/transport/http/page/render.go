// Package page serves the server-rendered magic-link pages.
package page

//go:generate templ generate

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-admin-auth/internal/transport/http/middleware"
)

type tab struct {
	Method string
	Label  string
	Href   string
	Active bool
}

type requestView struct {
	Title         string
	Tabs          []tab
	Form          templ.Component
	HaveCodeHref  string
	HaveCodeLabel string
	LoginHref     string
	LoginLabel    string
	Button        string
	Error         string
}

type submitView struct {
	Title           string
	SentTo          string
	Form            templ.Component
	Button          string
	Error           string
	RequestNewHref  string
	RequestNewLabel string
}

// writePage renders into a buffer first so a failed render can still answer 500.
func writePage(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, title string, body templ.Component) {
	lang := middleware.LanguageFromContext(r.Context())
	var buf bytes.Buffer
	if err := layout(title, lang.String()).Render(templ.WithChildren(r.Context(), body), &buf); err != nil {
		logger.Error("render page", "title", title, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
