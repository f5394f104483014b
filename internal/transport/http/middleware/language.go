package middleware

import (
	"context"
	"net/http"

	"github.com/go-admin-auth/internal/i18n"
	"golang.org/x/text/language"
)

const languageKey contextKey = "language"

// Language resolves the page language once per request. A language picked with
// the lang query parameter is remembered in a cookie.
func Language(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag, persist := i18n.ResolveTag(r)
		if persist {
			i18n.SetLanguageCookie(w, tag)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), languageKey, tag)))
	})
}

// LanguageFromContext returns the tag chosen by Language, or the default.
func LanguageFromContext(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(languageKey).(language.Tag); ok {
		return tag
	}
	return i18n.Default()
}
