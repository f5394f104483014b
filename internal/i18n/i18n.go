// Package i18n resolves the request language and prints page messages.
package i18n

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the user's language preference.
	LangCookieName = "xauth_lang"
)

var (
	enUS = language.MustParse("en-US")
	esES = language.MustParse("es-ES")
)

var supportedTags = []language.Tag{enUS, esES}

var tagMatcher = language.NewMatcher(supportedTags)

// Supported returns the list of supported language tags.
func Supported() []language.Tag {
	tags := make([]language.Tag, len(supportedTags))
	copy(tags, supportedTags)
	return tags
}

// Default returns the default language tag.
func Default() language.Tag {
	return enUS
}

// Printer returns a message printer for the supplied tag.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// ResolveTag picks the language from the lang query parameter, the language
// cookie, then Accept-Language. The bool reports whether the query parameter
// chose it and should be persisted.
func ResolveTag(r *http.Request) (language.Tag, bool) {
	if r == nil {
		return Default(), false
	}
	if v := strings.TrimSpace(r.URL.Query().Get(LangParam)); v != "" {
		if tag, ok := match(v); ok {
			return tag, true
		}
	}
	if cookie, err := r.Cookie(LangCookieName); err == nil {
		if tag, ok := match(cookie.Value); ok {
			return tag, false
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			return best(tags...), false
		}
	}
	return Default(), false
}

// SetLanguageCookie persists the selected language on the response.
func SetLanguageCookie(w http.ResponseWriter, tag language.Tag) {
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

func match(value string) (language.Tag, bool) {
	tag, err := language.Parse(value)
	if err != nil {
		return language.Tag{}, false
	}
	_, _, conf := tagMatcher.Match(tag)
	if conf == language.No {
		return language.Tag{}, false
	}
	return best(tag), true
}

// best maps the matcher result back onto one of supportedTags, dropping the
// -u-rg extension the matcher may add.
func best(tags ...language.Tag) language.Tag {
	_, idx, _ := tagMatcher.Match(tags...)
	return supportedTags[idx]
}
