package page

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-admin-auth/internal/application/magiclink"
	"github.com/go-admin-auth/internal/domain"
	"github.com/go-admin-auth/internal/form"
	"github.com/go-admin-auth/internal/i18n"
	"github.com/go-admin-auth/internal/infrastructure/guardian"
	"github.com/go-admin-auth/internal/transport/http/middleware"
	"golang.org/x/text/message"
)

const (
	RequestPath = "/authentication/request-magic-link"
	SubmitPath  = "/authentication/submit-magic-link"
)

// Options configures the magic-link pages.
type Options struct {
	// LoginURL is the password login page linked from the request page.
	LoginURL string
	// AfterLoginURL receives the browser once the code is accepted.
	AfterLoginURL string
	// SecureCookie marks the bearer cookie Secure.
	SecureCookie bool
	Logger       *slog.Logger
}

// MagicLink serves the request and submit pages on top of a Guardian.
type MagicLink struct {
	guardian magiclink.Guardian
	opts     Options
}

func NewMagicLink(g magiclink.Guardian, opts Options) *MagicLink {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AfterLoginURL == "" {
		opts.AfterLoginURL = "/"
	}
	return &MagicLink{guardian: g, opts: opts}
}

// linkState is what the request page carries between renders.
type linkState struct {
	Method       domain.DeliveryMethod
	UserID       string
	SessionToken string
}

func readLinkState(v url.Values) linkState {
	st := linkState{
		Method:       domain.DeliveryMethod(v.Get("method")),
		UserID:       strings.TrimSpace(v.Get("userId")),
		SessionToken: strings.TrimSpace(v.Get("sessionToken")),
	}
	if !st.Method.Valid() {
		st.Method = domain.DeliveryEmail
	}
	return st
}

// query encodes the state, leaving out empty values.
func (st linkState) query(extra ...string) url.Values {
	q := url.Values{}
	q.Set("method", string(st.Method))
	if st.UserID != "" {
		q.Set("userId", st.UserID)
	}
	if st.SessionToken != "" {
		q.Set("sessionToken", st.SessionToken)
	}
	for i := 0; i+1 < len(extra); i += 2 {
		if extra[i+1] != "" {
			q.Set(extra[i], extra[i+1])
		}
	}
	return q
}

func (h *MagicLink) ShowRequest(w http.ResponseWriter, r *http.Request) {
	st := readLinkState(r.URL.Query())
	h.renderRequest(w, r, http.StatusOK, st, h.requestForm(r, st, r.URL.Query()), "")
}

func (h *MagicLink) RequestLink(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	st := readLinkState(r.PostForm)
	f := h.requestForm(r, st, r.PostForm)
	if !f.Validate() {
		h.renderRequest(w, r, http.StatusUnprocessableEntity, st, f, "")
		return
	}

	res, err := h.guardian.RequestLoginLink(r.Context(), magiclink.LinkRequest{
		Username:     strings.TrimSpace(r.PostForm.Get("username")),
		Method:       st.Method,
		UserID:       st.UserID,
		SessionToken: st.SessionToken,
	})
	if err != nil {
		h.opts.Logger.Warn("request magic link failed", "method", st.Method, "err", err)
		h.renderRequest(w, r, http.StatusOK, st, f, errorMessage(h.printer(r), err, i18n.KeyInvalidCreds))
		return
	}
	if !res.MagicCodeSent {
		h.renderRequest(w, r, http.StatusOK, st, f, "")
		return
	}
	next := linkState{Method: res.Method, UserID: res.UserID, SessionToken: st.SessionToken}
	http.Redirect(w, r, SubmitPath+"?"+next.query("format", res.MagicAuthFormat).Encode(), http.StatusSeeOther)
}

func (h *MagicLink) ShowSubmit(w http.ResponseWriter, r *http.Request) {
	st := readLinkState(r.URL.Query())
	if st.UserID == "" {
		http.Redirect(w, r, RequestPath+"?"+st.query().Encode(), http.StatusSeeOther)
		return
	}
	h.renderSubmit(w, r, http.StatusOK, st, h.submitForm(r, r.URL.Query()), "")
}

func (h *MagicLink) SubmitCode(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	st := readLinkState(r.PostForm)
	if st.UserID == "" {
		http.Redirect(w, r, RequestPath+"?"+st.query().Encode(), http.StatusSeeOther)
		return
	}
	f := h.submitForm(r, r.PostForm)
	if !f.Validate() {
		h.renderSubmit(w, r, http.StatusUnprocessableEntity, st, f, "")
		return
	}

	res, err := h.guardian.SubmitMagicCode(r.Context(), magiclink.CodeSubmission{
		UserID:       st.UserID,
		MagicCode:    strings.TrimSpace(r.PostForm.Get("code")),
		SessionToken: st.SessionToken,
	})
	if err != nil {
		h.opts.Logger.Warn("submit magic code failed", "user_id", st.UserID, "err", err)
		h.renderSubmit(w, r, http.StatusOK, st, f, errorMessage(h.printer(r), err, i18n.KeySubmitInvalidCode))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.opts.AfterLoginURL, http.StatusSeeOther)
}

// TooManyRequests answers a rate-limited POST by re-rendering the page it came
// from with a translated alert.
func (h *MagicLink) TooManyRequests(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	st := readLinkState(r.PostForm)
	msg := h.printer(r).Sprintf(i18n.KeyTooManyRequests)
	if r.URL.Path == SubmitPath && st.UserID != "" {
		h.renderSubmit(w, r, http.StatusTooManyRequests, st, h.submitForm(r, r.PostForm), msg)
		return
	}
	h.renderRequest(w, r, http.StatusTooManyRequests, st, h.requestForm(r, st, r.PostForm), msg)
}

func (h *MagicLink) printer(r *http.Request) *message.Printer {
	return i18n.Printer(middleware.LanguageFromContext(r.Context()))
}

// errorMessage shows network failures as they are and hides everything else
// behind a generic message.
func errorMessage(p *message.Printer, err error, fallbackKey string) string {
	if guardian.IsNetworkError(err) {
		return err.Error()
	}
	return p.Sprintf(fallbackKey)
}

func (h *MagicLink) requestForm(r *http.Request, st linkState, values url.Values) *form.Form {
	p := h.printer(r)
	f := form.New(
		&form.Element{ID: "method", Order: 1, Render: form.Hidden()},
		&form.Element{ID: "userId", Order: 2, Render: form.Hidden()},
		&form.Element{ID: "sessionToken", Order: 3, Render: form.Hidden()},
	)
	if st.UserID == "" {
		label, inputType := p.Sprintf(i18n.KeyFieldEmail), "email"
		if st.Method != domain.DeliveryEmail {
			label, inputType = p.Sprintf(i18n.KeyFieldPhoneNumber), "tel"
		}
		f.Add(&form.Element{
			ID:       "username",
			Label:    form.Label(""),
			Order:    4,
			Required: st.SessionToken == "",
			Rules:    []form.Rule{{Tag: "max=254"}},
			Render:   form.Input(inputType, "placeholder", label, "autocomplete", "username"),
		})
	}
	f.Values = url.Values{}
	for k, vs := range values {
		f.Values[k] = vs
	}
	f.Values.Set("method", string(st.Method))
	f.Logger = h.opts.Logger
	return f
}

func (h *MagicLink) submitForm(r *http.Request, values url.Values) *form.Form {
	p := h.printer(r)
	label := p.Sprintf(i18n.KeySubmitCode)
	f := form.New(
		&form.Element{ID: "userId", Order: 1, Render: form.Hidden()},
		&form.Element{ID: "method", Order: 2, Render: form.Hidden()},
		&form.Element{ID: "sessionToken", Order: 3, Render: form.Hidden()},
		&form.Element{
			ID:       "code",
			Label:    form.Label(label),
			Order:    4,
			Required: true,
			Rules:    []form.Rule{{Tag: "numeric,len=6", Message: p.Sprintf(i18n.KeySubmitInvalidCode)}},
			Render:   form.Input("text", "inputmode", "numeric", "autocomplete", "one-time-code", "maxlength", "6"),
		},
	)
	f.Values = values
	f.Logger = h.opts.Logger
	return f
}

var methodTabs = []struct {
	method domain.DeliveryMethod
	key    string
}{
	{domain.DeliveryEmail, i18n.KeyTabEmail},
	{domain.DeliverySMS, i18n.KeyTabSMS},
	{domain.DeliveryPhoneCall, i18n.KeyTabPhoneCall},
}

func methodName(p *message.Printer, m domain.DeliveryMethod) string {
	switch m {
	case domain.DeliverySMS:
		return p.Sprintf(i18n.KeyMethodSMS)
	case domain.DeliveryPhoneCall:
		return p.Sprintf(i18n.KeyMethodPhoneCall)
	}
	return p.Sprintf(i18n.KeyMethodEmail)
}

func (h *MagicLink) renderRequest(w http.ResponseWriter, r *http.Request, status int, st linkState, f *form.Form, errMsg string) {
	p := h.printer(r)
	v := requestView{
		Title:  p.Sprintf(i18n.KeyRequestHeader),
		Form:   f.Render(),
		Button: p.Sprintf(i18n.KeySendMagicLink),
		Error:  errMsg,
	}
	for _, t := range methodTabs {
		target := linkState{Method: t.method, UserID: st.UserID, SessionToken: st.SessionToken}
		v.Tabs = append(v.Tabs, tab{
			Method: string(t.method),
			Label:  p.Sprintf(t.key),
			Href:   RequestPath + "?" + target.query().Encode(),
			Active: t.method == st.Method,
		})
	}
	if st.UserID != "" {
		v.HaveCodeHref = SubmitPath + "?" + st.query().Encode()
		v.HaveCodeLabel = p.Sprintf(i18n.KeyAlreadyHaveCode)
	}
	if h.opts.LoginURL != "" {
		v.LoginHref = h.opts.LoginURL
		v.LoginLabel = p.Sprintf(i18n.KeySimpleLogin)
	}
	writePage(w, r, h.opts.Logger, status, v.Title, requestPage(v))
}

func (h *MagicLink) renderSubmit(w http.ResponseWriter, r *http.Request, status int, st linkState, f *form.Form, errMsg string) {
	p := h.printer(r)
	v := submitView{
		Title:           p.Sprintf(i18n.KeySubmitHeader),
		SentTo:          p.Sprintf(i18n.KeySubmitSentTo, methodName(p, st.Method)),
		Form:            f.Render(),
		Button:          p.Sprintf(i18n.KeySubmitButton),
		Error:           errMsg,
		RequestNewHref:  RequestPath + "?" + st.query().Encode(),
		RequestNewLabel: p.Sprintf(i18n.KeySubmitRequestNew),
	}
	writePage(w, r, h.opts.Logger, status, v.Title, submitPage(v))
}
