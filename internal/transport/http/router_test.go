package http

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-admin-auth/internal/application/magiclink"
	"github.com/go-admin-auth/internal/application/session"
	"github.com/go-admin-auth/internal/application/user"
	"github.com/go-admin-auth/internal/config"
	"github.com/go-admin-auth/internal/domain"
	jwtinfra "github.com/go-admin-auth/internal/infrastructure/jwt"
	"github.com/go-admin-auth/internal/infrastructure/memory"
	"github.com/go-admin-auth/internal/transport/http/handler"
	"github.com/go-admin-auth/internal/transport/http/middleware"
	"github.com/go-admin-auth/internal/transport/http/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type outbox struct {
	mu   sync.Mutex
	last string
}

func (o *outbox) SendEmail(_, _, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.last = body
	return nil
}

func (o *outbox) SendSMS(_ context.Context, _, msg string) error {
	return o.SendEmail("", "", msg)
}

var codeRe = regexp.MustCompile(`code is (\d{6})`)

func (o *outbox) code(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	m := codeRe.FindStringSubmatch(o.last)
	require.Len(t, m, 2, "no code in %q", o.last)
	return m[1]
}

func newTestProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))
	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := jwtinfra.NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         24 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

type app struct {
	handler http.Handler
	outbox  *outbox
	user    *domain.User
}

func newApp(t *testing.T, opts ...func(*config.Config)) *app {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewSessionStore()
	users := user.NewService(user.ServiceDeps{UserRepo: memory.NewUserStore()})
	phone := "+15550001111"
	u, err := users.EnsureSeed(ctx, domain.CreateUserRequest{Email: "alice@example.com", Phone: &phone})
	require.NoError(t, err)

	provider := newTestProvider(t)
	sessions := session.NewService(session.ServiceDeps{Store: store, JWTProvider: provider, TTL: time.Hour})
	box := &outbox{}
	guardian := magiclink.NewService(magiclink.ServiceDeps{
		Users:      users,
		Sessions:   store,
		Issuer:     sessions,
		Mailer:     box,
		SMS:        box,
		TTL:        15 * time.Minute,
		BaseURL:    "http://localhost" + page.SubmitPath,
		BcryptCost: bcrypt.MinCost,
	})
	cfg := &config.Config{
		AllowedOrigins: []string{"*"},
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		LoginURL:       "/login",
		AfterLoginURL:  "/",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	h := NewRouter(ctx, cfg, &Deps{Guardian: guardian, Sessions: sessions, Verifier: provider, Logger: logger})
	return &app{handler: h, outbox: box, user: u}
}

func (a *app) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestRouter_HealthCheck(t *testing.T) {
	a := newApp(t)
	rr := a.do(httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_SessionsRequireAuth(t *testing.T) {
	a := newApp(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/v1/sessions"},
		{http.MethodPost, "/v1/sessions/logout"},
		{http.MethodPost, "/v1/sessions/logout-all"},
	} {
		rr := a.do(httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, tc.path)
	}
}

func TestRouter_JSONMagicLinkFlow(t *testing.T) {
	a := newApp(t)

	rr := a.do(httptest.NewRequest(http.MethodPost, "/v1/magic-link/request",
		jsonBody(t, magiclink.LinkRequest{Username: "Alice@Example.com", Method: domain.DeliveryEmail})))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var link magiclink.LinkResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&link))
	assert.True(t, link.MagicCodeSent)
	assert.Equal(t, a.user.UserID, link.UserID)

	rr = a.do(httptest.NewRequest(http.MethodPost, "/v1/magic-link/submit",
		jsonBody(t, magiclink.CodeSubmission{UserID: link.UserID, MagicCode: a.outbox.code(t)})))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var auth handler.AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&auth))
	require.NotEmpty(t, auth.Bearer)

	authed := func(method, path string) *http.Request {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+auth.Bearer)
		return req
	}

	rr = a.do(authed(http.MethodGet, "/v1/sessions"))
	require.Equal(t, http.StatusOK, rr.Code)
	var cur handler.SessionEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&cur))
	assert.Equal(t, auth.Session.Token, cur.Session.Token)
	assert.Equal(t, a.user.UserID, cur.Session.UserID)

	rr = a.do(authed(http.MethodPost, "/v1/sessions/logout"))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = a.do(authed(http.MethodGet, "/v1/sessions"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "bearer is revoked with its session")
}

func TestRouter_CodeIsSingleUse(t *testing.T) {
	a := newApp(t)
	rr := a.do(httptest.NewRequest(http.MethodPost, "/v1/magic-link/request",
		jsonBody(t, magiclink.LinkRequest{Username: "+15550001111", Method: domain.DeliverySMS})))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	sub := magiclink.CodeSubmission{UserID: a.user.UserID, MagicCode: a.outbox.code(t)}
	rr = a.do(httptest.NewRequest(http.MethodPost, "/v1/magic-link/submit", jsonBody(t, sub)))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = a.do(httptest.NewRequest(http.MethodPost, "/v1/magic-link/submit", jsonBody(t, sub)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_PageFlowSetsCookie(t *testing.T) {
	a := newApp(t)

	form := url.Values{"method": {"email"}, "username": {"alice@example.com"}}
	req := httptest.NewRequest(http.MethodPost, page.RequestPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := a.do(req)
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())

	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, page.SubmitPath, loc.Path)
	assert.Equal(t, a.user.UserID, loc.Query().Get("userId"))

	rr = a.do(httptest.NewRequest(http.MethodGet, loc.String(), nil))
	require.Equal(t, http.StatusOK, rr.Code)

	q := loc.Query()
	q.Set("code", a.outbox.code(t))
	req = httptest.NewRequest(http.MethodPost, page.SubmitPath, strings.NewReader(q.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = a.do(req)
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())

	var token *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.TokenCookieName {
			token = c
		}
	}
	require.NotNil(t, token)

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	req.AddCookie(token)
	assert.Equal(t, http.StatusOK, a.do(req).Code)
}

func TestRouter_UnknownUserShowsGenericError(t *testing.T) {
	a := newApp(t)
	form := url.Values{"method": {"email"}, "username": {"mallory@example.com"}}
	req := httptest.NewRequest(http.MethodPost, page.RequestPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := a.do(req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid credentials")
}

func burstOf(n int) func(*config.Config) {
	return func(c *config.Config) {
		c.RateLimitRPS = 0.001
		c.RateLimitBurst = n
	}
}

func TestRouter_PageRateLimitRendersPage(t *testing.T) {
	a := newApp(t, burstOf(1))
	post := func() *httptest.ResponseRecorder {
		form := url.Values{"method": {"sms"}, "username": {"+15550001111"}}
		req := httptest.NewRequest(http.MethodPost, page.RequestPath, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return a.do(req)
	}
	require.Equal(t, http.StatusSeeOther, post().Code)

	rr := post()
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), `role="alert">Too many attempts. Wait a moment and try again.</div>`)
	assert.Contains(t, rr.Body.String(), `class="tab tab-active" data-method="sms"`)
}

func TestRouter_ForwardedForDoesNotSplitBuckets(t *testing.T) {
	a := newApp(t, burstOf(1))
	codes := make([]int, 0, 3)
	for _, ip := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/magic-link/submit", strings.NewReader("{}"))
		req.Header.Set("X-Forwarded-For", ip)
		codes = append(codes, a.do(req).Code)
	}
	assert.NotEqual(t, http.StatusTooManyRequests, codes[0])
	assert.Equal(t, []int{http.StatusTooManyRequests, http.StatusTooManyRequests}, codes[1:])
}

func TestRouter_TrustedProxyHeadersSplitBuckets(t *testing.T) {
	a := newApp(t, burstOf(1), func(c *config.Config) { c.TrustProxyHeaders = true })
	for _, ip := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/magic-link/submit", strings.NewReader("{}"))
		req.Header.Set("X-Forwarded-For", ip)
		assert.NotEqual(t, http.StatusTooManyRequests, a.do(req).Code, ip)
	}
}

func TestRouter_WrongGuessesBurnCode(t *testing.T) {
	a := newApp(t)
	rr := a.do(httptest.NewRequest(http.MethodPost, "/v1/magic-link/request",
		jsonBody(t, magiclink.LinkRequest{Username: "alice@example.com", Method: domain.DeliveryEmail})))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	code := a.outbox.code(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 5; i++ {
		rr = a.do(httptest.NewRequest(http.MethodPost, "/v1/magic-link/submit",
			jsonBody(t, magiclink.CodeSubmission{UserID: a.user.UserID, MagicCode: wrong})))
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	}
	rr = a.do(httptest.NewRequest(http.MethodPost, "/v1/magic-link/submit",
		jsonBody(t, magiclink.CodeSubmission{UserID: a.user.UserID, MagicCode: code})))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
