package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-admin-auth/internal/config"
	"github.com/go-admin-auth/internal/domain"
	jwtinfra "github.com/go-admin-auth/internal/infrastructure/jwt"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newTestProvider generates a fresh RSA key pair, writes them to temp files,
// and returns a *jwtinfra.Provider.
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

type mockSessions struct{ mock.Mock }

func (m *mockSessions) Current(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func serve(p *jwtinfra.Provider, s *mockSessions, req *http.Request, h http.HandlerFunc) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	Auth(p, s)(h).ServeHTTP(rr, req)
	return rr
}

func TestAuth_MissingHeader(t *testing.T) {
	rr := serve(newTestProvider(t), &mockSessions{}, httptest.NewRequest(http.MethodGet, "/", nil), okHandler)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestAuth_NonBearerScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	rr := serve(newTestProvider(t), &mockSessions{}, req, okHandler)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_BadToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rr := serve(newTestProvider(t), &mockSessions{}, req, okHandler)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_TokenFromOtherKey(t *testing.T) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	claims := &jwtinfra.Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(privKey)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := serve(newTestProvider(t), &mockSessions{}, req, okHandler)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_RevokedSession(t *testing.T) {
	p := newTestProvider(t)
	signed, err := p.Sign("u1", "tok", time.Now().Add(time.Hour))
	require.NoError(t, err)
	s := &mockSessions{}
	s.On("Current", mock.Anything, "tok").Return(nil, domain.ErrUnauthorized)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := serve(p, s, req, okHandler)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	s.AssertExpectations(t)
}

func TestAuth_StoreFailure(t *testing.T) {
	p := newTestProvider(t)
	signed, err := p.Sign("u1", "tok", time.Now().Add(time.Hour))
	require.NoError(t, err)
	s := &mockSessions{}
	s.On("Current", mock.Anything, "tok").Return(nil, errors.New("redis down"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := serve(p, s, req, okHandler)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestAuth_SessionOwnedByAnotherUser(t *testing.T) {
	p := newTestProvider(t)
	signed, err := p.Sign("u1", "tok", time.Now().Add(time.Hour))
	require.NoError(t, err)
	s := &mockSessions{}
	s.On("Current", mock.Anything, "tok").Return(&domain.Session{Token: "tok", UserID: "u2"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := serve(p, s, req, okHandler)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_ValidToken_InjectsClaimsAndSession(t *testing.T) {
	p := newTestProvider(t)
	signed, err := p.Sign("u1", "tok", time.Now().Add(time.Hour))
	require.NoError(t, err)
	s := &mockSessions{}
	s.On("Current", mock.Anything, "tok").Return(&domain.Session{Token: "tok", UserID: "u1"}, nil)

	var gotClaims *jwtinfra.Claims
	var gotSession *domain.Session
	capture := func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
		gotSession, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := serve(p, s, req, capture)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "u1", gotClaims.UserID)
	assert.Equal(t, "tok", gotClaims.SessionToken)
	require.NotNil(t, gotSession)
	assert.Equal(t, "tok", gotSession.Token)
}

func TestAuth_CookieFallback(t *testing.T) {
	p := newTestProvider(t)
	signed, err := p.Sign("u1", "tok", time.Now().Add(time.Hour))
	require.NoError(t, err)
	s := &mockSessions{}
	s.On("Current", mock.Anything, "tok").Return(&domain.Session{Token: "tok", UserID: "u1"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: signed})
	rr := serve(p, s, req, okHandler)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestClaimsFromContext_Empty(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)
	_, ok = SessionFromContext(context.Background())
	assert.False(t, ok)
}
