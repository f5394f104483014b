package magiclink

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/go-admin-auth/internal/application/session"
	"github.com/go-admin-auth/internal/domain"
	"github.com/go-admin-auth/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUsers) Lookup(ctx context.Context, method domain.DeliveryMethod, username string) (*domain.User, error) {
	args := m.Called(ctx, method, username)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockIssuer struct{ mock.Mock }

func (m *mockIssuer) Issue(ctx context.Context, userID string) (*session.IssueResult, error) {
	args := m.Called(ctx, userID)
	if r, _ := args.Get(0).(*session.IssueResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type mockSMS struct{ mock.Mock }

func (m *mockSMS) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

type mockCaller struct{ mock.Mock }

func (m *mockCaller) Call(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

// --- helpers ---

var now = time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

var codeRe = regexp.MustCompile(`code is (\d{6})`)

type fixture struct {
	svc    *Service
	store  *memory.SessionStore
	users  *mockUsers
	issuer *mockIssuer
	mailer *mockMailer
	sms    *mockSMS
}

func newFixture(caller PhoneCaller) *fixture {
	f := &fixture{
		store:  memory.NewSessionStore().WithClock(func() time.Time { return now }),
		users:  &mockUsers{},
		issuer: &mockIssuer{},
		mailer: &mockMailer{},
		sms:    &mockSMS{},
	}
	f.svc = NewService(ServiceDeps{
		Users:      f.users,
		Sessions:   f.store,
		Issuer:     f.issuer,
		Mailer:     f.mailer,
		SMS:        f.sms,
		Caller:     caller,
		TTL:        15 * time.Minute,
		BaseURL:    "https://admin.example/authentication/submit-magic-link",
		BcryptCost: bcrypt.MinCost,
		Now:        func() time.Time { return now },
	})
	return f
}

func phone(s string) *string { return &s }

var alice = &domain.User{UserID: "u1", Email: "alice@example.com", Phone: phone("+15550001111"), Enable: true}

// --- RequestLoginLink ---

func TestRequestLoginLink_Email(t *testing.T) {
	f := newFixture(nil)
	f.users.On("Lookup", mock.Anything, domain.DeliveryEmail, "alice@example.com").Return(alice, nil)
	var body string
	f.mailer.On("SendEmail", "alice@example.com", "Your sign-in code", mock.Anything).
		Run(func(args mock.Arguments) { body = args.String(2) }).Return(nil)

	res, err := f.svc.RequestLoginLink(context.Background(), LinkRequest{Username: "alice@example.com", Method: domain.DeliveryEmail})

	require.NoError(t, err)
	assert.Equal(t, &LinkResult{MagicCodeSent: true, UserID: "u1", Method: domain.DeliveryEmail, MagicAuthFormat: "code"}, res)
	assert.Regexp(t, codeRe, body)
	assert.Contains(t, body, "https://admin.example/authentication/submit-magic-link?code=")
	assert.Contains(t, body, "userId=u1")

	pending, err := f.store.GetConfirmationSessionByUserID(context.Background(), "u1", domain.SessionTypeMagicLink)
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute), pending.ExpiresAt)
	hash, _ := pending.Data[dataCodeHash].(string)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(codeRe.FindStringSubmatch(body)[1])))
}

func TestRequestLoginLink_DefaultsToEmail(t *testing.T) {
	f := newFixture(nil)
	f.users.On("Lookup", mock.Anything, domain.DeliveryEmail, "alice@example.com").Return(alice, nil)
	f.mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.RequestLoginLink(context.Background(), LinkRequest{Username: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryEmail, res.Method)
}

func TestRequestLoginLink_SMS(t *testing.T) {
	f := newFixture(nil)
	f.users.On("Lookup", mock.Anything, domain.DeliverySMS, "+15550001111").Return(alice, nil)
	f.sms.On("SendSMS", mock.Anything, "+15550001111", mock.MatchedBy(codeRe.MatchString)).Return(nil)

	res, err := f.svc.RequestLoginLink(context.Background(), LinkRequest{Username: "+15550001111", Method: domain.DeliverySMS})
	require.NoError(t, err)
	assert.Equal(t, domain.DeliverySMS, res.Method)
	f.sms.AssertExpectations(t)
}

func TestRequestLoginLink_PhoneCall(t *testing.T) {
	caller := &mockCaller{}
	caller.On("Call", mock.Anything, "+15550001111", mock.MatchedBy(func(msg string) bool {
		return regexp.MustCompile(`(\d, ){5}\d$`).MatchString(msg)
	})).Return(nil)
	f := newFixture(caller)
	f.users.On("Get", mock.Anything, "u1").Return(alice, nil)

	res, err := f.svc.RequestLoginLink(context.Background(), LinkRequest{UserID: "u1", Method: domain.DeliveryPhoneCall})
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryPhoneCall, res.Method)
	caller.AssertExpectations(t)
}

func TestRequestLoginLink_PhoneCallNotConfigured(t *testing.T) {
	f := newFixture(nil)
	_, err := f.svc.RequestLoginLink(context.Background(), LinkRequest{UserID: "u1", Method: domain.DeliveryPhoneCall})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	f.users.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestRequestLoginLink_UnknownMethod(t *testing.T) {
	_, err := newFixture(nil).svc.RequestLoginLink(context.Background(), LinkRequest{Username: "x", Method: "fax"})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestRequestLoginLink_NoPhoneOnAccount(t *testing.T) {
	f := newFixture(nil)
	f.users.On("Get", mock.Anything, "u2").Return(&domain.User{UserID: "u2", Email: "b@example.com", Enable: true}, nil)

	_, err := f.svc.RequestLoginLink(context.Background(), LinkRequest{UserID: "u2", Method: domain.DeliverySMS})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	assert.Equal(t, 0, f.store.Len())
}

func TestRequestLoginLink_DisabledUser(t *testing.T) {
	f := newFixture(nil)
	f.users.On("Get", mock.Anything, "u3").Return(&domain.User{UserID: "u3", Email: "c@example.com"}, nil)

	_, err := f.svc.RequestLoginLink(context.Background(), LinkRequest{UserID: "u3"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestRequestLoginLink_UnknownUsername(t *testing.T) {
	f := newFixture(nil)
	f.users.On("Lookup", mock.Anything, domain.DeliveryEmail, "ghost@example.com").Return(nil, domain.ErrNotFound)

	_, err := f.svc.RequestLoginLink(context.Background(), LinkRequest{Username: "ghost@example.com"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRequestLoginLink_BySessionToken(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	pre, _ := f.store.NewSession(ctx, "u1", now.Add(time.Minute), map[string]any{"type": "pre_auth"})
	f.users.On("Get", mock.Anything, "u1").Return(alice, nil)
	f.mailer.On("SendEmail", "alice@example.com", mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.RequestLoginLink(ctx, LinkRequest{SessionToken: pre})
	require.NoError(t, err)
	assert.Equal(t, "u1", res.UserID)
}

func TestRequestLoginLink_ExpiredSessionToken(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	pre, _ := f.store.NewSession(ctx, "u1", now.Add(-time.Minute), nil)

	_, err := f.svc.RequestLoginLink(ctx, LinkRequest{SessionToken: pre})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	_, err = f.svc.RequestLoginLink(ctx, LinkRequest{SessionToken: "missing"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestRequestLoginLink_ReplacesPendingCode(t *testing.T) {
	f := newFixture(nil)
	f.users.On("Get", mock.Anything, "u1").Return(alice, nil)
	f.mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	_, err := f.svc.RequestLoginLink(ctx, LinkRequest{UserID: "u1"})
	require.NoError(t, err)
	_, err = f.svc.RequestLoginLink(ctx, LinkRequest{UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.store.Len())
}

func TestRequestLoginLink_DeliveryFailureRemovesCode(t *testing.T) {
	f := newFixture(nil)
	f.users.On("Get", mock.Anything, "u1").Return(alice, nil)
	f.mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	_, err := f.svc.RequestLoginLink(context.Background(), LinkRequest{UserID: "u1"})
	assert.ErrorContains(t, err, "smtp down")
	assert.Equal(t, 0, f.store.Len())
}

// --- SubmitMagicCode ---

func requestCode(t *testing.T, f *fixture) string {
	t.Helper()
	f.users.On("Get", mock.Anything, "u1").Return(alice, nil)
	var body string
	f.mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { body = args.String(2) }).Return(nil)
	_, err := f.svc.RequestLoginLink(context.Background(), LinkRequest{UserID: "u1"})
	require.NoError(t, err)
	return codeRe.FindStringSubmatch(body)[1]
}

func TestSubmitMagicCode_Success(t *testing.T) {
	f := newFixture(nil)
	code := requestCode(t, f)
	exp := now.Add(time.Hour)
	f.issuer.On("Issue", mock.Anything, "u1").Return(&session.IssueResult{
		Bearer:  "jwt",
		Session: &domain.Session{Token: "login-tok", UserID: "u1", ExpiresAt: exp},
	}, nil)

	res, err := f.svc.SubmitMagicCode(context.Background(), CodeSubmission{UserID: "u1", MagicCode: code})

	require.NoError(t, err)
	assert.Equal(t, &LoginResult{Token: "jwt", SessionToken: "login-tok", UserID: "u1", ExpiresAt: exp}, res)
	assert.Equal(t, 0, f.store.Len(), "the code is single use")
}

func TestSubmitMagicCode_DeletesPreAuthSession(t *testing.T) {
	f := newFixture(nil)
	code := requestCode(t, f)
	pre, _ := f.store.NewSession(context.Background(), "u1", now.Add(time.Minute), map[string]any{"type": "pre_auth"})
	f.issuer.On("Issue", mock.Anything, "u1").Return(&session.IssueResult{Session: &domain.Session{Token: "t"}}, nil)

	_, err := f.svc.SubmitMagicCode(context.Background(), CodeSubmission{UserID: "u1", MagicCode: code, SessionToken: pre})
	require.NoError(t, err)

	_, err = f.store.GetSession(context.Background(), pre)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSubmitMagicCode_KeepsForeignPreAuthSession(t *testing.T) {
	f := newFixture(nil)
	code := requestCode(t, f)
	other, _ := f.store.NewSession(context.Background(), "u2", now.Add(time.Minute), map[string]any{"type": "pre_auth"})
	f.issuer.On("Issue", mock.Anything, "u1").Return(&session.IssueResult{Session: &domain.Session{Token: "t"}}, nil)

	_, err := f.svc.SubmitMagicCode(context.Background(), CodeSubmission{UserID: "u1", MagicCode: code, SessionToken: other})
	require.NoError(t, err)

	_, err = f.store.GetSession(context.Background(), other)
	assert.NoError(t, err)
}

func TestSubmitMagicCode_WrongCode(t *testing.T) {
	f := newFixture(nil)
	code := requestCode(t, f)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	_, err := f.svc.SubmitMagicCode(context.Background(), CodeSubmission{UserID: "u1", MagicCode: wrong})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	assert.Equal(t, 1, f.store.Len())
	f.issuer.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestSubmitMagicCode_WrongCodeCountsAttempts(t *testing.T) {
	f := newFixture(nil)
	code := requestCode(t, f)
	before, err := f.store.GetConfirmationSessionByUserID(context.Background(), "u1", domain.SessionTypeMagicLink)
	require.NoError(t, err)

	_, err = f.svc.SubmitMagicCode(context.Background(), CodeSubmission{UserID: "u1", MagicCode: wrongCode(code)})
	require.True(t, errors.Is(err, domain.ErrUnauthorized))

	after, err := f.store.GetConfirmationSessionByUserID(context.Background(), "u1", domain.SessionTypeMagicLink)
	require.NoError(t, err)
	assert.Equal(t, before.Token, after.Token)
	assert.Equal(t, before.Data[dataCodeHash], after.Data[dataCodeHash])
	assert.Equal(t, 1, attemptsOf(after.Data))
	assert.True(t, before.ExpiresAt.Equal(after.ExpiresAt))
}

func TestSubmitMagicCode_BurnedAfterMaxAttempts(t *testing.T) {
	f := newFixture(nil)
	code := requestCode(t, f)
	for i := 0; i < maxAttempts; i++ {
		_, err := f.svc.SubmitMagicCode(context.Background(), CodeSubmission{UserID: "u1", MagicCode: wrongCode(code)})
		require.True(t, errors.Is(err, domain.ErrUnauthorized))
	}
	assert.Equal(t, 0, f.store.Len())

	_, err := f.svc.SubmitMagicCode(context.Background(), CodeSubmission{UserID: "u1", MagicCode: code})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	f.issuer.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
}

func TestSubmitMagicCode_AcceptedBeforeLimit(t *testing.T) {
	f := newFixture(nil)
	code := requestCode(t, f)
	for i := 0; i < maxAttempts-1; i++ {
		_, _ = f.svc.SubmitMagicCode(context.Background(), CodeSubmission{UserID: "u1", MagicCode: wrongCode(code)})
	}
	f.issuer.On("Issue", mock.Anything, "u1").Return(&session.IssueResult{Session: &domain.Session{Token: "t"}}, nil)

	_, err := f.svc.SubmitMagicCode(context.Background(), CodeSubmission{UserID: "u1", MagicCode: code})
	assert.NoError(t, err)
}

func TestAttemptsOf(t *testing.T) {
	assert.Equal(t, 0, attemptsOf(nil))
	assert.Equal(t, 2, attemptsOf(map[string]any{"attempts": 2}))
	assert.Equal(t, 3, attemptsOf(map[string]any{"attempts": float64(3)}))
	assert.Equal(t, 0, attemptsOf(map[string]any{"attempts": "x"}))
}

func TestSubmitMagicCode_NoPendingCode(t *testing.T) {
	_, err := newFixture(nil).svc.SubmitMagicCode(context.Background(), CodeSubmission{UserID: "u1", MagicCode: "123456"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestSubmitMagicCode_Invalid(t *testing.T) {
	svc := newFixture(nil).svc
	for _, sub := range []CodeSubmission{
		{MagicCode: "123456"},
		{UserID: "u1"},
		{UserID: "u1", MagicCode: "12ab56"},
	} {
		_, err := svc.SubmitMagicCode(context.Background(), sub)
		assert.True(t, errors.Is(err, domain.ErrBadRequest), "%+v", sub)
	}
}

func TestSpell(t *testing.T) {
	assert.Equal(t, "1, 2, 3", spell("123"))
}
