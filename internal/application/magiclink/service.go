package magiclink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-admin-auth/internal/application/session"
	"github.com/go-admin-auth/internal/domain"
	pkgtoken "github.com/go-admin-auth/internal/pkg/token"
	"github.com/go-admin-auth/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

const (
	codeDigits = 6
	// maxPending bounds how many stale magic-link sessions one request clears.
	maxPending = 16

	// maxAttempts wrong guesses burn the pending code.
	maxAttempts = 5

	dataCodeHash = "code_hash"
	dataMethod   = "method"
	dataAttempts = "attempts"
)

type userDirectory interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Lookup(ctx context.Context, method domain.DeliveryMethod, username string) (*domain.User, error)
}

type sessionIssuer interface {
	Issue(ctx context.Context, userID string) (*session.IssueResult, error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// PhoneCaller reads a message to a phone number.
type PhoneCaller interface {
	Call(ctx context.Context, to, message string) error
}

type ServiceDeps struct {
	Users    userDirectory
	Sessions session.Persistence
	Issuer   sessionIssuer
	Mailer   mailer
	SMS      smsSender
	Caller   PhoneCaller // optional
	TTL      time.Duration
	// BaseURL is the submit page the emailed link points at.
	BaseURL    string
	BcryptCost int
	Now        func() time.Time
}

// Service is the built-in Guardian.
type Service struct {
	users    userDirectory
	sessions session.Persistence
	issuer   sessionIssuer
	mailer   mailer
	sms      smsSender
	caller   PhoneCaller
	ttl      time.Duration
	baseURL  string
	cost     int
	now      func() time.Time
}

var _ Guardian = (*Service)(nil)

func NewService(deps ServiceDeps) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		users:    deps.Users,
		sessions: deps.Sessions,
		issuer:   deps.Issuer,
		mailer:   deps.Mailer,
		sms:      deps.SMS,
		caller:   deps.Caller,
		ttl:      deps.TTL,
		baseURL:  deps.BaseURL,
		cost:     cost,
		now:      now,
	}
}

func (s *Service) RequestLoginLink(ctx context.Context, req LinkRequest) (*LinkResult, error) {
	if req.Method == "" {
		req.Method = domain.DeliveryEmail
	}
	if !req.Method.Valid() {
		return nil, fmt.Errorf("unknown delivery method %q: %w", req.Method, domain.ErrBadRequest)
	}
	if req.Method == domain.DeliveryPhoneCall && s.caller == nil {
		return nil, fmt.Errorf("phone call delivery is not configured: %w", domain.ErrBadRequest)
	}
	u, err := s.resolveUser(ctx, req)
	if err != nil {
		return nil, err
	}
	to, err := destination(u, req.Method)
	if err != nil {
		return nil, err
	}

	s.clearPending(ctx, u.UserID)

	code, err := pkgtoken.NewNumericCode(codeDigits)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().UTC().Add(s.ttl).Truncate(session.Precision)
	token, err := s.sessions.NewSession(ctx, u.UserID, expiresAt, map[string]any{
		"type":       domain.SessionTypeMagicLink,
		dataCodeHash: string(hash),
		dataMethod:   string(req.Method),
	})
	if err != nil {
		return nil, fmt.Errorf("store magic code: %w", err)
	}

	if err := s.deliver(ctx, req.Method, to, u.UserID, code); err != nil {
		if delErr := s.sessions.DeleteSession(ctx, token); delErr != nil {
			slog.Warn("failed to remove undelivered magic code", "user_id", u.UserID, "err", delErr)
		}
		return nil, fmt.Errorf("deliver magic code by %s: %w", req.Method, err)
	}
	slog.Info("magic code sent", "user_id", u.UserID, "method", req.Method)

	return &LinkResult{
		MagicCodeSent:   true,
		UserID:          u.UserID,
		Method:          req.Method,
		MagicAuthFormat: domain.MagicAuthFormatCode,
	}, nil
}

func (s *Service) SubmitMagicCode(ctx context.Context, sub CodeSubmission) (*LoginResult, error) {
	sub.MagicCode = strings.TrimSpace(sub.MagicCode)
	if err := validate.Struct(sub); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	pending, err := s.sessions.GetConfirmationSessionByUserID(ctx, sub.UserID, domain.SessionTypeMagicLink)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("no pending magic code: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	hash, _ := pending.Data[dataCodeHash].(string)
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(sub.MagicCode)) != nil {
		s.recordFailure(ctx, pending)
		return nil, fmt.Errorf("invalid magic code: %w", domain.ErrUnauthorized)
	}
	if err := s.sessions.DeleteSession(ctx, pending.Token); err != nil {
		slog.Warn("failed to delete used magic code", "user_id", sub.UserID, "err", err)
	}
	if sub.SessionToken != "" {
		s.dropPreAuth(ctx, sub.UserID, sub.SessionToken)
	}

	res, err := s.issuer.Issue(ctx, sub.UserID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:        res.Bearer,
		SessionToken: res.Session.Token,
		UserID:       sub.UserID,
		ExpiresAt:    res.Session.ExpiresAt,
	}, nil
}

// recordFailure counts a wrong guess against the pending code. The session is
// rewritten under the same token with the bumped count, or dropped once the
// count reaches maxAttempts.
func (s *Service) recordFailure(ctx context.Context, pending *domain.Session) {
	attempts := attemptsOf(pending.Data) + 1
	if err := s.sessions.DeleteSession(ctx, pending.Token); err != nil {
		slog.Warn("failed to update magic code attempts", "user_id", pending.UserID, "err", err)
		return
	}
	if attempts >= maxAttempts {
		slog.Warn("magic code burned after failed attempts", "user_id", pending.UserID, "attempts", attempts)
		return
	}
	data := make(map[string]any, len(pending.Data)+2)
	for k, v := range pending.Data {
		data[k] = v
	}
	data["token"] = pending.Token
	data[dataAttempts] = attempts
	if _, err := s.sessions.NewSession(ctx, pending.UserID, pending.ExpiresAt, data); err != nil {
		slog.Warn("failed to store magic code attempts", "user_id", pending.UserID, "err", err)
	}
}

// attemptsOf reads the failure count. Stores that round-trip through JSON hand
// numbers back as float64.
func attemptsOf(data map[string]any) int {
	switch v := data[dataAttempts].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// dropPreAuth deletes the pre-auth session only when it belongs to userID.
func (s *Service) dropPreAuth(ctx context.Context, userID, token string) {
	pre, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("failed to look up pre-auth session", "user_id", userID, "err", err)
		}
		return
	}
	if pre.UserID != userID {
		return
	}
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		slog.Warn("failed to delete pre-auth session", "user_id", userID, "err", err)
	}
}

// resolveUser picks the user by id, then by pre-auth session, then by username.
func (s *Service) resolveUser(ctx context.Context, req LinkRequest) (*domain.User, error) {
	switch {
	case req.UserID != "":
		u, err := s.users.Get(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		if !u.Enable {
			return nil, fmt.Errorf("user disabled: %w", domain.ErrForbidden)
		}
		return u, nil
	case req.SessionToken != "":
		sess, err := s.sessions.GetSession(ctx, req.SessionToken)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("unknown session: %w", domain.ErrUnauthorized)
		}
		if err != nil {
			return nil, err
		}
		if sess.Expired(s.now()) {
			return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
		}
		return s.resolveUser(ctx, LinkRequest{UserID: sess.UserID, Method: req.Method})
	default:
		return s.users.Lookup(ctx, req.Method, req.Username)
	}
}

func (s *Service) clearPending(ctx context.Context, userID string) {
	for i := 0; i < maxPending; i++ {
		old, err := s.sessions.GetConfirmationSessionByUserID(ctx, userID, domain.SessionTypeMagicLink)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				slog.Warn("failed to look up pending magic code", "user_id", userID, "err", err)
			}
			return
		}
		if err := s.sessions.DeleteSession(ctx, old.Token); err != nil {
			slog.Warn("failed to replace pending magic code", "user_id", userID, "err", err)
			return
		}
	}
}

func (s *Service) deliver(ctx context.Context, method domain.DeliveryMethod, to, userID, code string) error {
	minutes := int(s.ttl.Minutes())
	switch method {
	case domain.DeliverySMS:
		return s.sms.SendSMS(ctx, to, fmt.Sprintf("Your sign-in code is %s. It expires in %d minutes.", code, minutes))
	case domain.DeliveryPhoneCall:
		return s.caller.Call(ctx, to, "Your sign-in code is "+spell(code))
	default:
		body := fmt.Sprintf("Your sign-in code is %s. It expires in %d minutes.\n\nOr open this link to sign in:\n%s\n",
			code, minutes, s.submitLink(userID, code))
		return s.mailer.SendEmail(to, "Your sign-in code", body)
	}
}

func (s *Service) submitLink(userID, code string) string {
	q := url.Values{}
	q.Set("userId", userID)
	q.Set("method", string(domain.DeliveryEmail))
	q.Set("format", domain.MagicAuthFormatCode)
	q.Set("code", code)
	sep := "?"
	if strings.Contains(s.baseURL, "?") {
		sep = "&"
	}
	return s.baseURL + sep + q.Encode()
}

func destination(u *domain.User, method domain.DeliveryMethod) (string, error) {
	if method == domain.DeliveryEmail {
		return u.Email, nil
	}
	if u.Phone == nil || *u.Phone == "" {
		return "", fmt.Errorf("no phone number on account: %w", domain.ErrBadRequest)
	}
	return *u.Phone, nil
}

// spell separates digits so text-to-speech reads them one by one.
func spell(code string) string {
	return strings.Join(strings.Split(code, ""), ", ")
}
