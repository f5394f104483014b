package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-admin-auth/internal/domain"
)

// IssueResult is returned when a login session is created.
type IssueResult struct {
	Bearer  string
	Session *domain.Session
}

type Service interface {
	Issue(ctx context.Context, userID string) (*IssueResult, error)
	Current(ctx context.Context, token string) (*domain.Session, error)
	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, userID string) error
	Sweep(ctx context.Context) (int, error)
}

type jwtSigner interface {
	Sign(userID, sessionToken string, expiresAt time.Time) (string, error)
}

type ServiceDeps struct {
	Store       Persistence
	JWTProvider jwtSigner
	TTL         time.Duration
	Now         func() time.Time
}

type service struct {
	store Persistence
	jwt   jwtSigner
	ttl   time.Duration
	now   func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{store: deps.Store, jwt: deps.JWTProvider, ttl: deps.TTL, now: now}
}

func (s *service) Issue(ctx context.Context, userID string) (*IssueResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id required: %w", domain.ErrBadRequest)
	}
	expiresAt := s.now().UTC().Add(s.ttl).Truncate(Precision)
	data := map[string]any{"type": domain.SessionTypeLogin}
	token, err := s.store.NewSession(ctx, userID, expiresAt, data)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	sess := &domain.Session{Token: token, UserID: userID, ExpiresAt: expiresAt, Data: data}
	if s.jwt == nil {
		return &IssueResult{Session: sess}, nil
	}
	bearer, err := s.jwt.Sign(userID, token, expiresAt)
	if err != nil {
		if delErr := s.store.DeleteSession(ctx, token); delErr != nil {
			slog.Warn("failed to roll back session after signing error", "user_id", userID, "err", delErr)
		}
		return nil, fmt.Errorf("sign bearer: %w", err)
	}
	return &IssueResult{Bearer: bearer, Session: sess}, nil
}

func (s *service) Current(ctx context.Context, token string) (*domain.Session, error) {
	sess, err := s.store.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("session revoked: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if sess.Expired(s.now()) {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	return sess, nil
}

func (s *service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

func (s *service) LogoutAll(ctx context.Context, userID string) error {
	return s.store.DeleteAllSessionsForUser(ctx, userID)
}

func (s *service) Sweep(ctx context.Context) (int, error) {
	return s.store.CleanExpiredTokens(ctx)
}
