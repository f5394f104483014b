package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-admin-auth/internal/domain"
	"github.com/go-admin-auth/internal/pkg/id"
	"github.com/go-admin-auth/internal/pkg/validate"
)

// Service is the user directory magic-code sign-in resolves accounts against.
type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	// Lookup finds an enabled user by the username for a delivery method:
	// the email address for email, the phone number for sms and phonecall.
	Lookup(ctx context.Context, method domain.DeliveryMethod, username string) (*domain.User, error)
	// EnsureSeed registers the user unless the email is already known.
	EnsureSeed(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
}

type service struct {
	repo userStore
	now  func() time.Time
}

type ServiceDeps struct {
	UserRepo userStore
	Now      func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: deps.UserRepo, now: now}
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if req.Phone != nil {
		if _, err := s.repo.GetByPhone(ctx, *req.Phone); err == nil {
			return nil, fmt.Errorf("phone already registered: %w", domain.ErrConflict)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	now := s.now().UTC()
	u := &domain.User{
		UserID:    id.New(),
		Email:     req.Email,
		Phone:     req.Phone,
		Enable:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) Lookup(ctx context.Context, method domain.DeliveryMethod, username string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required: %w", domain.ErrBadRequest)
	}
	var (
		u   *domain.User
		err error
	)
	switch method {
	case domain.DeliveryEmail:
		u, err = s.repo.GetByEmail(ctx, normalizeEmail(username))
	case domain.DeliverySMS, domain.DeliveryPhoneCall:
		u, err = s.repo.GetByPhone(ctx, username)
	default:
		return nil, fmt.Errorf("unknown delivery method %q: %w", method, domain.ErrBadRequest)
	}
	if err != nil {
		return nil, err
	}
	if !u.Enable {
		return nil, fmt.Errorf("user disabled: %w", domain.ErrForbidden)
	}
	return u, nil
}

func (s *service) EnsureSeed(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if u, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email)); err == nil {
		return u, nil
	}
	return s.Register(ctx, req)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
