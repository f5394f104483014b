package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-admin-auth/internal/application/session"
	"github.com/go-admin-auth/internal/domain"
	pkgtoken "github.com/go-admin-auth/internal/pkg/token"
)

// SessionStore keeps sessions in a slice in insertion order. It is the reference
// implementation of session.Persistence and is meant for development and tests:
// there is no indexing and nothing survives a restart.
type SessionStore struct {
	mu       sync.Mutex
	sessions []domain.Session
	now      func() time.Time
}

var _ session.Persistence = (*SessionStore)(nil)

func NewSessionStore() *SessionStore {
	return &SessionStore{now: time.Now}
}

// WithClock replaces the time source used for expiry checks.
func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	s.now = now
	return s
}

func (s *SessionStore) NewSession(_ context.Context, userID string, expiresAt time.Time, data map[string]any) (string, error) {
	token, payload := session.SplitToken(data)
	expiresAt = expiresAt.Truncate(session.Precision)
	if token == "" {
		var err error
		if token, err = pkgtoken.NewSessionToken(); err != nil {
			return "", err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, domain.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		Data:      payload,
	})
	return token, nil
}

func (s *SessionStore) GetSession(_ context.Context, token string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sessions {
		if s.sessions[i].Token == token {
			return clone(s.sessions[i]), nil
		}
	}
	return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
}

func (s *SessionStore) DeleteSession(_ context.Context, token string) error {
	s.remove(func(sess *domain.Session) bool { return sess.Token == token })
	return nil
}

func (s *SessionStore) DeleteAllSessionsForUser(_ context.Context, userID string) error {
	s.remove(func(sess *domain.Session) bool { return sess.UserID == userID })
	return nil
}

func (s *SessionStore) CleanExpiredTokens(_ context.Context) (int, error) {
	now := s.now()
	return s.remove(func(sess *domain.Session) bool { return sess.Expired(now) }), nil
}

func (s *SessionStore) GetConfirmationSessionByUserID(_ context.Context, userID, sessionType string) (*domain.Session, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sessions {
		if session.IsConfirmation(&s.sessions[i], userID, sessionType, now) {
			return clone(s.sessions[i]), nil
		}
	}
	return nil, fmt.Errorf("confirmation session not found: %w", domain.ErrNotFound)
}

// Len returns the number of stored sessions, expired ones included.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// remove drops every session matching fn, keeping the order of the rest.
func (s *SessionStore) remove(fn func(*domain.Session) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.sessions[:0]
	removed := 0
	for i := range s.sessions {
		if fn(&s.sessions[i]) {
			removed++
			continue
		}
		kept = append(kept, s.sessions[i])
	}
	for i := len(kept); i < len(s.sessions); i++ {
		s.sessions[i] = domain.Session{}
	}
	s.sessions = kept
	return removed
}

// clone copies a session so callers cannot mutate stored payloads.
func clone(src domain.Session) *domain.Session {
	out := src
	if src.Data != nil {
		out.Data = make(map[string]any, len(src.Data))
		for k, v := range src.Data {
			out.Data[k] = v
		}
	}
	return &out
}
