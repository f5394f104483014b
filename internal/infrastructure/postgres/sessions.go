// Package postgres keeps sessions in a PostgreSQL table through pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-admin-auth/internal/application/session"
	"github.com/go-admin-auth/internal/domain"
	pkgtoken "github.com/go-admin-auth/internal/pkg/token"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	seq        BIGSERIAL   NOT NULL,
	token      TEXT        PRIMARY KEY,
	user_id    TEXT        NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	data       JSONB
);
CREATE INDEX IF NOT EXISTS sessions_user_id_seq_idx ON sessions (user_id, seq);
CREATE INDEX IF NOT EXISTS sessions_expires_at_idx ON sessions (expires_at);
`

// db is the part of pgxpool.Pool the store needs.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SessionStore implements session.Persistence on PostgreSQL.
type SessionStore struct {
	db  db
	now func() time.Time
}

var _ session.Persistence = (*SessionStore)(nil)

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{db: pool, now: time.Now}
}

// Connect opens a pool and makes sure the sessions table exists.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate sessions: %w", err)
	}
	return pool, nil
}

// NewSession stores the session. A token that already exists is replaced.
func (s *SessionStore) NewSession(ctx context.Context, userID string, expiresAt time.Time, data map[string]any) (string, error) {
	token, payload := session.SplitToken(data)
	expiresAt = expiresAt.Truncate(session.Precision)
	if token == "" {
		var err error
		if token, err = pkgtoken.NewSessionToken(); err != nil {
			return "", err
		}
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (token, user_id, expires_at, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO UPDATE
		SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at, data = EXCLUDED.data
	`, token, userID, expiresAt.UTC(), payload)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return token, nil
}

func (s *SessionStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT token, user_id, expires_at, data
		FROM sessions
		WHERE token = $1
	`, token)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

func (s *SessionStore) DeleteAllSessionsForUser(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (s *SessionStore) CleanExpiredTokens(ctx context.Context) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *SessionStore) GetConfirmationSessionByUserID(ctx context.Context, userID, sessionType string) (*domain.Session, error) {
	if sessionType == "" {
		return nil, fmt.Errorf("confirmation session not found: %w", domain.ErrNotFound)
	}
	row := s.db.QueryRow(ctx, `
		SELECT token, user_id, expires_at, data
		FROM sessions
		WHERE user_id = $1 AND data->>'type' = $2 AND expires_at >= $3
		ORDER BY seq
		LIMIT 1
	`, userID, sessionType, s.now().UTC())
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("confirmation session not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var sess domain.Session
	if err := row.Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.Data); err != nil {
		return nil, err
	}
	sess.ExpiresAt = sess.ExpiresAt.UTC()
	return &sess, nil
}
