// Package redisstore keeps sessions in Redis.
//
// Layout, under a configurable prefix:
//
//	session:<token>        JSON record
//	user_sessions:<userID> list of the user's tokens in creation order
//	session_expiry         sorted set of tokens scored by expiry (unix ms)
//
// Keys carry no Redis TTL; expiry is handled by CleanExpiredTokens so that an
// expired session stays readable until it is swept.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-admin-auth/internal/application/session"
	"github.com/go-admin-auth/internal/domain"
	pkgtoken "github.com/go-admin-auth/internal/pkg/token"
	"github.com/redis/go-redis/v9"
)

type record struct {
	Token     string         `json:"token"`
	UserID    string         `json:"user_id"`
	ExpiresAt time.Time      `json:"expires_at"`
	Data      map[string]any `json:"data,omitempty"`
}

func (r record) toDomain() *domain.Session {
	return &domain.Session{Token: r.Token, UserID: r.UserID, ExpiresAt: r.ExpiresAt, Data: r.Data}
}

// SessionStore implements session.Persistence on Redis.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ session.Persistence = (*SessionStore)(nil)

func NewSessionStore(client redis.UniversalClient, prefix string) *SessionStore {
	return &SessionStore{client: client, prefix: prefix, now: time.Now}
}

// NewClient connects to Redis and pings it.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func (s *SessionStore) tokenKey(token string) string { return s.prefix + "session:" + token }
func (s *SessionStore) userKey(userID string) string { return s.prefix + "user_sessions:" + userID }
func (s *SessionStore) expiryKey() string            { return s.prefix + "session_expiry" }

func (s *SessionStore) NewSession(ctx context.Context, userID string, expiresAt time.Time, data map[string]any) (string, error) {
	token, payload := session.SplitToken(data)
	expiresAt = expiresAt.Truncate(session.Precision)
	if token == "" {
		var err error
		if token, err = pkgtoken.NewSessionToken(); err != nil {
			return "", err
		}
	}
	blob, err := json.Marshal(record{Token: token, UserID: userID, ExpiresAt: expiresAt, Data: payload})
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(token), blob, 0)
		pipe.RPush(ctx, s.userKey(userID), token)
		pipe.ZAdd(ctx, s.expiryKey(), redis.Z{Score: float64(expiresAt.UnixMilli()), Member: token})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (s *SessionStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, s.tokenKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return rec.toDomain(), nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, token string) error {
	recs, err := s.load(ctx, []string{token})
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.tokenKey(token))
		pipe.ZRem(ctx, s.expiryKey(), token)
		for _, rec := range recs {
			pipe.LRem(ctx, s.userKey(rec.UserID), 0, token)
		}
		return nil
	})
	return err
}

func (s *SessionStore) DeleteAllSessionsForUser(ctx context.Context, userID string) error {
	recs, err := s.byUser(ctx, userID)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, rec := range recs {
			pipe.Del(ctx, s.tokenKey(rec.Token))
			pipe.ZRem(ctx, s.expiryKey(), rec.Token)
		}
		pipe.Del(ctx, s.userKey(userID))
		return nil
	})
	return err
}

func (s *SessionStore) CleanExpiredTokens(ctx context.Context) (int, error) {
	now := s.now()
	tokens, err := s.client.ZRangeByScore(ctx, s.expiryKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("range expired sessions: %w", err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}
	recs, err := s.load(ctx, tokens)
	if err != nil {
		return 0, err
	}
	expired := make([]record, 0, len(recs))
	for _, rec := range recs {
		if rec.ExpiresAt.Before(now) {
			expired = append(expired, rec)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, rec := range expired {
			pipe.Del(ctx, s.tokenKey(rec.Token))
			pipe.ZRem(ctx, s.expiryKey(), rec.Token)
			pipe.LRem(ctx, s.userKey(rec.UserID), 0, rec.Token)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	slog.Debug("swept expired sessions", "count", len(expired))
	return len(expired), nil
}

func (s *SessionStore) GetConfirmationSessionByUserID(ctx context.Context, userID, sessionType string) (*domain.Session, error) {
	recs, err := s.byUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for _, rec := range recs {
		sess := rec.toDomain()
		if session.IsConfirmation(sess, userID, sessionType, now) {
			return sess, nil
		}
	}
	return nil, fmt.Errorf("confirmation session not found: %w", domain.ErrNotFound)
}

// byUser loads the user's records in creation order. Tokens whose record now
// belongs to someone else or no longer exists are skipped.
func (s *SessionStore) byUser(ctx context.Context, userID string) ([]record, error) {
	tokens, err := s.client.LRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}
	recs, err := s.load(ctx, tokens)
	if err != nil {
		return nil, err
	}
	out := recs[:0]
	for _, rec := range recs {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *SessionStore) load(ctx context.Context, tokens []string) ([]record, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = s.tokenKey(t)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	return decodeRecords(vals)
}

// decodeRecords decodes MGET replies, skipping nil entries for missing keys.
func decodeRecords(vals []any) ([]record, error) {
	out := make([]record, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
