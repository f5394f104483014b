package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-admin-auth/internal/application/session"
	"github.com/go-admin-auth/internal/domain"
	pkgtoken "github.com/go-admin-auth/internal/pkg/token"
)

// sessionItem is the stored shape of a session.
// PK: token. GSI user_id-created_at_ns-index keeps insertion order per user.
type sessionItem struct {
	Token       string         `dynamodbav:"token"`
	UserID      string         `dynamodbav:"user_id"`
	ExpiresAt   int64          `dynamodbav:"expires_at"`
	ExpiresAtMs int64          `dynamodbav:"expires_at_ms"`
	CreatedAtNs int64          `dynamodbav:"created_at_ns"`
	Data        map[string]any `dynamodbav:"data,omitempty"`
}

func toSessionItem(s *domain.Session, createdAt time.Time) sessionItem {
	return sessionItem{
		Token:       s.Token,
		UserID:      s.UserID,
		ExpiresAt:   s.ExpiresAt.Unix(),
		ExpiresAtMs: s.ExpiresAt.UnixMilli(),
		CreatedAtNs: createdAt.UnixNano(),
		Data:        s.Data,
	}
}

func (it sessionItem) toDomain() *domain.Session {
	return &domain.Session{
		Token:     it.Token,
		UserID:    it.UserID,
		ExpiresAt: time.UnixMilli(it.ExpiresAtMs).UTC(),
		Data:      it.Data,
	}
}

// SessionRepo implements session.Persistence on a DynamoDB table.
// Expired rows are also dropped by DynamoDB TTL, which is lazy, so reads and the
// sweep compare expiry themselves.
//
// Per-user reads go through a GSI and are eventually consistent: a session
// written a moment ago may be missing from GetConfirmationSessionByUserID and
// DeleteAllSessionsForUser. GetSession reads the table and is strongly consistent.
type SessionRepo struct {
	client    API
	tableName string
	now       func() time.Time
}

var _ session.Persistence = (*SessionRepo)(nil)

func NewSessionRepo(client API, tableName string) *SessionRepo {
	return &SessionRepo{client: client, tableName: tableName, now: time.Now}
}

func (r *SessionRepo) NewSession(ctx context.Context, userID string, expiresAt time.Time, data map[string]any) (string, error) {
	token, payload := session.SplitToken(data)
	expiresAt = expiresAt.Truncate(session.Precision)
	if token == "" {
		var err error
		if token, err = pkgtoken.NewSessionToken(); err != nil {
			return "", err
		}
	}
	s := &domain.Session{Token: token, UserID: userID, ExpiresAt: expiresAt, Data: payload}
	item, err := attributevalue.MarshalMap(toSessionItem(s, r.now()))
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}); err != nil {
		return "", fmt.Errorf("put session: %w", err)
	}
	return token, nil
}

func (r *SessionRepo) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldToken, token),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	var it sessionItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	return it.toDomain(), nil
}

func (r *SessionRepo) DeleteSession(ctx context.Context, token string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldToken, token),
	})
	return err
}

func (r *SessionRepo) DeleteAllSessionsForUser(ctx context.Context, userID string) error {
	items, err := r.byUser(ctx, userID)
	if err != nil {
		return err
	}
	return r.deleteTokens(ctx, items, "user_id", userID)
}

func (r *SessionRepo) CleanExpiredTokens(ctx context.Context) (int, error) {
	nowMs := r.now().UnixMilli()
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String("#exp < :now"),
		ProjectionExpression:      aws.String("#tok, #exp"),
		ExpressionAttributeNames:  map[string]string{"#exp": fieldExpiresAtMs, "#tok": fieldToken},
		ExpressionAttributeValues: numValue(":now", nowMs),
	})
	var expired []sessionItem
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("scan sessions: %w", err)
		}
		var items []sessionItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return 0, err
		}
		for _, it := range items {
			if it.ExpiresAtMs < nowMs {
				expired = append(expired, it)
			}
		}
	}
	if err := r.deleteTokens(ctx, expired, "sweep", "expired"); err != nil {
		return 0, err
	}
	return len(expired), nil
}

func (r *SessionRepo) GetConfirmationSessionByUserID(ctx context.Context, userID, sessionType string) (*domain.Session, error) {
	items, err := r.byUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := r.now()
	for _, it := range items {
		s := it.toDomain()
		if session.IsConfirmation(s, userID, sessionType, now) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("confirmation session not found: %w", domain.ErrNotFound)
}

// byUser returns the user's sessions in creation order.
func (r *SessionRepo) byUser(ctx context.Context, userID string) ([]sessionItem, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexUserCreated),
		KeyConditionExpression:    aws.String("user_id = :uid"),
		ExpressionAttributeValues: strValue(":uid", userID),
		ScanIndexForward:          aws.Bool(true),
	})
	var out []sessionItem
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query sessions by user: %w", err)
		}
		var items []sessionItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

// deleteTokens deletes every item and returns the first failure after trying all.
func (r *SessionRepo) deleteTokens(ctx context.Context, items []sessionItem, logKey, logVal string) error {
	var firstErr error
	for _, it := range items {
		if err := r.DeleteSession(ctx, it.Token); err != nil {
			slog.Warn("failed to delete session", logKey, logVal, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
