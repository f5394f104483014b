package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/go-admin-auth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore_Lookups(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	phone := "+15550001111"
	require.NoError(t, s.Put(ctx, &domain.User{UserID: "u1", Email: "a@example.com", Phone: &phone}))
	require.NoError(t, s.Put(ctx, &domain.User{UserID: "u2", Email: "b@example.com"}))

	u, err := s.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", u.Email)

	u, err = s.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)

	u, err = s.GetByPhone(ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)

	_, err = s.GetByPhone(ctx, "+19999999999")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = s.Get(ctx, "u3")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
