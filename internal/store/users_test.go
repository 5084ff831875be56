package store

import (
	"context"
	"testing"
	"time"

	"affiliate-link/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureAdmin(t *testing.T) {
	_, db, _ := setupStore(t)
	users := NewUsers(db)
	ctx := context.Background()

	created, err := users.EnsureAdmin(ctx, "admin", "secret")
	require.NoError(t, err)
	assert.True(t, created)

	// 已存在时不覆盖密码
	created, err = users.EnsureAdmin(ctx, "admin", "other")
	require.NoError(t, err)
	assert.False(t, created)

	user, err := users.FindByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, user.Role)
	assert.True(t, user.IsActive)
	assert.True(t, user.CheckPassword("secret"))
	assert.False(t, user.CheckPassword("other"))

	created, err = users.EnsureAdmin(ctx, "admin2", "")
	require.NoError(t, err)
	assert.False(t, created, "没有密码时不创建")
}

func TestFindUser(t *testing.T) {
	_, db, _ := setupStore(t)
	users := NewUsers(db)
	ctx := context.Background()

	_, err := users.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = users.FindByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = users.EnsureAdmin(ctx, "admin", "secret")
	require.NoError(t, err)
	user, err := users.FindByUsername(ctx, "admin")
	require.NoError(t, err)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, users.TouchLastLogin(ctx, user.ID, at))

	byID, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID.LastLogin)
	assert.True(t, at.Equal(*byID.LastLogin))
}
