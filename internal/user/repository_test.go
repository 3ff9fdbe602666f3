package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropi/cropi/internal/user"
)

func token(s string) *string { return &s }

func TestUser_CanReceivePush(t *testing.T) {
	assert.False(t, (&user.User{}).CanReceivePush())
	assert.False(t, (&user.User{NotificationToken: token("")}).CanReceivePush())
	assert.True(t, (&user.User{NotificationToken: token("tok")}).CanReceivePush())
}

func TestInMemoryRepository_Get(t *testing.T) {
	ctx := context.Background()
	repo := user.NewInMemoryRepository()
	repo.Add(&user.User{ID: "u1", Name: "Ana", NotificationToken: token("tok-1")})

	u, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)

	*u.NotificationToken = "changed"
	again, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", *again.NotificationToken)

	_, err = repo.Get(ctx, "u2")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestInMemoryRepository_ListGrowersAtStation(t *testing.T) {
	ctx := context.Background()
	repo := user.NewInMemoryRepository()
	repo.Add(&user.User{ID: "u2"})
	repo.Add(&user.User{ID: "u1"})
	repo.Add(&user.User{ID: "u3"})

	repo.AddGrower(10, 1, "u2")
	repo.AddGrower(10, 1, "u1")
	repo.AddGrower(10, 1, "u2")
	repo.AddGrower(10, 2, "u3")
	repo.AddGrower(11, 1, "u3")

	growers, err := repo.ListGrowersAtStation(ctx, 10, 1)
	require.NoError(t, err)
	require.Len(t, growers, 2)
	assert.Equal(t, "u1", growers[0].ID)
	assert.Equal(t, "u2", growers[1].ID)

	growers, err = repo.ListGrowersAtStation(ctx, 12, 1)
	require.NoError(t, err)
	assert.Empty(t, growers)
}
