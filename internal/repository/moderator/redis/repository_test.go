package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchroom/server/internal/repository/moderator"
)

func newTestRepo(t *testing.T) *repo {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return NewRepo(redis.NewClient(&redis.Options{Addr: s.Addr()}))
}

func TestModerators(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	isMod, err := r.IsModerator(ctx, "room-1", "user-1")
	require.NoError(t, err)
	assert.False(t, isMod)

	require.NoError(t, r.AddModerator(ctx, "room-1", "user-1"))

	isMod, err = r.IsModerator(ctx, "room-1", "user-1")
	require.NoError(t, err)
	assert.True(t, isMod)

	err = r.AddModerator(ctx, "room-1", "user-1")
	assert.ErrorIs(t, err, moderator.ErrAlreadyModerator)

	require.NoError(t, r.RemoveModerator(ctx, "room-1", "user-1"))

	isMod, err = r.IsModerator(ctx, "room-1", "user-1")
	require.NoError(t, err)
	assert.False(t, isMod)

	err = r.RemoveModerator(ctx, "room-1", "user-1")
	assert.ErrorIs(t, err, moderator.ErrModeratorNotFound)
}

func TestOwner(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	isOwner, err := r.IsOwner(ctx, "room-1", "user-1")
	require.NoError(t, err)
	assert.False(t, isOwner, "no owner key means nobody owns the room")

	require.NoError(t, r.SetOwner(ctx, "room-1", "user-1"))

	isOwner, err = r.IsOwner(ctx, "room-1", "user-1")
	require.NoError(t, err)
	assert.True(t, isOwner)

	isOwner, err = r.IsOwner(ctx, "room-1", "user-2")
	require.NoError(t, err)
	assert.False(t, isOwner)
}
