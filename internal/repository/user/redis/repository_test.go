package redis

import (
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchroom/server/internal/repository/user"
)

func newTestRepo(t *testing.T) *repo {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return NewRepo(redis.NewClient(&redis.Options{Addr: s.Addr()}), slog.Default())
}

func seedUser(t *testing.T, r *repo, userID, token string, isLeader bool) {
	t.Helper()

	require.NoError(t, r.SetUser(context.Background(), &user.SetUserParams{
		UserID:   userID,
		Username: "user-" + userID,
		Token:    token,
		RoomID:   "room-1",
		IsLeader: isLeader,
	}))
}

func TestGetUserByToken(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	seedUser(t, r, "user-1", "token-1", true)

	u, err := r.GetUserByToken(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", u.ID)
	assert.Equal(t, "user-user-1", u.Username)
	assert.Equal(t, "room-1", u.RoomID)
	assert.True(t, u.IsLeader)

	_, err = r.GetUserByToken(ctx, "unknown-token")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestSetLeader(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	seedUser(t, r, "user-1", "token-1", true)
	seedUser(t, r, "user-2", "token-2", false)

	require.NoError(t, r.SetLeader(ctx, &user.SetLeaderParams{
		RoomID:      "room-1",
		OldLeaderID: "user-1",
		NewLeaderID: "user-2",
	}))

	leaderID, err := r.GetRoomLeader(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, "user-2", leaderID)

	oldLeader, err := r.GetUserByToken(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, oldLeader.IsLeader, "old leader flag must be cleared")

	newLeader, err := r.GetUserByToken(ctx, "token-2")
	require.NoError(t, err)
	assert.True(t, newLeader.IsLeader)
}

func TestClearSession(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	t.Run("leader clears the leader reference", func(t *testing.T) {
		seedUser(t, r, "user-1", "token-1", true)

		require.NoError(t, r.ClearSession(ctx, "user-1"))

		u, err := r.GetUserByToken(ctx, "token-1")
		require.NoError(t, err)
		assert.Empty(t, u.RoomID)
		assert.False(t, u.IsLeader)

		_, err = r.GetRoomLeader(ctx, "room-1")
		assert.ErrorIs(t, err, user.ErrNoLeader)
	})

	t.Run("follower leaves the leader reference alone", func(t *testing.T) {
		seedUser(t, r, "user-1", "token-1", true)
		seedUser(t, r, "user-2", "token-2", false)

		require.NoError(t, r.ClearSession(ctx, "user-2"))

		leaderID, err := r.GetRoomLeader(ctx, "room-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", leaderID)
	})
}

func TestGetRoomLeader(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.GetRoomLeader(context.Background(), "no-such-room")
	assert.ErrorIs(t, err, user.ErrNoLeader)
}
