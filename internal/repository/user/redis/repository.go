package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/watchroom/server/internal/repository/user"
)

type repo struct {
	rc     *redis.Client
	logger *slog.Logger
}

func NewRepo(rc *redis.Client, logger *slog.Logger) *repo {
	return &repo{
		rc:     rc,
		logger: logger,
	}
}

func (r repo) getUserKey(userID string) string {
	return "user:" + userID
}

func (r repo) getTokenKey(token string) string {
	return "user:token:" + token
}

func (r repo) getRoomLeaderKey(roomID string) string {
	return "room:" + roomID + ":leader"
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}

// SetUser writes a user record and its session token. In the full
// deployment the account web-app owns these rows; the coordinator only
// needs this for seeding.
func (r repo) SetUser(ctx context.Context, params *user.SetUserParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	pipe.HSet(ctx, r.getUserKey(params.UserID), map[string]any{
		"id":        params.UserID,
		"username":  params.Username,
		"room_id":   params.RoomID,
		"is_leader": params.IsLeader,
	})
	pipe.Set(ctx, r.getTokenKey(params.Token), params.UserID, 0)
	if params.IsLeader {
		pipe.Set(ctx, r.getRoomLeaderKey(params.RoomID), params.UserID, 0)
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set user: %w", err)
	}

	return nil
}

func (r repo) GetUserByToken(ctx context.Context, token string) (user.User, error) {
	userID, err := r.rc.Get(ctx, r.getTokenKey(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return user.User{}, user.ErrUserNotFound
		}
		return user.User{}, fmt.Errorf("failed to get user id by token: %w", err)
	}

	var u user.User
	if err := r.rc.HGetAll(ctx, r.getUserKey(userID)).Scan(&u); err != nil {
		return user.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	if u.ID == "" {
		return user.User{}, user.ErrUserNotFound
	}

	return u, nil
}

// ClearSession ends a user's live session: the session flags are reset
// and, if the user was recorded as its room's leader, the leader
// reference is dropped with them.
func (r repo) ClearSession(ctx context.Context, userID string) error {
	r.logger.DebugContext(ctx, "called", "user_id", userID)
	userKey := r.getUserKey(userID)

	roomID, err := r.rc.HGet(ctx, userKey, "room_id").Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to get user room id: %w", err)
	}

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, userKey, "room_id", "", "is_leader", false)
	if roomID != "" {
		leaderID, err := r.rc.Get(ctx, r.getRoomLeaderKey(roomID)).Result()
		if err == nil && leaderID == userID {
			pipe.Del(ctx, r.getRoomLeaderKey(roomID))
		}
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	return nil
}

// SetLeader commits a leadership hand-off. The old leader's flag is
// cleared before the new one is set and both writes land in a single
// transaction, so persisted state never shows two leaders and a failed
// exec leaves it untouched.
func (r repo) SetLeader(ctx context.Context, params *user.SetLeaderParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	if params.OldLeaderID != "" {
		pipe.HSet(ctx, r.getUserKey(params.OldLeaderID), "is_leader", false)
	}
	pipe.HSet(ctx, r.getUserKey(params.NewLeaderID), "is_leader", true)
	pipe.Set(ctx, r.getRoomLeaderKey(params.RoomID), params.NewLeaderID, 0)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set leader: %w", err)
	}

	return nil
}

func (r repo) GetRoomLeader(ctx context.Context, roomID string) (string, error) {
	leaderID, err := r.rc.Get(ctx, r.getRoomLeaderKey(roomID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", user.ErrNoLeader
		}
		return "", fmt.Errorf("failed to get room leader: %w", err)
	}

	return leaderID, nil
}
