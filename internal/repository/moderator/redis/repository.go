package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/watchroom/server/internal/repository/moderator"
)

type repo struct {
	rc *redis.Client
}

func NewRepo(rc *redis.Client) *repo {
	return &repo{rc: rc}
}

func (r repo) getModeratorsKey(roomID string) string {
	return "room:" + roomID + ":moderators"
}

func (r repo) getOwnerKey(roomID string) string {
	return "room:" + roomID + ":owner"
}

func (r repo) IsModerator(ctx context.Context, roomID, userID string) (bool, error) {
	isMod, err := r.rc.SIsMember(ctx, r.getModeratorsKey(roomID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check moderator: %w", err)
	}

	return isMod, nil
}

func (r repo) AddModerator(ctx context.Context, roomID, userID string) error {
	added, err := r.rc.SAdd(ctx, r.getModeratorsKey(roomID), userID).Result()
	if err != nil {
		return fmt.Errorf("failed to add moderator: %w", err)
	}

	if added == 0 {
		return moderator.ErrAlreadyModerator
	}

	return nil
}

func (r repo) RemoveModerator(ctx context.Context, roomID, userID string) error {
	removed, err := r.rc.SRem(ctx, r.getModeratorsKey(roomID), userID).Result()
	if err != nil {
		return fmt.Errorf("failed to remove moderator: %w", err)
	}

	if removed == 0 {
		return moderator.ErrModeratorNotFound
	}

	return nil
}

func (r repo) IsOwner(ctx context.Context, roomID, userID string) (bool, error) {
	ownerID, err := r.rc.Get(ctx, r.getOwnerKey(roomID)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get room owner: %w", err)
	}

	return ownerID == userID, nil
}

// SetOwner records the room's creator. Owned by the account web-app in
// the full deployment, used here for seeding.
func (r repo) SetOwner(ctx context.Context, roomID, userID string) error {
	if err := r.rc.Set(ctx, r.getOwnerKey(roomID), userID, 0).Err(); err != nil {
		return fmt.Errorf("failed to set room owner: %w", err)
	}

	return nil
}
