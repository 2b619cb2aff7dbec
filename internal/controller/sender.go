package controller

import (
	"context"
	"errors"

	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/wsconn"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (c controller) send(conn *wsconn.Conn, messageType string, payload any) error {
	return conn.WriteJSON(&Output{Type: messageType, Payload: payload})
}

func (c controller) broadcast(ctx context.Context, conns []*wsconn.Conn, out *Output) {
	for _, conn := range conns {
		if err := conn.WriteJSON(out); err != nil {
			c.logger.InfoContext(ctx, "failed to write to conn", "error", err)
		}
	}
}

func (c controller) notify(conn *wsconn.Conn, text string) {
	if conn == nil {
		return
	}
	if err := c.send(conn, "notification", text); err != nil {
		c.logger.Info("failed to write notification", "error", err)
	}
}

// writeError reports a failed action to its sender only, with a
// user-visible reason. Denials and validation failures never mutate
// state, so nothing else is broadcast.
func (c controller) writeError(ctx context.Context, conn *wsconn.Conn, err error) {
	message := "internal error"
	switch {
	case errors.Is(err, room.ErrInvalidVideoURL):
		message = "URL is not valid"
	case errors.Is(err, room.ErrNotLeader):
		message = "Only the room leader can do that"
	case errors.Is(err, room.ErrNotOwner):
		message = "Only the room owner can manage moderators"
	case errors.Is(err, room.ErrNotModerator):
		message = "Only the moderators can kick users from the room"
	case errors.Is(err, room.ErrMemberNotFound):
		message = "User not found"
	case errors.Is(err, room.ErrVideoNotFound):
		message = "Error removing the video from the room queue"
	case errors.Is(err, room.ErrNoCurrentVideo):
		message = "Error retrieving the next video from the queue"
	case errors.Is(err, room.ErrAlreadyModerator):
		message = "Error assigning the moderator"
	case errors.Is(err, room.ErrModeratorNotFound), errors.Is(err, room.ErrOwnerImmutable):
		message = "Error removing the moderator"
	case errors.Is(err, room.ErrQueueLimitReached):
		message = "The room queue is full"
	case errors.Is(err, room.ErrMembersLimitReached):
		message = "The room is full"
	}

	if writeErr := c.send(conn, "error", map[string]string{"message": message}); writeErr != nil {
		c.logger.InfoContext(ctx, "failed to write error", "error", writeErr)
	}
}
