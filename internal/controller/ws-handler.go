package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/watchroom/server/internal/repository/playerstate"
	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/wsconn"
)

func (c controller) unmarshalInput(payload json.RawMessage, input any) error {
	if err := json.Unmarshal(payload, input); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("invalid payload: %v", validationErrors)
	}

	return nil
}

type SetLeaderInput struct {
	UserID string `json:"user_id" validate:"required"`
}

func (c controller) handleSetLeader(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var input SetLeaderInput
	if err := c.unmarshalInput(payload, &input); err != nil {
		return err
	}

	resp, err := c.roomService.TransferLeadership(ctx, &room.TransferLeadershipParams{
		SenderID:    c.getMemberIDFromCtx(ctx),
		RoomID:      c.getRoomIDFromCtx(ctx),
		NewLeaderID: input.UserID,
	})
	if err != nil {
		return fmt.Errorf("failed to transfer leadership: %w", err)
	}

	if resp.NewLeaderConn != nil {
		if err := c.send(resp.NewLeaderConn, "leader_assigned", nil); err != nil {
			c.logger.InfoContext(ctx, "failed to notify new leader", "error", err)
		}
	}
	c.broadcast(ctx, resp.Conns, &Output{Type: "update_user_list", Payload: resp.Members})

	return nil
}

type AddVideoInput struct {
	URL string `json:"url" validate:"required"`
}

func (c controller) handleAddVideo(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var input AddVideoInput
	if err := c.unmarshalInput(payload, &input); err != nil {
		return err
	}

	resp, err := c.roomService.AddVideo(ctx, &room.AddVideoParams{
		SenderID: c.getMemberIDFromCtx(ctx),
		RoomID:   c.getRoomIDFromCtx(ctx),
		URL:      input.URL,
	})
	if err != nil {
		return fmt.Errorf("failed to add video: %w", err)
	}

	c.broadcast(ctx, resp.Conns, &Output{Type: "update_video_list", Payload: resp.Videos})
	if resp.BecameCurrent {
		c.broadcast(ctx, resp.Conns, &Output{Type: "play", Payload: 0})
	}

	return nil
}

type RemoveVideoInput struct {
	VideoID string `json:"video_id" validate:"required"`
}

func (c controller) handleRemoveVideo(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var input RemoveVideoInput
	if err := c.unmarshalInput(payload, &input); err != nil {
		return err
	}

	resp, err := c.roomService.RemoveVideo(ctx, &room.RemoveVideoParams{
		SenderID: c.getMemberIDFromCtx(ctx),
		RoomID:   c.getRoomIDFromCtx(ctx),
		VideoID:  input.VideoID,
	})
	if err != nil {
		return fmt.Errorf("failed to remove video: %w", err)
	}

	c.broadcast(ctx, resp.Conns, &Output{Type: "update_video_list", Payload: resp.Videos})
	if resp.WasCurrent {
		c.broadcast(ctx, resp.Conns, &Output{Type: "play", Payload: 0})
	}

	return nil
}

func (c controller) handleEnded(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	resp, err := c.roomService.VideoEnded(ctx, &room.VideoEndedParams{
		SenderID: c.getMemberIDFromCtx(ctx),
		RoomID:   c.getRoomIDFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to advance queue: %w", err)
	}

	c.broadcast(ctx, resp.Conns, &Output{Type: "update_video_list", Payload: resp.Videos})
	c.broadcast(ctx, resp.Conns, &Output{Type: "play", Payload: 0})

	return nil
}

type PlaybackInput struct {
	Position float64 `json:"position"`
}

// Playback actions from the leader are relayed verbatim to the rest of
// the room; a follower's action is swallowed and, when it disagrees
// with the leader's reported state, answered with a correction to the
// sender alone.
func (c controller) handleResume(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var input PlaybackInput
	if err := c.unmarshalInput(payload, &input); err != nil {
		return err
	}

	resp, err := c.roomService.ResumePlayback(ctx, &room.SyncPlaybackParams{
		SenderID: c.getMemberIDFromCtx(ctx),
		RoomID:   c.getRoomIDFromCtx(ctx),
		Position: input.Position,
	})
	if err != nil {
		return fmt.Errorf("failed to sync resume: %w", err)
	}

	if resp.Broadcast {
		c.broadcast(ctx, resp.Conns, &Output{Type: "resume", Payload: input.Position})
	} else if resp.Correction != nil {
		return c.send(conn, "pause", resp.Correction.Position)
	}

	return nil
}

func (c controller) handlePause(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var input PlaybackInput
	if err := c.unmarshalInput(payload, &input); err != nil {
		return err
	}

	resp, err := c.roomService.PausePlayback(ctx, &room.SyncPlaybackParams{
		SenderID: c.getMemberIDFromCtx(ctx),
		RoomID:   c.getRoomIDFromCtx(ctx),
		Position: input.Position,
	})
	if err != nil {
		return fmt.Errorf("failed to sync pause: %w", err)
	}

	if resp.Broadcast {
		c.broadcast(ctx, resp.Conns, &Output{Type: "pause", Payload: input.Position})
	} else if resp.Correction != nil {
		return c.send(conn, "resume", resp.Correction.Position)
	}

	return nil
}

func (c controller) handleSeek(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var input PlaybackInput
	if err := c.unmarshalInput(payload, &input); err != nil {
		return err
	}

	resp, err := c.roomService.SeekPlayback(ctx, &room.SyncPlaybackParams{
		SenderID: c.getMemberIDFromCtx(ctx),
		RoomID:   c.getRoomIDFromCtx(ctx),
		Position: input.Position,
	})
	if err != nil {
		return fmt.Errorf("failed to sync seek: %w", err)
	}

	if resp.Broadcast {
		c.broadcast(ctx, resp.Conns, &Output{Type: "seek", Payload: input.Position})
	} else if resp.Correction != nil {
		return c.send(conn, "seek", resp.Correction.Position)
	}

	return nil
}

type StateResponseInput struct {
	RequestID string  `json:"request_id" validate:"required"`
	Position  float64 `json:"position"`
	Paused    bool    `json:"paused"`
}

func (c controller) handleStateResponse(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var input StateResponseInput
	if err := c.unmarshalInput(payload, &input); err != nil {
		return err
	}

	if err := c.stateResolver.Resolve(input.RequestID, playerstate.State{
		Position: input.Position,
		Paused:   input.Paused,
	}); err != nil {
		// Reply arrived after the requester's timeout, nothing to do.
		c.logger.DebugContext(ctx, "late state response", "request_id", input.RequestID)
	}

	return nil
}

type ModerationInput struct {
	UserID string `json:"user_id" validate:"required"`
}

func (c controller) handleAssignMod(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var input ModerationInput
	if err := c.unmarshalInput(payload, &input); err != nil {
		return err
	}

	resp, err := c.roomService.AssignModerator(ctx, &room.AssignModeratorParams{
		SenderID: c.getMemberIDFromCtx(ctx),
		RoomID:   c.getRoomIDFromCtx(ctx),
		TargetID: input.UserID,
	})
	if err != nil {
		return fmt.Errorf("failed to assign moderator: %w", err)
	}

	c.notify(resp.TargetConn, "You have been assigned as moderator")
	c.broadcast(ctx, resp.Conns, &Output{Type: "update_user_list", Payload: resp.Members})

	return nil
}

func (c controller) handleRemoveMod(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var input ModerationInput
	if err := c.unmarshalInput(payload, &input); err != nil {
		return err
	}

	resp, err := c.roomService.RemoveModerator(ctx, &room.RemoveModeratorParams{
		SenderID: c.getMemberIDFromCtx(ctx),
		RoomID:   c.getRoomIDFromCtx(ctx),
		TargetID: input.UserID,
	})
	if err != nil {
		return fmt.Errorf("failed to remove moderator: %w", err)
	}

	c.notify(resp.TargetConn, "You have been removed from the moderators")
	c.broadcast(ctx, resp.Conns, &Output{Type: "update_user_list", Payload: resp.Members})

	return nil
}

func (c controller) handleKick(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var input ModerationInput
	if err := c.unmarshalInput(payload, &input); err != nil {
		return err
	}

	resp, err := c.roomService.KickMember(ctx, &room.KickMemberParams{
		SenderID: c.getMemberIDFromCtx(ctx),
		RoomID:   c.getRoomIDFromCtx(ctx),
		KickedID: input.UserID,
	})
	if err != nil {
		return fmt.Errorf("failed to kick member: %w", err)
	}

	c.notify(resp.KickedConn, "You'll be kicked from the room in a few seconds")
	c.broadcast(ctx, resp.Conns, &Output{
		Type:    "notification",
		Payload: fmt.Sprintf("%s has been kicked from the room", resp.KickedMember.Username),
	})

	return nil
}
