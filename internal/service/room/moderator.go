package room

import (
	"context"
	"fmt"

	"github.com/watchroom/server/pkg/wsconn"
)

type AssignModeratorParams struct {
	SenderID string
	RoomID   string
	TargetID string
}

type AssignModeratorResponse struct {
	Target     Member
	TargetConn *wsconn.Conn
	Members    []Member
	Conns      []*wsconn.Conn
}

// AssignModerator grants the moderator role. Only the room owner may
// assign moderators; owner status itself is persisted and never changes
// during a session.
func (s *service) AssignModerator(ctx context.Context, params *AssignModeratorParams) (AssignModeratorResponse, error) {
	unlock := s.registry.lockRoom(params.RoomID)
	defer unlock()

	sender, err := s.registry.find(params.RoomID, params.SenderID)
	if err != nil {
		return AssignModeratorResponse{}, err
	}
	if !sender.IsOwner {
		return AssignModeratorResponse{}, ErrNotOwner
	}

	target, err := s.registry.find(params.RoomID, params.TargetID)
	if err != nil {
		return AssignModeratorResponse{}, err
	}
	if target.IsModerator {
		return AssignModeratorResponse{}, ErrAlreadyModerator
	}

	if err := s.moderatorRepo.AddModerator(ctx, params.RoomID, params.TargetID); err != nil {
		return AssignModeratorResponse{}, fmt.Errorf("failed to persist moderator: %w", err)
	}

	s.registry.setModerator(params.RoomID, params.TargetID, true)
	target.IsModerator = true

	resp := AssignModeratorResponse{
		Target:  target,
		Members: s.registry.snapshot(params.RoomID),
		Conns:   s.getConnsByRoomID(params.RoomID),
	}
	if conn, err := s.connRepo.GetConn(target.ID); err == nil {
		resp.TargetConn = conn
	}

	return resp, nil
}

type RemoveModeratorParams struct {
	SenderID string
	RoomID   string
	TargetID string
}

type RemoveModeratorResponse struct {
	Target     Member
	TargetConn *wsconn.Conn
	Members    []Member
	Conns      []*wsconn.Conn
}

// RemoveModerator revokes the moderator role. The owner cannot be
// demoted.
func (s *service) RemoveModerator(ctx context.Context, params *RemoveModeratorParams) (RemoveModeratorResponse, error) {
	unlock := s.registry.lockRoom(params.RoomID)
	defer unlock()

	sender, err := s.registry.find(params.RoomID, params.SenderID)
	if err != nil {
		return RemoveModeratorResponse{}, err
	}
	if !sender.IsOwner {
		return RemoveModeratorResponse{}, ErrNotOwner
	}

	target, err := s.registry.find(params.RoomID, params.TargetID)
	if err != nil {
		return RemoveModeratorResponse{}, err
	}
	if !target.IsModerator {
		return RemoveModeratorResponse{}, ErrModeratorNotFound
	}
	if target.IsOwner {
		return RemoveModeratorResponse{}, ErrOwnerImmutable
	}

	if err := s.moderatorRepo.RemoveModerator(ctx, params.RoomID, params.TargetID); err != nil {
		return RemoveModeratorResponse{}, fmt.Errorf("failed to remove persisted moderator: %w", err)
	}

	s.registry.setModerator(params.RoomID, params.TargetID, false)
	target.IsModerator = false

	resp := RemoveModeratorResponse{
		Target:  target,
		Members: s.registry.snapshot(params.RoomID),
		Conns:   s.getConnsByRoomID(params.RoomID),
	}
	if conn, err := s.connRepo.GetConn(target.ID); err == nil {
		resp.TargetConn = conn
	}

	return resp, nil
}

// GetMembers lists the room's live members with their role flags.
func (s *service) GetMembers(ctx context.Context, roomID string) []Member {
	return s.registry.snapshot(roomID)
}
