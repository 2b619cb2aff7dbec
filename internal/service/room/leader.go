package room

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/watchroom/server/internal/repository/user"
	"github.com/watchroom/server/pkg/wsconn"
)

type TransferLeadershipParams struct {
	SenderID    string
	RoomID      string
	NewLeaderID string
}

type TransferLeadershipResponse struct {
	NewLeader     Member
	NewLeaderConn *wsconn.Conn
	Members       []Member
	Conns         []*wsconn.Conn
}

// TransferLeadership hands the leader role from the requester to
// another live member. The persisted flags are committed first,
// clear-before-set in one transaction; the in-memory flags only flip
// after that commit so a failed write leaves both sides unchanged.
func (s *service) TransferLeadership(ctx context.Context, params *TransferLeadershipParams) (TransferLeadershipResponse, error) {
	unlock := s.registry.lockRoom(params.RoomID)
	defer unlock()

	sender, err := s.registry.find(params.RoomID, params.SenderID)
	if err != nil {
		return TransferLeadershipResponse{}, err
	}
	if !sender.IsLeader {
		return TransferLeadershipResponse{}, ErrNotLeader
	}

	newLeader, err := s.registry.find(params.RoomID, params.NewLeaderID)
	if err != nil {
		return TransferLeadershipResponse{}, err
	}

	if err := s.userRepo.SetLeader(ctx, &user.SetLeaderParams{
		RoomID:      params.RoomID,
		OldLeaderID: params.SenderID,
		NewLeaderID: params.NewLeaderID,
	}); err != nil {
		return TransferLeadershipResponse{}, fmt.Errorf("failed to persist leader transfer: %w", err)
	}

	s.registry.setLeader(params.RoomID, params.SenderID, params.NewLeaderID)
	newLeader.IsLeader = true

	// Duplicate-session eviction removes a member without waiting on
	// this room's lock, so the target can vanish between the liveness
	// check above and the persisted commit. Re-check and hand the role
	// to a live member instead of leaving it on a gone one.
	if _, err := s.registry.find(params.RoomID, params.NewLeaderID); errors.Is(err, ErrMemberNotFound) {
		elected, err := s.electRandom(ctx, params.RoomID, params.NewLeaderID)
		if err != nil {
			return TransferLeadershipResponse{}, err
		}
		newLeader = elected
	}

	resp := TransferLeadershipResponse{
		NewLeader: newLeader,
		Members:   s.registry.snapshot(params.RoomID),
		Conns:     s.getConnsByRoomID(params.RoomID),
	}
	if conn, err := s.connRepo.GetConn(newLeader.ID); err == nil {
		resp.NewLeaderConn = conn
	}

	return resp, nil
}

// electRandom promotes one member of the room chosen uniformly at
// random. The member set is snapshotted once; the draw never re-reads
// it mid-selection. departedLeaderID, when non-empty, is the previous
// leader whose persisted flag still needs clearing. Caller holds the
// room lock.
func (s *service) electRandom(ctx context.Context, roomID, departedLeaderID string) (Member, error) {
	members := s.registry.snapshot(roomID)
	if len(members) == 0 {
		return Member{}, ErrRoomEmpty
	}

	elected := members[rand.IntN(len(members))]

	if err := s.userRepo.SetLeader(ctx, &user.SetLeaderParams{
		RoomID:      roomID,
		OldLeaderID: departedLeaderID,
		NewLeaderID: elected.ID,
	}); err != nil {
		return Member{}, fmt.Errorf("failed to persist elected leader: %w", err)
	}

	s.registry.setLeader(roomID, "", elected.ID)
	elected.IsLeader = true

	s.logger.InfoContext(ctx, "leader elected", "room_id", roomID, "user_id", elected.ID)

	return elected, nil
}

// reconcileLeaderInconsistency recovers a room whose live state shows
// no leader. If the persisted store still references a departed leader
// (a disconnect whose leader-clear failed, or a reload that raced the
// disconnect), that session is force-cleared before a fresh election.
// Caller holds the room lock.
func (s *service) reconcileLeaderInconsistency(ctx context.Context, roomID string) (Member, error) {
	persistedID, err := s.userRepo.GetRoomLeader(ctx, roomID)
	switch {
	case err == nil && persistedID != "":
		s.logger.InfoContext(ctx, "stale persisted leader, force-clearing", "room_id", roomID, "user_id", persistedID)
		if err := s.userRepo.ClearSession(ctx, persistedID); err != nil {
			return Member{}, fmt.Errorf("failed to clear stale leader session: %w", err)
		}
	case err != nil && !errors.Is(err, user.ErrNoLeader):
		return Member{}, fmt.Errorf("failed to read persisted leader: %w", err)
	}

	return s.electRandom(ctx, roomID, "")
}
