package room

import (
	"context"

	"github.com/watchroom/server/pkg/wsconn"
)

type SyncPlaybackParams struct {
	SenderID string
	RoomID   string
	Position float64
}

// SyncPlaybackResponse is either a room broadcast (the sender is the
// leader, its action is authoritative) or a correction addressed to the
// sender only. Both empty means drop the action silently.
type SyncPlaybackResponse struct {
	Broadcast  bool
	Conns      []*wsconn.Conn
	Correction *PlayerState
}

// leaderState fetches the leader's live playback state. No room lock is
// held across the wait: the leader reference is snapshotted once and
// the reply waited for out-of-band with a bounded timeout. A stalled
// leader degrades to paused-at-zero rather than blocking the room.
func (s *service) leaderState(ctx context.Context, roomID, senderID string) *PlayerState {
	leader, ok := s.registry.leader(roomID)
	if !ok || leader.ID == senderID {
		return nil
	}

	conn, err := s.connRepo.GetConn(leader.ID)
	if err != nil {
		return nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.stateRequestTimeout)
	defer cancel()

	state, err := s.stateReq.RequestState(reqCtx, conn)
	if err != nil {
		s.logger.InfoContext(ctx, "leader state request failed, assuming paused at 0", "error", err, "room_id", roomID)
		return &PlayerState{Position: 0, Paused: true}
	}

	return &PlayerState{Position: state.Position, Paused: state.Paused}
}

// ResumePlayback handles a member's resume action. The leader's resume
// is relayed to everyone else; a follower's resume is never broadcast
// and, when the leader is actually paused, the follower is corrected
// back to paused at the leader's position.
func (s *service) ResumePlayback(ctx context.Context, params *SyncPlaybackParams) (SyncPlaybackResponse, error) {
	sender, err := s.registry.find(params.RoomID, params.SenderID)
	if err != nil {
		return SyncPlaybackResponse{}, err
	}

	if sender.IsLeader {
		return SyncPlaybackResponse{
			Broadcast: true,
			Conns:     s.getConnsByRoomIDExcept(params.RoomID, params.SenderID),
		}, nil
	}

	state := s.leaderState(ctx, params.RoomID, params.SenderID)
	if state == nil {
		return SyncPlaybackResponse{}, nil
	}

	if state.Paused {
		return SyncPlaybackResponse{Correction: state}, nil
	}

	return SyncPlaybackResponse{}, nil
}

// PausePlayback mirrors ResumePlayback: a follower pausing while the
// leader is playing is corrected back to resume at the leader's
// position.
func (s *service) PausePlayback(ctx context.Context, params *SyncPlaybackParams) (SyncPlaybackResponse, error) {
	sender, err := s.registry.find(params.RoomID, params.SenderID)
	if err != nil {
		return SyncPlaybackResponse{}, err
	}

	if sender.IsLeader {
		return SyncPlaybackResponse{
			Broadcast: true,
			Conns:     s.getConnsByRoomIDExcept(params.RoomID, params.SenderID),
		}, nil
	}

	state := s.leaderState(ctx, params.RoomID, params.SenderID)
	if state == nil {
		return SyncPlaybackResponse{}, nil
	}

	if !state.Paused {
		return SyncPlaybackResponse{Correction: state}, nil
	}

	return SyncPlaybackResponse{}, nil
}

// SeekPlayback corrects a follower whose requested position disagrees
// with the leader's.
func (s *service) SeekPlayback(ctx context.Context, params *SyncPlaybackParams) (SyncPlaybackResponse, error) {
	sender, err := s.registry.find(params.RoomID, params.SenderID)
	if err != nil {
		return SyncPlaybackResponse{}, err
	}

	if sender.IsLeader {
		return SyncPlaybackResponse{
			Broadcast: true,
			Conns:     s.getConnsByRoomIDExcept(params.RoomID, params.SenderID),
		}, nil
	}

	state := s.leaderState(ctx, params.RoomID, params.SenderID)
	if state == nil {
		return SyncPlaybackResponse{}, nil
	}

	if state.Position != params.Position {
		return SyncPlaybackResponse{Correction: state}, nil
	}

	return SyncPlaybackResponse{}, nil
}
