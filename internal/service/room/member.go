package room

import (
	"context"
	"fmt"
	"time"

	"github.com/watchroom/server/pkg/wsconn"
)

// RoomUpdate carries a refreshed member list plus the connections it
// should be broadcast to.
type RoomUpdate struct {
	Members []Member
	Conns   []*wsconn.Conn
}

// Authenticate resolves a session token to its live member identity.
// Called before the websocket upgrade so unknown tokens are refused at
// the handshake.
func (s *service) Authenticate(ctx context.Context, token string) (Member, error) {
	u, err := s.userRepo.GetUserByToken(ctx, token)
	if err != nil {
		return Member{}, ErrAuthenticationFailed
	}

	if u.RoomID == "" {
		return Member{}, ErrAuthenticationFailed
	}

	return Member{ID: u.ID, Username: u.Username, IsLeader: u.IsLeader}, nil
}

type JoinRoomParams struct {
	Token string
	Conn  *wsconn.Conn
}

type JoinRoomResponse struct {
	JoinedMember Member
	RoomID       string
	Members      []Member
	Videos       []Video
	Conns        []*wsconn.Conn

	// Leader elected while reconciling a leaderless room, nil when the
	// room already had one.
	NewLeader     *Member
	NewLeaderConn *wsconn.Conn

	// Older duplicate session terminated in favor of this one.
	EvictedConn *wsconn.Conn
	EvictedRoom *RoomUpdate

	PlayPosition float64
}

func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	u, err := s.userRepo.GetUserByToken(ctx, params.Token)
	if err != nil || u.RoomID == "" {
		return JoinRoomResponse{}, ErrAuthenticationFailed
	}

	isModerator, err := s.moderatorRepo.IsModerator(ctx, u.RoomID, u.ID)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to check if member is moderator: %w", err)
	}

	isOwner, err := s.moderatorRepo.IsOwner(ctx, u.RoomID, u.ID)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to check if member is owner: %w", err)
	}

	member := Member{
		ID:          u.ID,
		Username:    u.Username,
		IsLeader:    u.IsLeader,
		IsModerator: isModerator,
		IsOwner:     isOwner,
	}

	resp := JoinRoomResponse{RoomID: u.RoomID}

	unlock := s.registry.lockRoom(u.RoomID)

	if s.membersLimit > 0 && s.registry.size(u.RoomID) >= s.membersLimit {
		unlock()
		return JoinRoomResponse{}, ErrMembersLimitReached
	}

	evicted, evictedRoomID := s.registry.add(member, u.RoomID)
	if evicted != nil {
		s.logger.InfoContext(ctx, "duplicate session evicted", "user_id", evicted.ID, "room_id", evictedRoomID)
		if conn, err := s.connRepo.RemoveByUserID(evicted.ID); err == nil {
			resp.EvictedConn = conn
		}
		if evictedRoomID != u.RoomID {
			resp.EvictedRoom = &RoomUpdate{
				Members: s.registry.snapshot(evictedRoomID),
				Conns:   s.getConnsByRoomID(evictedRoomID),
			}
		}
	}

	if err := s.connRepo.Add(params.Conn, member.ID); err != nil {
		s.registry.remove(u.RoomID, member.ID)
		unlock()
		return JoinRoomResponse{}, fmt.Errorf("failed to register connection: %w", err)
	}

	if !member.IsLeader {
		if _, ok := s.registry.leader(u.RoomID); !ok {
			// In-memory says no leader: either the room inherited a
			// stale persisted leader or the record was never set.
			// Reconcile instead of leaving the room headless.
			newLeader, err := s.reconcileLeaderInconsistency(ctx, u.RoomID)
			if err != nil {
				s.logger.WarnContext(ctx, "failed to reconcile leader", "error", err, "room_id", u.RoomID)
			} else {
				resp.NewLeader = &newLeader
				if conn, err := s.connRepo.GetConn(newLeader.ID); err == nil {
					resp.NewLeaderConn = conn
				}
				if newLeader.ID == member.ID {
					member.IsLeader = true
				}
			}
		}
	}

	resp.JoinedMember = member
	resp.Members = s.registry.snapshot(u.RoomID)
	resp.Conns = s.getConnsByRoomID(u.RoomID)

	unlock()

	videos, err := s.getVideos(ctx, u.RoomID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to get room videos", "error", err)
		videos = []Video{}
	}
	resp.Videos = videos

	// Followers start from the leader's reported position; the room
	// lock is released before this wait on the leader's liveness.
	if !member.IsLeader {
		if state := s.leaderState(ctx, u.RoomID, member.ID); state != nil {
			resp.PlayPosition = state.Position
		}
	}

	return resp, nil
}

type DisconnectMemberParams struct {
	Conn *wsconn.Conn
}

type DisconnectMemberResponse struct {
	// AlreadyGone is set when the connection belonged to an evicted
	// duplicate session whose removal was already processed.
	AlreadyGone bool
	RoomID      string
	Members     []Member
	Conns       []*wsconn.Conn

	NewLeader     *Member
	NewLeaderConn *wsconn.Conn
}

func (s *service) DisconnectMember(ctx context.Context, params *DisconnectMemberParams) (DisconnectMemberResponse, error) {
	userID, err := s.connRepo.RemoveByConn(params.Conn)
	if err != nil {
		return DisconnectMemberResponse{AlreadyGone: true}, nil
	}

	roomID := s.registry.roomOf(userID)
	if roomID == "" {
		return DisconnectMemberResponse{AlreadyGone: true}, nil
	}

	unlock := s.registry.lockRoom(roomID)
	defer unlock()

	removed, empty := s.registry.remove(roomID, userID)
	if removed == nil {
		return DisconnectMemberResponse{AlreadyGone: true}, nil
	}

	// The session row stays consistent even if this fails; the next
	// join of a leaderless room reconciles from the persisted side.
	if err := s.userRepo.ClearSession(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to clear session", "error", err, "user_id", userID)
	}

	resp := DisconnectMemberResponse{RoomID: roomID}
	if empty {
		return resp, nil
	}

	if _, ok := s.registry.leader(roomID); !ok {
		newLeader, err := s.electRandom(ctx, roomID, "")
		if err != nil {
			s.logger.WarnContext(ctx, "failed to elect leader", "error", err, "room_id", roomID)
		} else {
			resp.NewLeader = &newLeader
			if conn, err := s.connRepo.GetConn(newLeader.ID); err == nil {
				resp.NewLeaderConn = conn
			}
		}
	}

	resp.Members = s.registry.snapshot(roomID)
	resp.Conns = s.getConnsByRoomID(roomID)

	return resp, nil
}

type KickMemberParams struct {
	SenderID string
	RoomID   string
	KickedID string
}

type KickMemberResponse struct {
	KickedMember Member
	KickedConn   *wsconn.Conn
	Conns        []*wsconn.Conn
}

// KickMember schedules a member's disconnection after the configured
// grace delay. The member stays observable in the room until the delay
// elapses; the removal itself runs through the normal disconnect path
// when the connection closes. The delay is not cancellable.
func (s *service) KickMember(ctx context.Context, params *KickMemberParams) (KickMemberResponse, error) {
	sender, err := s.registry.find(params.RoomID, params.SenderID)
	if err != nil {
		return KickMemberResponse{}, err
	}
	if !sender.IsModerator {
		return KickMemberResponse{}, ErrNotModerator
	}

	kicked, err := s.registry.find(params.RoomID, params.KickedID)
	if err != nil {
		return KickMemberResponse{}, err
	}

	conn, err := s.connRepo.GetConn(kicked.ID)
	if err != nil {
		return KickMemberResponse{}, ErrMemberNotFound
	}

	s.scheduleDisconnect(conn)

	return KickMemberResponse{
		KickedMember: kicked,
		KickedConn:   conn,
		Conns:        s.getConnsByRoomID(params.RoomID),
	}, nil
}

func (s *service) scheduleDisconnect(conn *wsconn.Conn) {
	time.AfterFunc(s.kickDelay, func() {
		conn.Close()
	})
}
