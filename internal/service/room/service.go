package room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/watchroom/server/internal/repository/playerstate"
	"github.com/watchroom/server/internal/repository/user"
	"github.com/watchroom/server/internal/repository/video"
	"github.com/watchroom/server/pkg/wsconn"
)

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrMemberNotFound       = errors.New("member not found")
	ErrNotLeader            = errors.New("sender is not the room leader")
	ErrNotOwner             = errors.New("sender is not the room owner")
	ErrNotModerator         = errors.New("sender is not a room moderator")
	ErrAlreadyModerator     = errors.New("member is already a moderator")
	ErrModeratorNotFound    = errors.New("member is not a moderator")
	ErrOwnerImmutable       = errors.New("the room owner cannot be demoted")
	ErrInvalidVideoURL      = errors.New("video url is not valid")
	ErrVideoNotFound        = errors.New("video not found")
	ErrNoCurrentVideo       = errors.New("room has no current video")
	ErrRoomEmpty            = errors.New("room is empty")
	ErrMembersLimitReached  = errors.New("members limit reached")
	ErrQueueLimitReached    = errors.New("queue limit reached")
)

type iUserRepo interface {
	GetUserByToken(ctx context.Context, token string) (user.User, error)
	ClearSession(ctx context.Context, userID string) error
	SetLeader(ctx context.Context, params *user.SetLeaderParams) error
	GetRoomLeader(ctx context.Context, roomID string) (string, error)
}

type iModeratorRepo interface {
	IsModerator(ctx context.Context, roomID, userID string) (bool, error)
	AddModerator(ctx context.Context, roomID, userID string) error
	RemoveModerator(ctx context.Context, roomID, userID string) error
	IsOwner(ctx context.Context, roomID, userID string) (bool, error)
}

type iVideoRepo interface {
	SetVideo(ctx context.Context, params *video.SetVideoParams) (bool, error)
	RemoveVideo(ctx context.Context, params *video.RemoveVideoParams) (bool, error)
	Advance(ctx context.Context, roomID string) error
	GetVideoIDs(ctx context.Context, roomID string) ([]string, error)
	GetVideo(ctx context.Context, params *video.GetVideoParams) (video.Video, error)
	GetCurrentVideoID(ctx context.Context, roomID string) (string, error)
	GetQueueLength(ctx context.Context, roomID string) (int, error)
}

type iConnRepo interface {
	Add(conn *wsconn.Conn, userID string) error
	RemoveByConn(conn *wsconn.Conn) (string, error)
	RemoveByUserID(userID string) (*wsconn.Conn, error)
	GetConn(userID string) (*wsconn.Conn, error)
	GetUserID(conn *wsconn.Conn) (string, error)
}

type iStateRequester interface {
	RequestState(ctx context.Context, conn *wsconn.Conn) (playerstate.State, error)
}

type Config struct {
	MembersLimit        int
	QueueLimit          int
	KickDelay           time.Duration
	StateRequestTimeout time.Duration
}

type service struct {
	userRepo      iUserRepo
	moderatorRepo iModeratorRepo
	videoRepo     iVideoRepo
	connRepo      iConnRepo
	stateReq      iStateRequester
	registry      *registry
	logger        *slog.Logger

	membersLimit        int
	queueLimit          int
	kickDelay           time.Duration
	stateRequestTimeout time.Duration
}

func NewService(userRepo iUserRepo, moderatorRepo iModeratorRepo, videoRepo iVideoRepo, connRepo iConnRepo, stateReq iStateRequester, logger *slog.Logger, cfg *Config) *service {
	return &service{
		userRepo:            userRepo,
		moderatorRepo:       moderatorRepo,
		videoRepo:           videoRepo,
		connRepo:            connRepo,
		stateReq:            stateReq,
		registry:            newRegistry(),
		logger:              logger,
		membersLimit:        cfg.MembersLimit,
		queueLimit:          cfg.QueueLimit,
		kickDelay:           cfg.KickDelay,
		stateRequestTimeout: cfg.StateRequestTimeout,
	}
}

func (s *service) getConnsByRoomID(roomID string) []*wsconn.Conn {
	members := s.registry.snapshot(roomID)

	conns := make([]*wsconn.Conn, 0, len(members))
	for _, member := range members {
		conn, err := s.connRepo.GetConn(member.ID)
		if err != nil {
			continue
		}

		conns = append(conns, conn)
	}

	return conns
}

func (s *service) getConnsByRoomIDExcept(roomID, userID string) []*wsconn.Conn {
	members := s.registry.snapshot(roomID)

	conns := make([]*wsconn.Conn, 0, len(members))
	for _, member := range members {
		if member.ID == userID {
			continue
		}

		conn, err := s.connRepo.GetConn(member.ID)
		if err != nil {
			continue
		}

		conns = append(conns, conn)
	}

	return conns
}
