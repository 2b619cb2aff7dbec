package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/repository/playerstate"
	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/validator"
	"github.com/watchroom/server/pkg/wsrouter"
)

type iRoomService interface {
	Authenticate(context.Context, string) (room.Member, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	DisconnectMember(context.Context, *room.DisconnectMemberParams) (room.DisconnectMemberResponse, error)
	KickMember(context.Context, *room.KickMemberParams) (room.KickMemberResponse, error)
	TransferLeadership(context.Context, *room.TransferLeadershipParams) (room.TransferLeadershipResponse, error)
	AddVideo(context.Context, *room.AddVideoParams) (room.AddVideoResponse, error)
	RemoveVideo(context.Context, *room.RemoveVideoParams) (room.RemoveVideoResponse, error)
	VideoEnded(context.Context, *room.VideoEndedParams) (room.VideoEndedResponse, error)
	ResumePlayback(context.Context, *room.SyncPlaybackParams) (room.SyncPlaybackResponse, error)
	PausePlayback(context.Context, *room.SyncPlaybackParams) (room.SyncPlaybackResponse, error)
	SeekPlayback(context.Context, *room.SyncPlaybackParams) (room.SyncPlaybackResponse, error)
	AssignModerator(context.Context, *room.AssignModeratorParams) (room.AssignModeratorResponse, error)
	RemoveModerator(context.Context, *room.RemoveModeratorParams) (room.RemoveModeratorResponse, error)
}

type iStateResolver interface {
	Resolve(requestID string, state playerstate.State) error
}

type controller struct {
	roomService   iRoomService
	stateResolver iStateResolver
	upgrader      websocket.Upgrader
	validate      *validator.Validator
	wsmux         *wsrouter.WSRouter
	logger        *slog.Logger
}

func NewController(roomService iRoomService, stateResolver iStateResolver, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService:   roomService,
		stateResolver: stateResolver,
		validate:      validator.NewValidator(),
		logger:        logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
