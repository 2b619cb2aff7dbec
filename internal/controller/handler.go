package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/ctxlogger"
	"github.com/watchroom/server/pkg/wsconn"
)

// connect upgrades an authenticated request to a websocket session and
// drives it until the connection closes. The token must resolve to a
// member already registered in a room; unknown tokens are refused
// before the upgrade.
func (c controller) connect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	if _, err := c.roomService.Authenticate(ctx, token); err != nil {
		c.logger.InfoContext(ctx, "rejected connection", "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	rawConn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(ctx, "failed to upgrade connection", "error", err)
		return
	}
	conn := wsconn.New(rawConn)

	resp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		Token: token,
		Conn:  conn,
	})
	if err != nil {
		c.logger.InfoContext(ctx, "failed to join room", "error", err)
		c.writeError(ctx, conn, err)
		conn.Close()
		return
	}

	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", resp.RoomID))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("member_id", resp.JoinedMember.ID))
	ctx = context.WithValue(ctx, roomIDCtxKey, resp.RoomID)
	ctx = context.WithValue(ctx, memberIDCtxKey, resp.JoinedMember.ID)

	defer c.disconnect(ctx, conn)

	// An older session of the same member loses its connection; its
	// previous room learns about the departure separately.
	if resp.EvictedConn != nil {
		resp.EvictedConn.Close()
	}
	if resp.EvictedRoom != nil {
		c.broadcast(ctx, resp.EvictedRoom.Conns, &Output{Type: "update_user_list", Payload: resp.EvictedRoom.Members})
	}

	if err := c.send(conn, "id", resp.JoinedMember.ID); err != nil {
		c.logger.InfoContext(ctx, "failed to send member id", "error", err)
		return
	}

	switch {
	case resp.NewLeaderConn != nil:
		if err := c.send(resp.NewLeaderConn, "leader_assigned", nil); err != nil {
			c.logger.InfoContext(ctx, "failed to notify new leader", "error", err)
		}
	case resp.JoinedMember.IsLeader:
		if err := c.send(conn, "leader_assigned", nil); err != nil {
			c.logger.InfoContext(ctx, "failed to notify leader", "error", err)
		}
	}

	c.broadcast(ctx, resp.Conns, &Output{Type: "update_user_list", Payload: resp.Members})
	if err := c.send(conn, "update_video_list", resp.Videos); err != nil {
		c.logger.InfoContext(ctx, "failed to send video list", "error", err)
	}
	if err := c.send(conn, "play", resp.PlayPosition); err != nil {
		c.logger.InfoContext(ctx, "failed to send play position", "error", err)
	}

	c.logger.InfoContext(ctx, "member connected")

	c.wsmux.ServeConn(ctx, conn)
}

func (c controller) disconnect(ctx context.Context, conn *wsconn.Conn) {
	defer conn.Close()

	resp, err := c.roomService.DisconnectMember(ctx, &room.DisconnectMemberParams{Conn: conn})
	if err != nil {
		c.logger.WarnContext(ctx, "failed to disconnect member", "error", err)
		return
	}
	if resp.AlreadyGone {
		return
	}

	if resp.NewLeaderConn != nil {
		if err := c.send(resp.NewLeaderConn, "leader_assigned", nil); err != nil {
			c.logger.InfoContext(ctx, "failed to notify new leader", "error", err)
		}
	}
	c.broadcast(ctx, resp.Conns, &Output{Type: "update_user_list", Payload: resp.Members})

	c.logger.InfoContext(ctx, "member disconnected")
}
