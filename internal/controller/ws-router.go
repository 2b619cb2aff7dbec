package controller

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/watchroom/server/pkg/ctxlogger"
	"github.com/watchroom/server/pkg/wsconn"
	"github.com/watchroom/server/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	// leadership
	mux.Handle("set_leader", c.withLogging(c.handleSetLeader))

	// queue
	mux.Handle("add", c.withLogging(c.handleAddVideo))
	mux.Handle("remove", c.withLogging(c.handleRemoveVideo))
	mux.Handle("ended", c.withLogging(c.handleEnded))

	// player
	mux.Handle("resume", c.withLogging(c.handleResume))
	mux.Handle("pause", c.withLogging(c.handlePause))
	mux.Handle("seek", c.withLogging(c.handleSeek))
	mux.Handle("state_response", c.withLogging(c.handleStateResponse))

	// moderation
	mux.Handle("assign_mod", c.withLogging(c.handleAssignMod))
	mux.Handle("remove_mod", c.withLogging(c.handleRemoveMod))
	mux.Handle("kick", c.withLogging(c.handleKick))

	mux.OnError(func(ctx context.Context, conn *wsconn.Conn, err error) {
		c.logger.InfoContext(ctx, "handler failed", "error", err)
		c.writeError(ctx, conn, err)
	})

	return mux
}

func (c *controller) withLogging(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
		ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))
		c.logger.DebugContext(ctx, "message received", "payload", payload)

		return next(ctx, conn, payload)
	}
}
