package wsrouter

import (
	"context"
	"encoding/json"

	"github.com/watchroom/server/pkg/wsconn"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error

type WSRouter struct {
	routes  map[string]HandlerFunc
	onError func(ctx context.Context, conn *wsconn.Conn, err error)
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// OnError registers a callback invoked when a handler returns an error.
func (r *WSRouter) OnError(fn func(ctx context.Context, conn *wsconn.Conn, err error)) {
	r.onError = fn
}

// ServeConn reads JSON messages from the connection and dispatches them
// to registered handlers until the connection is closed.
func (r *WSRouter) ServeConn(ctx context.Context, conn *wsconn.Conn) error {
	defer conn.Close()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		handler, exists := r.routes[msg.Type]
		if !exists {
			conn.WriteJSON(map[string]string{"error": "Unknown message type"})
			continue
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		if err := handler(msgCtx, conn, msg.Payload); err != nil && r.onError != nil {
			r.onError(msgCtx, conn, err)
		}
	}
}
