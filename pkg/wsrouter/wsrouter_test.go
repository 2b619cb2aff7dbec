package wsrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchroom/server/pkg/wsconn"
)

func TestServeConn(t *testing.T) {
	mux := New()

	handled := make(chan string, 8)
	mux.Handle("ping", func(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
		assert.Equal(t, "ping", GetMessageTypeFromCtx(ctx))
		handled <- string(payload)
		return conn.WriteJSON(map[string]string{"type": "pong"})
	})

	errs := make(chan error, 8)
	mux.Handle("boom", func(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
		return assert.AnError
	})
	mux.OnError(func(ctx context.Context, conn *wsconn.Conn, err error) {
		errs <- err
	})

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		mux.ServeConn(r.Context(), wsconn.New(conn))
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	t.Run("dispatches by type", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping", "payload": 7}))

		select {
		case payload := <-handled:
			assert.Equal(t, "7", payload)
		case <-time.After(5 * time.Second):
			t.Fatal("handler was not invoked")
		}

		var reply map[string]string
		require.NoError(t, conn.ReadJSON(&reply))
		assert.Equal(t, "pong", reply["type"])
	})

	t.Run("unknown type reports an error to the client", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(map[string]any{"type": "nope"}))

		var reply map[string]string
		require.NoError(t, conn.ReadJSON(&reply))
		assert.Equal(t, "Unknown message type", reply["error"])
	})

	t.Run("handler errors go to the OnError hook", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(map[string]any{"type": "boom"}))

		select {
		case err := <-errs:
			assert.ErrorIs(t, err, assert.AnError)
		case <-time.After(5 * time.Second):
			t.Fatal("error hook was not invoked")
		}
	})
}
