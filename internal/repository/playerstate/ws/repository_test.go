package ws

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

	"github.com/watchroom/server/internal/repository/playerstate"
	"github.com/watchroom/server/pkg/wsconn"
)

func TestResolveUnknownRequest(t *testing.T) {
	r := NewRepo()

	err := r.Resolve("no-such-request", playerstate.State{})
	assert.ErrorIs(t, err, playerstate.ErrUnknownRequest)
}

func TestRequestState(t *testing.T) {
	r := NewRepo()

	received := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			var msg struct {
				Type    string          `json:"type"`
				Payload json.RawMessage `json:"payload"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			assert.Equal(t, "state_request", msg.Type)

			var payload stateRequest
			require.NoError(t, json.Unmarshal(msg.Payload, &payload))
			received <- payload.RequestID
		}
	}))
	defer srv.Close()

	dialed, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	conn := wsconn.New(dialed)
	defer conn.Close()

	t.Run("reply is delivered to the requester", func(t *testing.T) {
		go func() {
			requestID := <-received
			r.Resolve(requestID, playerstate.State{Position: 13.5, Paused: true})
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		state, err := r.RequestState(ctx, conn)
		require.NoError(t, err)
		assert.Equal(t, playerstate.State{Position: 13.5, Paused: true}, state)
	})

	t.Run("missing reply times out", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := r.RequestState(ctx, conn)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
