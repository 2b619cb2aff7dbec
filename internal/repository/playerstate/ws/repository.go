package ws

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/watchroom/server/internal/repository/playerstate"
	"github.com/watchroom/server/pkg/wsconn"
)

type stateRequest struct {
	RequestID string `json:"request_id"`
}

type output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// repo implements the request/reply half of the playback reconciler: a
// state_request is written to the leader's connection tagged with a
// correlation id and the reply arrives out-of-band as a state_response
// message, matched back here through Resolve.
type repo struct {
	mu      sync.Mutex
	pending map[string]chan playerstate.State
}

func NewRepo() *repo {
	return &repo{pending: make(map[string]chan playerstate.State)}
}

// RequestState asks the client behind conn for its playback state. The
// caller bounds the wait through ctx; the pending entry is always
// dropped on return, so a late reply is discarded by Resolve.
func (r *repo) RequestState(ctx context.Context, conn *wsconn.Conn) (playerstate.State, error) {
	requestID := uuid.NewString()
	ch := make(chan playerstate.State, 1)

	r.mu.Lock()
	r.pending[requestID] = ch
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, requestID)
		r.mu.Unlock()
	}()

	if err := conn.WriteJSON(&output{
		Type:    "state_request",
		Payload: stateRequest{RequestID: requestID},
	}); err != nil {
		return playerstate.State{}, fmt.Errorf("failed to write state request: %w", err)
	}

	select {
	case state := <-ch:
		return state, nil
	case <-ctx.Done():
		return playerstate.State{}, ctx.Err()
	}
}

// Resolve delivers a client's reply to the waiting requester.
func (r *repo) Resolve(requestID string, state playerstate.State) error {
	r.mu.Lock()
	ch, ok := r.pending[requestID]
	r.mu.Unlock()

	if !ok {
		return playerstate.ErrUnknownRequest
	}

	select {
	case ch <- state:
	default:
	}

	return nil
}
