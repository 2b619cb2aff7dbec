package playerstate

import "errors"

var ErrUnknownRequest = errors.New("unknown state request")

// State is a leader client's report of its playback timeline. There is
// no persisted playback position, the leader's live player is the only
// source of truth.
type State struct {
	Position float64 `json:"position"`
	Paused   bool    `json:"paused"`
}
