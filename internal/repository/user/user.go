package user

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrNoLeader     = errors.New("room has no persisted leader")
)

// User is the persisted account record written by the account web-app.
// A non-empty RoomID means the user holds a live watch session.
type User struct {
	ID       string `redis:"id"`
	Username string `redis:"username"`
	RoomID   string `redis:"room_id"`
	IsLeader bool   `redis:"is_leader"`
}

type SetUserParams struct {
	UserID   string
	Username string
	Token    string
	RoomID   string
	IsLeader bool
}

// SetLeaderParams describes a leadership hand-off. OldLeaderID may be
// empty when no live leader is being replaced (first election or the
// previous leader already departed).
type SetLeaderParams struct {
	RoomID      string
	OldLeaderID string
	NewLeaderID string
}
