package moderator

import "errors"

var (
	ErrAlreadyModerator  = errors.New("user is already a moderator")
	ErrModeratorNotFound = errors.New("moderator not found")
)
