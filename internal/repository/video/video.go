package video

import "errors"

var (
	ErrVideoNotFound  = errors.New("video not found")
	ErrNoCurrentVideo = errors.New("room has no current video")
)

type Video struct {
	URL string `redis:"url"`
}

type SetVideoParams struct {
	VideoID string
	RoomID  string
	URL     string
}

type RemoveVideoParams struct {
	VideoID string
	RoomID  string
}

type GetVideoParams struct {
	VideoID string
	RoomID  string
}
