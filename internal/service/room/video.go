package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/watchroom/server/internal/repository/video"
	"github.com/watchroom/server/pkg/videourl"
	"github.com/watchroom/server/pkg/wsconn"
)

type AddVideoParams struct {
	SenderID string
	RoomID   string
	URL      string
}

type AddVideoResponse struct {
	AddedVideo Video
	Videos     []Video
	Conns      []*wsconn.Conn
	// The queue was empty, so the new video became current and
	// playback restarts at 0.
	BecameCurrent bool
}

func (s *service) AddVideo(ctx context.Context, params *AddVideoParams) (AddVideoResponse, error) {
	if !videourl.IsValid(params.URL) {
		return AddVideoResponse{}, ErrInvalidVideoURL
	}

	unlock := s.registry.lockRoom(params.RoomID)
	defer unlock()

	if s.queueLimit > 0 {
		length, err := s.videoRepo.GetQueueLength(ctx, params.RoomID)
		if err != nil {
			return AddVideoResponse{}, fmt.Errorf("failed to get queue length: %w", err)
		}
		if length >= s.queueLimit {
			return AddVideoResponse{}, ErrQueueLimitReached
		}
	}

	videoID := uuid.NewString()
	becameCurrent, err := s.videoRepo.SetVideo(ctx, &video.SetVideoParams{
		VideoID: videoID,
		RoomID:  params.RoomID,
		URL:     params.URL,
	})
	if err != nil {
		return AddVideoResponse{}, fmt.Errorf("failed to add video: %w", err)
	}

	videos, err := s.getVideos(ctx, params.RoomID)
	if err != nil {
		return AddVideoResponse{}, err
	}

	return AddVideoResponse{
		AddedVideo: Video{
			ID:        videoID,
			URL:       params.URL,
			IsCurrent: becameCurrent,
		},
		Videos:        videos,
		Conns:         s.getConnsByRoomID(params.RoomID),
		BecameCurrent: becameCurrent,
	}, nil
}

type RemoveVideoParams struct {
	SenderID string
	RoomID   string
	VideoID  string
}

type RemoveVideoResponse struct {
	Videos []Video
	Conns  []*wsconn.Conn
	// The removed video was current: the queue advanced before the
	// deletion and playback restarts at 0.
	WasCurrent bool
}

func (s *service) RemoveVideo(ctx context.Context, params *RemoveVideoParams) (RemoveVideoResponse, error) {
	unlock := s.registry.lockRoom(params.RoomID)
	defer unlock()

	wasCurrent, err := s.videoRepo.RemoveVideo(ctx, &video.RemoveVideoParams{
		VideoID: params.VideoID,
		RoomID:  params.RoomID,
	})
	if err != nil {
		if errors.Is(err, video.ErrVideoNotFound) {
			return RemoveVideoResponse{}, ErrVideoNotFound
		}
		return RemoveVideoResponse{}, fmt.Errorf("failed to remove video: %w", err)
	}

	videos, err := s.getVideos(ctx, params.RoomID)
	if err != nil {
		return RemoveVideoResponse{}, err
	}

	return RemoveVideoResponse{
		Videos:     videos,
		Conns:      s.getConnsByRoomID(params.RoomID),
		WasCurrent: wasCurrent,
	}, nil
}

type VideoEndedParams struct {
	SenderID string
	RoomID   string
}

type VideoEndedResponse struct {
	Videos []Video
	Conns  []*wsconn.Conn
}

// VideoEnded advances the queue past the current video, wrapping to the
// first one. Only the leader reports the end of a video; followers'
// players are not authoritative.
func (s *service) VideoEnded(ctx context.Context, params *VideoEndedParams) (VideoEndedResponse, error) {
	sender, err := s.registry.find(params.RoomID, params.SenderID)
	if err != nil {
		return VideoEndedResponse{}, err
	}
	if !sender.IsLeader {
		return VideoEndedResponse{}, ErrNotLeader
	}

	unlock := s.registry.lockRoom(params.RoomID)
	defer unlock()

	if err := s.videoRepo.Advance(ctx, params.RoomID); err != nil {
		if errors.Is(err, video.ErrNoCurrentVideo) {
			return VideoEndedResponse{}, ErrNoCurrentVideo
		}
		return VideoEndedResponse{}, fmt.Errorf("failed to advance queue: %w", err)
	}

	videos, err := s.getVideos(ctx, params.RoomID)
	if err != nil {
		return VideoEndedResponse{}, err
	}

	return VideoEndedResponse{
		Videos: videos,
		Conns:  s.getConnsByRoomID(params.RoomID),
	}, nil
}

// GetVideos lists the room's queue in insertion order.
func (s *service) GetVideos(ctx context.Context, roomID string) ([]Video, error) {
	return s.getVideos(ctx, roomID)
}

func (s *service) getVideos(ctx context.Context, roomID string) ([]Video, error) {
	videoIDs, err := s.videoRepo.GetVideoIDs(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get video ids: %w", err)
	}

	currentID, err := s.videoRepo.GetCurrentVideoID(ctx, roomID)
	if err != nil && !errors.Is(err, video.ErrNoCurrentVideo) {
		return nil, fmt.Errorf("failed to get current video id: %w", err)
	}

	videos := make([]Video, 0, len(videoIDs))
	for _, videoID := range videoIDs {
		v, err := s.videoRepo.GetVideo(ctx, &video.GetVideoParams{
			VideoID: videoID,
			RoomID:  roomID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get video: %w", err)
		}

		videos = append(videos, Video{
			ID:        videoID,
			URL:       v.URL,
			IsCurrent: videoID == currentID,
		})
	}

	return videos, nil
}
