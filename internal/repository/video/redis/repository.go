package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/watchroom/server/internal/repository/video"
)

// Queue layout per room: a sorted set of video ids scored by a
// monotonic insertion counter, one hash per video, and a plain key
// holding the id of the current video. The multi-step mutations
// (append, remove-with-advance, advance) run as Lua scripts so a room
// is never observable with zero or two current videos mid-operation.
type repo struct {
	rc            *redis.Client
	addScript     string
	removeScript  string
	advanceScript string
}

func NewRepo(rc *redis.Client) (*repo, error) {
	ctx := context.Background()

	// KEYS: queue, video hash, current. ARGV: video id, url.
	// Returns 1 when the inserted video became current.
	addScript, err := rc.ScriptLoad(ctx, `
			local maxScore = redis.call('ZREVRANGE', KEYS[1], 0, 0, 'WITHSCORES')
			local nextScore = 1
			if #maxScore > 0 then
				nextScore = tonumber(maxScore[2]) + 1
			end
			redis.call('ZADD', KEYS[1], nextScore, ARGV[1])
			redis.call('HSET', KEYS[2], 'url', ARGV[2])
			if redis.call('EXISTS', KEYS[3]) == 0 then
				redis.call('SET', KEYS[3], ARGV[1])
				return 1
			end
			return 0
		`).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load add script: %w", err)
	}

	// KEYS: queue, video hash, current. ARGV: video id.
	// Advances past the target first when it is current, then
	// deletes it. Returns 1 when the removed video was current,
	// 0 when it was not, -1 when it is not queued.
	removeScript, err := rc.ScriptLoad(ctx, `
			local rank = redis.call('ZRANK', KEYS[1], ARGV[1])
			if rank == false then
				return -1
			end
			local wasCurrent = 0
			if redis.call('GET', KEYS[3]) == ARGV[1] then
				wasCurrent = 1
				if redis.call('ZCARD', KEYS[1]) <= 1 then
					redis.call('DEL', KEYS[3])
				else
					local next = redis.call('ZRANGE', KEYS[1], rank + 1, rank + 1)
					if #next == 0 then
						next = redis.call('ZRANGE', KEYS[1], 0, 0)
					end
					redis.call('SET', KEYS[3], next[1])
				end
			end
			redis.call('ZREM', KEYS[1], ARGV[1])
			redis.call('DEL', KEYS[2])
			return wasCurrent
		`).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load remove script: %w", err)
	}

	// KEYS: queue, current.
	// Moves current to the next video by insertion order, wrapping
	// to the first. Returns -1 when there is no current video.
	advanceScript, err := rc.ScriptLoad(ctx, `
			local current = redis.call('GET', KEYS[2])
			if current == false then
				return -1
			end
			local rank = redis.call('ZRANK', KEYS[1], current)
			if rank == false then
				return -1
			end
			local next = redis.call('ZRANGE', KEYS[1], rank + 1, rank + 1)
			if #next == 0 then
				next = redis.call('ZRANGE', KEYS[1], 0, 0)
			end
			redis.call('SET', KEYS[2], next[1])
			return 1
		`).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load advance script: %w", err)
	}

	return &repo{
		rc:            rc,
		addScript:     addScript,
		removeScript:  removeScript,
		advanceScript: advanceScript,
	}, nil
}

func (r repo) getQueueKey(roomID string) string {
	return "room:" + roomID + ":queue"
}

func (r repo) getVideoKey(videoID string) string {
	return "video:" + videoID
}

func (r repo) getCurrentKey(roomID string) string {
	return "room:" + roomID + ":current"
}

// SetVideo appends a video to the room's queue. It reports whether the
// video became the current one (queue was empty before insertion).
func (r repo) SetVideo(ctx context.Context, params *video.SetVideoParams) (bool, error) {
	keys := []string{
		r.getQueueKey(params.RoomID),
		r.getVideoKey(params.VideoID),
		r.getCurrentKey(params.RoomID),
	}
	res, err := r.rc.EvalSha(ctx, r.addScript, keys, params.VideoID, params.URL).Int()
	if err != nil {
		return false, fmt.Errorf("failed to set video: %w", err)
	}

	return res == 1, nil
}

// RemoveVideo deletes a video from the room's queue, advancing the
// current marker first when the target is current. It reports whether
// the removed video was current.
func (r repo) RemoveVideo(ctx context.Context, params *video.RemoveVideoParams) (bool, error) {
	keys := []string{
		r.getQueueKey(params.RoomID),
		r.getVideoKey(params.VideoID),
		r.getCurrentKey(params.RoomID),
	}
	res, err := r.rc.EvalSha(ctx, r.removeScript, keys, params.VideoID).Int()
	if err != nil {
		return false, fmt.Errorf("failed to remove video: %w", err)
	}

	if res == -1 {
		return false, video.ErrVideoNotFound
	}

	return res == 1, nil
}

// Advance marks the next video by insertion order as current, wrapping
// to the first one. A queue with a single video wraps to itself.
func (r repo) Advance(ctx context.Context, roomID string) error {
	keys := []string{r.getQueueKey(roomID), r.getCurrentKey(roomID)}
	res, err := r.rc.EvalSha(ctx, r.advanceScript, keys).Int()
	if err != nil {
		return fmt.Errorf("failed to advance queue: %w", err)
	}

	if res == -1 {
		return video.ErrNoCurrentVideo
	}

	return nil
}

func (r repo) GetVideoIDs(ctx context.Context, roomID string) ([]string, error) {
	videoIDs, err := r.rc.ZRange(ctx, r.getQueueKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get video ids: %w", err)
	}

	return videoIDs, nil
}

func (r repo) GetVideo(ctx context.Context, params *video.GetVideoParams) (video.Video, error) {
	var v video.Video
	if err := r.rc.HGetAll(ctx, r.getVideoKey(params.VideoID)).Scan(&v); err != nil {
		return video.Video{}, fmt.Errorf("failed to get video: %w", err)
	}

	if v.URL == "" {
		return video.Video{}, video.ErrVideoNotFound
	}

	return v, nil
}

func (r repo) GetCurrentVideoID(ctx context.Context, roomID string) (string, error) {
	videoID, err := r.rc.Get(ctx, r.getCurrentKey(roomID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", video.ErrNoCurrentVideo
		}
		return "", fmt.Errorf("failed to get current video id: %w", err)
	}

	return videoID, nil
}

func (r repo) GetQueueLength(ctx context.Context, roomID string) (int, error) {
	length, err := r.rc.ZCard(ctx, r.getQueueKey(roomID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}

	return int(length), nil
}
