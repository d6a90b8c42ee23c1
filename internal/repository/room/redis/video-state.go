package redis

import (
	"context"
	"fmt"

	"github.com/watchtogether/server/internal/repository/room"
)

func (r repo) getVideoStateKey(roomId string) string {
	return "room:" + roomId + ":video-state"
}

// SetVideoState unconditionally replaces the room's video state. No partial
// patch operation is exposed.
func (r repo) SetVideoState(ctx context.Context, params *room.SetVideoStateParams) error {
	videoStateKey := r.getVideoStateKey(params.RoomId)

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, videoStateKey,
		"video_url", params.VideoURL,
		"position", params.Position,
		"status", string(params.Status),
		"updated_at", params.UpdatedAt,
	)
	pipe.Expire(ctx, videoStateKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set video state: %w", err)
	}

	return nil
}

func (r repo) GetVideoState(ctx context.Context, roomId string) (room.VideoState, error) {
	videoStateKey := r.getVideoStateKey(roomId)

	res, err := r.rc.Exists(ctx, videoStateKey).Result()
	if err != nil {
		return room.VideoState{}, fmt.Errorf("failed to check if video state exists: %w", err)
	}
	if res == 0 {
		return room.VideoState{}, room.ErrVideoStateNotFound
	}

	var videoState room.VideoState
	if err := r.rc.HGetAll(ctx, videoStateKey).Scan(&videoState); err != nil {
		return room.VideoState{}, fmt.Errorf("failed to get video state: %w", err)
	}

	r.rc.Expire(ctx, videoStateKey, r.expireDuration)

	return videoState, nil
}

func (r repo) RemoveVideoState(ctx context.Context, roomId string) error {
	if err := r.rc.Del(ctx, r.getVideoStateKey(roomId)).Err(); err != nil {
		return fmt.Errorf("failed to remove video state: %w", err)
	}

	return nil
}
