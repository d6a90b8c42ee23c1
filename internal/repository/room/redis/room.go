package redis

import (
	"context"
	"fmt"

	"github.com/watchtogether/server/internal/repository/room"
)

func (r repo) getRoomKey(roomId string) string {
	return "room:" + roomId
}

func (r repo) getParticipantsKey(roomId string) string {
	return "room:" + roomId + ":participants"
}

func (r repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) error {
	roomKey := r.getRoomKey(params.RoomId)

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, roomKey,
		"created_by", params.CreatedBy,
		"created_at", params.CreatedAt,
	)
	pipe.Expire(ctx, roomKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	return nil
}

func (r repo) IsRoomExists(ctx context.Context, roomId string) (bool, error) {
	res, err := r.rc.Exists(ctx, r.getRoomKey(roomId)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if room exists: %w", err)
	}

	return res > 0, nil
}

func (r repo) RemoveRoom(ctx context.Context, roomId string) error {
	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, r.getRoomKey(roomId))
	pipe.Del(ctx, r.getParticipantsKey(roomId))
	pipe.Del(ctx, r.getVideoStateKey(roomId))

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to remove room: %w", err)
	}

	return nil
}

func (r repo) AddParticipant(ctx context.Context, params *room.AddParticipantParams) error {
	participantsKey := r.getParticipantsKey(params.RoomId)

	pipe := r.rc.TxPipeline()
	pipe.SAdd(ctx, participantsKey, params.ParticipantId)
	pipe.Expire(ctx, participantsKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}

	return nil
}

func (r repo) RemoveParticipant(ctx context.Context, params *room.RemoveParticipantParams) error {
	if err := r.rc.SRem(ctx, r.getParticipantsKey(params.RoomId), params.ParticipantId).Err(); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	return nil
}

func (r repo) GetParticipantsCount(ctx context.Context, roomId string) (int, error) {
	count, err := r.rc.SCard(ctx, r.getParticipantsKey(roomId)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get participants count: %w", err)
	}

	return int(count), nil
}
