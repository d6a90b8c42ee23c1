package videosync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster implements the per-room topic over Redis pub/sub so any
// server instance holding subscribers for a room receives its traffic.
// Channel order is publish order; one forwarding goroutine per room keeps
// delivery in-order per local subscriber.
type RedisBroadcaster struct {
	rc       *redis.Client
	connRepo iConnRepo
	logger   *slog.Logger

	mu   sync.Mutex
	subs map[string]*roomSubscription
}

type roomSubscription struct {
	pubsub *redis.PubSub
	refs   int
}

func NewRedisBroadcaster(rc *redis.Client, connRepo iConnRepo, logger *slog.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{
		rc:       rc,
		connRepo: connRepo,
		logger:   logger,
		subs:     make(map[string]*roomSubscription),
	}
}

func (b *RedisBroadcaster) getChannelName(roomId string) string {
	return "room." + roomId + ".video"
}

func (b *RedisBroadcaster) Publish(ctx context.Context, roomId string, output *Output) error {
	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	if err := b.rc.Publish(ctx, b.getChannelName(roomId), data).Err(); err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}

	return nil
}

// Subscribe registers local interest in a room topic. The first local
// subscriber opens the Redis subscription and starts the forwarding loop.
func (b *RedisBroadcaster) Subscribe(roomId string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[roomId]; ok {
		sub.refs++
		return
	}

	pubsub := b.rc.Subscribe(context.Background(), b.getChannelName(roomId))
	b.subs[roomId] = &roomSubscription{pubsub: pubsub, refs: 1}

	go b.forward(roomId, pubsub)
}

func (b *RedisBroadcaster) Unsubscribe(roomId string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[roomId]
	if !ok {
		return
	}

	sub.refs--
	if sub.refs > 0 {
		return
	}

	delete(b.subs, roomId)
	if err := sub.pubsub.Close(); err != nil {
		b.logger.Error("failed to close subscription", "room_id", roomId, "error", err)
	}
}

func (b *RedisBroadcaster) forward(roomId string, pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		for _, conn := range b.connRepo.GetConnsByRoomId(roomId) {
			if err := b.connRepo.WriteMessage(conn, []byte(msg.Payload)); err != nil {
				b.logger.Info("failed to forward broadcast", "room_id", roomId, "error", err)
			}
		}
	}
}
