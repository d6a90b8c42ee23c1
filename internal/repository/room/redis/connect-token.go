package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/watchtogether/server/internal/repository/room"
)

const connectTokenPrefix = "connect-token"

const connectTokenExpireDuration = 5 * time.Minute

func (r repo) SetConnectSession(ctx context.Context, connectToken string, session *room.ConnectSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal connect session: %w", err)
	}

	if err := r.rc.Set(ctx, connectTokenPrefix+":"+connectToken, data, connectTokenExpireDuration).Err(); err != nil {
		return fmt.Errorf("failed to set connect session: %w", err)
	}

	return nil
}

// GetConnectSession consumes the token: a connect token is single use.
func (r repo) GetConnectSession(ctx context.Context, connectToken string) (room.ConnectSession, error) {
	data, err := r.rc.GetDel(ctx, connectTokenPrefix+":"+connectToken).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return room.ConnectSession{}, room.ErrConnectTokenNotFound
		}

		return room.ConnectSession{}, fmt.Errorf("failed to get connect session: %w", err)
	}

	var session room.ConnectSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return room.ConnectSession{}, fmt.Errorf("failed to unmarshal connect session: %w", err)
	}

	return session, nil
}
