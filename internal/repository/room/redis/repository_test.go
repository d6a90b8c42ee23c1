package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchtogether/server/internal/domain"
	"github.com/watchtogether/server/internal/repository/room"
)

func newTestRepo(t *testing.T) *repo {
	t.Helper()

	s := miniredis.RunT(t)
	rc := goredis.NewClient(&goredis.Options{Addr: s.Addr()})

	return NewRepo(rc, time.Hour)
}

func TestVideoStateRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	state := room.VideoState{
		VideoURL:  "v1",
		Position:  40.5,
		Status:    domain.VideoStatusPlaying,
		UpdatedAt: 1700000000000,
	}
	require.NoError(t, r.SetVideoState(ctx, &room.SetVideoStateParams{
		VideoState: state,
		RoomId:     "room-1",
	}))

	got, err := r.GetVideoState(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestVideoStateReplaceIsTotal(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SetVideoState(ctx, &room.SetVideoStateParams{
		VideoState: room.VideoState{VideoURL: "v1", Position: 99, Status: domain.VideoStatusPlaying, UpdatedAt: 1},
		RoomId:     "room-1",
	}))
	require.NoError(t, r.SetVideoState(ctx, &room.SetVideoStateParams{
		VideoState: room.VideoState{VideoURL: "v2", Position: 0, Status: domain.VideoStatusPaused, UpdatedAt: 2},
		RoomId:     "room-1",
	}))

	got, err := r.GetVideoState(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.VideoURL)
	assert.Equal(t, 0.0, got.Position)
	assert.Equal(t, domain.VideoStatusPaused, got.Status)
}

func TestVideoStateNotFound(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.GetVideoState(context.Background(), "missing")
	assert.ErrorIs(t, err, room.ErrVideoStateNotFound)
}

func TestRoomLifecycle(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	exists, err := r.IsRoomExists(ctx, "room-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, r.CreateRoom(ctx, &room.CreateRoomParams{
		RoomId:    "room-1",
		CreatedBy: "p1",
		CreatedAt: time.Now().Unix(),
	}))

	exists, err = r.IsRoomExists(ctx, "room-1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, r.SetVideoState(ctx, &room.SetVideoStateParams{
		VideoState: room.VideoState{VideoURL: "v1", Status: domain.VideoStatusPaused},
		RoomId:     "room-1",
	}))

	require.NoError(t, r.RemoveRoom(ctx, "room-1"))

	exists, err = r.IsRoomExists(ctx, "room-1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = r.GetVideoState(ctx, "room-1")
	assert.ErrorIs(t, err, room.ErrVideoStateNotFound)
}

func TestParticipantsCount(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	count, err := r.GetParticipantsCount(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, r.AddParticipant(ctx, &room.AddParticipantParams{RoomId: "room-1", ParticipantId: "p1"}))
	require.NoError(t, r.AddParticipant(ctx, &room.AddParticipantParams{RoomId: "room-1", ParticipantId: "p2"}))
	// adding the same participant twice is a no-op
	require.NoError(t, r.AddParticipant(ctx, &room.AddParticipantParams{RoomId: "room-1", ParticipantId: "p2"}))

	count, err = r.GetParticipantsCount(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, r.RemoveParticipant(ctx, &room.RemoveParticipantParams{RoomId: "room-1", ParticipantId: "p1"}))

	count, err = r.GetParticipantsCount(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestConnectSessionIsSingleUse(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	session := room.ConnectSession{
		RoomId:        "room-1",
		ParticipantId: "p1",
		Username:      "user1",
	}
	require.NoError(t, r.SetConnectSession(ctx, "token-1", &session))

	got, err := r.GetConnectSession(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, session, got)

	_, err = r.GetConnectSession(ctx, "token-1")
	assert.ErrorIs(t, err, room.ErrConnectTokenNotFound)
}
