package videosync

import (
	"context"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchtogether/server/internal/domain"
	"github.com/watchtogether/server/internal/repository/room"
)

func TestCreateRoomIssuesTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.service.CreateRoom(ctx, &CreateRoomParams{Username: "alice"})
	require.NoError(t, err)

	assert.Len(t, resp.RoomId, roomIdLength)
	assert.NotEmpty(t, resp.ParticipantId)
	assert.NotEmpty(t, resp.ConnectToken)
	assert.NotEmpty(t, resp.AuthToken)

	exists, err := env.roomRepo.IsRoomExists(ctx, resp.RoomId)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestJoinRoomUnknownRoom(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.JoinRoom(context.Background(), &JoinRoomParams{
		RoomId:   "missing",
		Username: "bob",
	})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestConnectWithConnectToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateRoom(ctx, &CreateRoomParams{Username: "alice"})
	require.NoError(t, err)

	conn := &websocket.Conn{}
	resp, err := env.service.Connect(ctx, &ConnectParams{
		Conn:         conn,
		ConnectToken: created.ConnectToken,
		RoomId:       created.RoomId,
	})
	require.NoError(t, err)
	assert.Equal(t, created.RoomId, resp.RoomId)
	assert.Equal(t, created.ParticipantId, resp.ParticipantId)

	count, err := env.roomRepo.GetParticipantsCount(ctx, created.RoomId)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// the connect token is burned on first use; a replay needs the auth token
	_, err = env.service.Connect(ctx, &ConnectParams{
		Conn:         &websocket.Conn{},
		ConnectToken: created.ConnectToken,
		RoomId:       created.RoomId,
	})
	assert.ErrorIs(t, err, ErrInvalidConnectTkn)
}

func TestConnectWithAuthTokenAfterReconnect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateRoom(ctx, &CreateRoomParams{Username: "alice"})
	require.NoError(t, err)

	first := &websocket.Conn{}
	_, err = env.service.Connect(ctx, &ConnectParams{
		Conn:         first,
		ConnectToken: created.ConnectToken,
		RoomId:       created.RoomId,
	})
	require.NoError(t, err)

	second := &websocket.Conn{}
	joined, err := env.service.JoinRoom(ctx, &JoinRoomParams{RoomId: created.RoomId, Username: "bob"})
	require.NoError(t, err)
	_, err = env.service.Connect(ctx, &ConnectParams{
		Conn:         second,
		ConnectToken: joined.ConnectToken,
		RoomId:       created.RoomId,
	})
	require.NoError(t, err)

	// first participant drops and comes back with its long-lived auth token
	_, err = env.service.Disconnect(ctx, first)
	require.NoError(t, err)

	resp, err := env.service.Connect(ctx, &ConnectParams{
		Conn:      &websocket.Conn{},
		AuthToken: created.AuthToken,
		RoomId:    created.RoomId,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ParticipantId, resp.ParticipantId)
}

func TestConnectTokenBoundToRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateRoom(ctx, &CreateRoomParams{Username: "alice"})
	require.NoError(t, err)

	_, err = env.service.Connect(ctx, &ConnectParams{
		Conn:         &websocket.Conn{},
		ConnectToken: created.ConnectToken,
		RoomId:       "some-other-room",
	})
	assert.ErrorIs(t, err, ErrInvalidConnectTkn)
}

func TestLastDisconnectDeletesRoomAndState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateRoom(ctx, &CreateRoomParams{Username: "alice"})
	require.NoError(t, err)

	conn := &websocket.Conn{}
	_, err = env.service.Connect(ctx, &ConnectParams{
		Conn:         conn,
		ConnectToken: created.ConnectToken,
		RoomId:       created.RoomId,
	})
	require.NoError(t, err)

	require.NoError(t, env.service.HandleEvent(ctx, &HandleEventParams{
		Event:    domain.SyncEvent{Type: domain.EventTypeChange, VideoURL: ptr("v1")},
		SenderId: created.ParticipantId,
		RoomId:   created.RoomId,
	}))

	resp, err := env.service.Disconnect(ctx, conn)
	require.NoError(t, err)
	assert.True(t, resp.IsRoomDeleted)

	exists, err := env.roomRepo.IsRoomExists(ctx, created.RoomId)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = env.roomRepo.GetVideoState(ctx, created.RoomId)
	assert.ErrorIs(t, err, room.ErrVideoStateNotFound)
}

func TestDisconnectKeepsRoomWhileOccupied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateRoom(ctx, &CreateRoomParams{Username: "alice"})
	require.NoError(t, err)

	first := &websocket.Conn{}
	_, err = env.service.Connect(ctx, &ConnectParams{
		Conn:         first,
		ConnectToken: created.ConnectToken,
		RoomId:       created.RoomId,
	})
	require.NoError(t, err)

	joined, err := env.service.JoinRoom(ctx, &JoinRoomParams{RoomId: created.RoomId, Username: "bob"})
	require.NoError(t, err)
	second := &websocket.Conn{}
	_, err = env.service.Connect(ctx, &ConnectParams{
		Conn:         second,
		ConnectToken: joined.ConnectToken,
		RoomId:       created.RoomId,
	})
	require.NoError(t, err)

	resp, err := env.service.Disconnect(ctx, first)
	require.NoError(t, err)
	assert.False(t, resp.IsRoomDeleted)

	exists, err := env.roomRepo.IsRoomExists(ctx, created.RoomId)
	require.NoError(t, err)
	assert.True(t, exists)
}
