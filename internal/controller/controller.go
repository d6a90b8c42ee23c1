package controller

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/watchtogether/server/internal/domain"
	"github.com/watchtogether/server/internal/service/videosync"
	"github.com/watchtogether/server/pkg/validator"
)

type iSyncService interface {
	CreateRoom(context.Context, *videosync.CreateRoomParams) (videosync.CreateRoomResponse, error)
	JoinRoom(context.Context, *videosync.JoinRoomParams) (videosync.JoinRoomResponse, error)
	Connect(context.Context, *videosync.ConnectParams) (videosync.ConnectResponse, error)
	Disconnect(context.Context, *websocket.Conn) (videosync.DisconnectResponse, error)
	HandleEvent(context.Context, *videosync.HandleEventParams) error
	SendSyncState(ctx context.Context, roomId, participantId string) error
	WriteOutput(conn *websocket.Conn, output *videosync.Output) error
}

type controller struct {
	syncService iSyncService
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	logger      *slog.Logger
}

func NewController(syncService iSyncService, logger *slog.Logger) *controller {
	return &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		syncService: syncService,
		validate:    validator.NewValidator(),
		logger:      logger,
	}
}

func (c controller) generateTimeBasedId() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}

// sendError delivers a recoverable protocol error privately to the sender.
func (c controller) sendError(ctx context.Context, conn *websocket.Conn, syncErr *domain.SyncError) {
	if err := c.syncService.WriteOutput(conn, videosync.NewErrorOutput(syncErr)); err != nil {
		c.logger.InfoContext(ctx, "failed to send error", "error", err)
	}
}
