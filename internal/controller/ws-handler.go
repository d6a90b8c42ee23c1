package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/watchtogether/server/internal/domain"
	"github.com/watchtogether/server/internal/service/videosync"
)

func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	connectToken := r.URL.Query().Get("connect-token")
	authToken := r.URL.Query().Get("auth-token")

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}

	ctx := r.Context()
	connectResp, err := c.syncService.Connect(ctx, &videosync.ConnectParams{
		Conn:         conn,
		ConnectToken: connectToken,
		AuthToken:    authToken,
		RoomId:       roomId,
	})
	if err != nil {
		c.logger.InfoContext(ctx, "failed to connect", "error", err)
		// identity is connection-bound: without it the connection carries no
		// events at all
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"))
		conn.Close()
		return
	}

	ctx = setIdentityToCtx(ctx, connectResp.RoomId, connectResp.ParticipantId)

	// proactive catch-up: a joiner reaches parity without waiting for an
	// explicit REQUEST_SYNC
	if err := c.syncService.SendSyncState(ctx, connectResp.RoomId, connectResp.ParticipantId); err != nil {
		c.logger.ErrorContext(ctx, "failed to send on-join sync state", "error", err)
	}

	if err := c.getWSRouter().ServeConn(ctx, conn); err != nil {
		c.logger.InfoContext(ctx, "connection closed", "error", err)
	}

	if _, err := c.syncService.Disconnect(context.WithoutCancel(ctx), conn); err != nil {
		c.logger.ErrorContext(ctx, "failed to disconnect", "error", err)
	}
}

type emptyInput struct{}

func (c controller) handleAlive(_ context.Context, _ *websocket.Conn, _ emptyInput) error {
	return nil
}

// syncEventInput mirrors the wire payload of PLAY/PAUSE/SEEK/CHANGE and
// REQUEST_SYNC messages. Semantic validation happens in the dispatcher.
type syncEventInput struct {
	Position  *float64 `json:"position,omitempty"`
	VideoURL  *string  `json:"video_url,omitempty"`
	EmittedAt *int64   `json:"emitted_at,omitempty"`
}

func (c controller) syncEventHandler(eventType domain.EventType) func(ctx context.Context, conn *websocket.Conn, input syncEventInput) error {
	return func(ctx context.Context, conn *websocket.Conn, input syncEventInput) error {
		roomId := c.getRoomIdFromCtx(ctx)
		participantId := c.getParticipantIdFromCtx(ctx)

		err := c.syncService.HandleEvent(ctx, &videosync.HandleEventParams{
			Event: domain.SyncEvent{
				Type:      eventType,
				Position:  input.Position,
				VideoURL:  input.VideoURL,
				EmittedAt: input.EmittedAt,
			},
			SenderId: participantId,
			RoomId:   roomId,
		})
		if err != nil {
			var syncErr *domain.SyncError
			if errors.As(err, &syncErr) {
				c.sendError(ctx, conn, syncErr)
				return nil
			}

			return fmt.Errorf("failed to handle %s: %w", eventType, err)
		}

		return nil
	}
}

func (c controller) handleRequestSync(ctx context.Context, conn *websocket.Conn, _ emptyInput) error {
	roomId := c.getRoomIdFromCtx(ctx)
	participantId := c.getParticipantIdFromCtx(ctx)

	if err := c.syncService.SendSyncState(ctx, roomId, participantId); err != nil {
		var syncErr *domain.SyncError
		if errors.As(err, &syncErr) {
			c.sendError(ctx, conn, syncErr)
			return nil
		}

		return fmt.Errorf("failed to handle request sync: %w", err)
	}

	return nil
}

// handleForbiddenSyncState rejects client-sent SYNC_STATE: it is produced
// by the dispatcher only.
func (c controller) handleForbiddenSyncState(ctx context.Context, conn *websocket.Conn, _ emptyInput) error {
	c.sendError(ctx, conn, domain.NewSyncError(domain.CodeForbiddenEventType, "SYNC_STATE is not accepted as client input"))
	return nil
}
