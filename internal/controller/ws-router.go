package controller

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/watchtogether/server/internal/domain"
	"github.com/watchtogether/server/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.wsRequestIdMw())
	mux.Use(c.wsLoggingMw())
	mux.OnError(func(ctx context.Context, conn *websocket.Conn, err error) {
		c.logger.InfoContext(ctx, "websocket handler error", "error", err)
		c.sendError(ctx, conn, domain.NewSyncError(domain.CodeMalformedEvent, err.Error()))
	})

	wsrouter.Handle(mux, "ALIVE", c.handleAlive)

	// playback synchronization
	wsrouter.Handle(mux, "PLAY", c.syncEventHandler(domain.EventTypePlay))
	wsrouter.Handle(mux, "PAUSE", c.syncEventHandler(domain.EventTypePause))
	wsrouter.Handle(mux, "SEEK", c.syncEventHandler(domain.EventTypeSeek))
	wsrouter.Handle(mux, "CHANGE", c.syncEventHandler(domain.EventTypeChange))
	wsrouter.Handle(mux, "REQUEST_SYNC", c.handleRequestSync)
	wsrouter.Handle(mux, "SYNC_STATE", c.handleForbiddenSyncState)

	return mux
}
