package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/watchtogether/server/internal/service/videosync"
	"github.com/watchtogether/server/pkg/rest"
)

type createRoomRequest struct {
	Username string `json:"username" validate:"required,max=32"`
}

type createRoomResponse struct {
	RoomId        string `json:"room_id"`
	ParticipantId string `json:"participant_id"`
	ConnectToken  string `json:"connect_token"`
	AuthToken     string `json:"auth_token"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := rest.ReadJSON(r, &req); err != nil {
		c.logger.InfoContext(r.Context(), "createRoom", "read json err", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.logger.InfoContext(r.Context(), "createRoom", "validate err", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	resp, err := c.syncService.CreateRoom(r.Context(), &videosync.CreateRoomParams{
		Username: req.Username,
	})
	if err != nil {
		c.logger.ErrorContext(r.Context(), "createRoom", "err", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to create room"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": createRoomResponse{
		RoomId:        resp.RoomId,
		ParticipantId: resp.ParticipantId,
		ConnectToken:  resp.ConnectToken,
		AuthToken:     resp.AuthToken,
	}})
}

type joinRoomRequest struct {
	Username string `json:"username" validate:"required,max=32"`
}

type joinRoomResponse struct {
	ParticipantId string `json:"participant_id"`
	ConnectToken  string `json:"connect_token"`
	AuthToken     string `json:"auth_token"`
}

func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	if roomId == "" {
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
		return
	}

	var req joinRoomRequest
	if err := rest.ReadJSON(r, &req); err != nil {
		c.logger.InfoContext(r.Context(), "joinRoom", "read json err", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.logger.InfoContext(r.Context(), "joinRoom", "validate err", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	resp, err := c.syncService.JoinRoom(r.Context(), &videosync.JoinRoomParams{
		RoomId:   roomId,
		Username: req.Username,
	})
	if err != nil {
		if errors.Is(err, videosync.ErrRoomNotFound) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
			return
		}

		c.logger.ErrorContext(r.Context(), "joinRoom", "err", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to join room"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": joinRoomResponse{
		ParticipantId: resp.ParticipantId,
		ConnectToken:  resp.ConnectToken,
		AuthToken:     resp.AuthToken,
	}})
}
