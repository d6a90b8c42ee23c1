package videosync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/watchtogether/server/internal/repository/room"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrInvalidConnectTkn = errors.New("invalid connect token")
)

const roomIdLength = 8

type CreateRoomParams struct {
	Username string
}

type CreateRoomResponse struct {
	RoomId        string
	ParticipantId string
	ConnectToken  string
	AuthToken     string
}

func (s *service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	roomId := s.generator.GenerateRandomString(roomIdLength)
	participantId := uuid.NewString()

	if err := s.roomRepo.CreateRoom(ctx, &room.CreateRoomParams{
		RoomId:    roomId,
		CreatedBy: participantId,
		CreatedAt: time.Now().Unix(),
	}); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to create room: %w", err)
	}

	tokens, err := s.issueTokens(ctx, roomId, participantId, params.Username)
	if err != nil {
		return CreateRoomResponse{}, err
	}

	return CreateRoomResponse{
		RoomId:        roomId,
		ParticipantId: participantId,
		ConnectToken:  tokens.connectToken,
		AuthToken:     tokens.authToken,
	}, nil
}

type JoinRoomParams struct {
	RoomId   string
	Username string
}

type JoinRoomResponse struct {
	ParticipantId string
	ConnectToken  string
	AuthToken     string
}

func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	exists, err := s.roomRepo.IsRoomExists(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to check room: %w", err)
	}
	if !exists {
		return JoinRoomResponse{}, ErrRoomNotFound
	}

	participantId := uuid.NewString()
	tokens, err := s.issueTokens(ctx, params.RoomId, participantId, params.Username)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	return JoinRoomResponse{
		ParticipantId: participantId,
		ConnectToken:  tokens.connectToken,
		AuthToken:     tokens.authToken,
	}, nil
}

type issuedTokens struct {
	connectToken string
	authToken    string
}

func (s *service) issueTokens(ctx context.Context, roomId, participantId, username string) (issuedTokens, error) {
	connectToken := uuid.NewString()
	if err := s.roomRepo.SetConnectSession(ctx, connectToken, &room.ConnectSession{
		RoomId:        roomId,
		ParticipantId: participantId,
		Username:      username,
	}); err != nil {
		return issuedTokens{}, fmt.Errorf("failed to set connect session: %w", err)
	}

	authToken, err := s.generateAuthToken(roomId, participantId)
	if err != nil {
		return issuedTokens{}, fmt.Errorf("failed to generate auth token: %w", err)
	}

	return issuedTokens{connectToken: connectToken, authToken: authToken}, nil
}

type ConnectParams struct {
	Conn *websocket.Conn
	// exactly one of the two tokens identifies the connection
	ConnectToken string
	AuthToken    string
	RoomId       string
}

type ConnectResponse struct {
	RoomId        string
	ParticipantId string
}

// Connect binds a websocket connection to its (roomId, participantId)
// identity, registers it and subscribes it to the room topic. Events on a
// connection that never passed here are dropped at the transport boundary.
func (s *service) Connect(ctx context.Context, params *ConnectParams) (ConnectResponse, error) {
	roomId, participantId, err := s.resolveIdentity(ctx, params)
	if err != nil {
		return ConnectResponse{}, err
	}

	if params.RoomId != "" && params.RoomId != roomId {
		return ConnectResponse{}, ErrInvalidConnectTkn
	}

	exists, err := s.roomRepo.IsRoomExists(ctx, roomId)
	if err != nil {
		return ConnectResponse{}, fmt.Errorf("failed to check room: %w", err)
	}
	if !exists {
		return ConnectResponse{}, ErrRoomNotFound
	}

	if err := s.connRepo.Add(params.Conn, roomId, participantId); err != nil {
		return ConnectResponse{}, fmt.Errorf("failed to register conn: %w", err)
	}

	if err := s.roomRepo.AddParticipant(ctx, &room.AddParticipantParams{
		RoomId:        roomId,
		ParticipantId: participantId,
	}); err != nil {
		s.connRepo.RemoveByConn(params.Conn)
		return ConnectResponse{}, fmt.Errorf("failed to add participant: %w", err)
	}

	s.broadcaster.Subscribe(roomId)

	if s.onActivity != nil {
		s.onActivity(roomId, "PARTICIPANT_CONNECTED")
	}

	return ConnectResponse{RoomId: roomId, ParticipantId: participantId}, nil
}

func (s *service) resolveIdentity(ctx context.Context, params *ConnectParams) (string, string, error) {
	if params.ConnectToken != "" {
		session, err := s.roomRepo.GetConnectSession(ctx, params.ConnectToken)
		if err != nil {
			if err == room.ErrConnectTokenNotFound {
				return "", "", ErrInvalidConnectTkn
			}

			return "", "", fmt.Errorf("failed to get connect session: %w", err)
		}

		return session.RoomId, session.ParticipantId, nil
	}

	claims, err := s.parseAuthToken(params.AuthToken)
	if err != nil {
		return "", "", ErrInvalidConnectTkn
	}

	return claims.RoomId, claims.ParticipantId, nil
}

type DisconnectResponse struct {
	RoomId        string
	ParticipantId string
	IsRoomDeleted bool
}

// Disconnect tears the connection down. The room and its video state are
// destroyed when the last participant leaves.
func (s *service) Disconnect(ctx context.Context, conn *websocket.Conn) (DisconnectResponse, error) {
	roomId, participantId, err := s.connRepo.GetIdentity(conn)
	if err != nil {
		return DisconnectResponse{}, fmt.Errorf("failed to get identity: %w", err)
	}

	if err := s.connRepo.RemoveByConn(conn); err != nil {
		return DisconnectResponse{}, fmt.Errorf("failed to remove conn: %w", err)
	}
	s.broadcaster.Unsubscribe(roomId)

	if err := s.roomRepo.RemoveParticipant(ctx, &room.RemoveParticipantParams{
		RoomId:        roomId,
		ParticipantId: participantId,
	}); err != nil {
		return DisconnectResponse{}, fmt.Errorf("failed to remove participant: %w", err)
	}

	count, err := s.roomRepo.GetParticipantsCount(ctx, roomId)
	if err != nil {
		return DisconnectResponse{}, fmt.Errorf("failed to get participants count: %w", err)
	}

	resp := DisconnectResponse{RoomId: roomId, ParticipantId: participantId}
	if count == 0 {
		if err := s.roomRepo.RemoveRoom(ctx, roomId); err != nil {
			return DisconnectResponse{}, fmt.Errorf("failed to remove room: %w", err)
		}
		resp.IsRoomDeleted = true
	}

	if s.onActivity != nil {
		s.onActivity(roomId, "PARTICIPANT_DISCONNECTED")
	}

	return resp, nil
}
