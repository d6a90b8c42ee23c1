package videosync

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/watchtogether/server/internal/repository/room"
	"github.com/watchtogether/server/pkg/randstr"
)

type iRoomRepo interface {
	// video state
	SetVideoState(context.Context, *room.SetVideoStateParams) error
	GetVideoState(context.Context, string) (room.VideoState, error)
	RemoveVideoState(context.Context, string) error
	// room
	CreateRoom(context.Context, *room.CreateRoomParams) error
	IsRoomExists(context.Context, string) (bool, error)
	RemoveRoom(context.Context, string) error
	// participants
	AddParticipant(context.Context, *room.AddParticipantParams) error
	RemoveParticipant(context.Context, *room.RemoveParticipantParams) error
	GetParticipantsCount(context.Context, string) (int, error)
	// connect token
	SetConnectSession(context.Context, string, *room.ConnectSession) error
	GetConnectSession(context.Context, string) (room.ConnectSession, error)
}

type iConnRepo interface {
	Add(conn *websocket.Conn, roomId, participantId string) error
	RemoveByConn(conn *websocket.Conn) error
	GetConn(participantId string) (*websocket.Conn, error)
	GetIdentity(conn *websocket.Conn) (roomId, participantId string, err error)
	GetConnsByRoomId(roomId string) []*websocket.Conn
	WriteJSON(conn *websocket.Conn, v any) error
	WriteMessage(conn *websocket.Conn, data []byte) error
}

type iBroadcaster interface {
	Publish(ctx context.Context, roomId string, output *Output) error
	Subscribe(roomId string)
	Unsubscribe(roomId string)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

// ActivityFunc is notified after every successful broadcast. Presence and
// roster features consume it; no contract beyond "event of this type
// occurred in this room".
type ActivityFunc func(roomId string, eventType string)

type Config struct {
	Secret     string
	OnActivity ActivityFunc
}

type service struct {
	roomRepo    iRoomRepo
	connRepo    iConnRepo
	broadcaster iBroadcaster
	generator   iGenerator
	secret      string
	onActivity  ActivityFunc
	logger      *slog.Logger

	roomLocksMu sync.Mutex
	roomLocks   map[string]*sync.Mutex
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, broadcaster iBroadcaster, cfg *Config, logger *slog.Logger) *service {
	s := service{
		roomRepo:    roomRepo,
		connRepo:    connRepo,
		broadcaster: broadcaster,
		secret:      cfg.Secret,
		onActivity:  cfg.OnActivity,
		logger:      logger,
		roomLocks:   make(map[string]*sync.Mutex),
	}

	letterBytes := []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	s.generator = randstr.New(letterBytes)

	return &s
}

// lockRoom serializes event handling per room. Validate, persist and
// broadcast run start-to-finish for one event before the next event of the
// same room is processed; different rooms proceed in parallel.
func (s *service) lockRoom(roomId string) func() {
	s.roomLocksMu.Lock()
	mu, ok := s.roomLocks[roomId]
	if !ok {
		mu = &sync.Mutex{}
		s.roomLocks[roomId] = mu
	}
	s.roomLocksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// WriteOutput delivers an output on a connection's private channel.
func (s *service) WriteOutput(conn *websocket.Conn, output *Output) error {
	return s.connRepo.WriteJSON(conn, output)
}
