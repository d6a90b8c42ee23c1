package inmemory

import (
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/maps"

	"github.com/watchtogether/server/internal/repository/connection"
)

type identity struct {
	roomId        string
	participantId string
	writeMu       *sync.Mutex
}

type repo struct {
	connList map[*websocket.Conn]*identity
	idList   map[string]*websocket.Conn
	roomList map[string]map[string]*websocket.Conn
	mu       sync.RWMutex
}

func NewRepo() *repo {
	return &repo{
		connList: make(map[*websocket.Conn]*identity),
		idList:   make(map[string]*websocket.Conn),
		roomList: make(map[string]map[string]*websocket.Conn),
	}
}

func (r *repo) Add(conn *websocket.Conn, roomId, participantId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connList[conn]; ok {
		return connection.ErrAlreadyExists
	}
	if _, ok := r.idList[participantId]; ok {
		return connection.ErrAlreadyExists
	}

	r.connList[conn] = &identity{
		roomId:        roomId,
		participantId: participantId,
		writeMu:       &sync.Mutex{},
	}
	r.idList[participantId] = conn

	roomConns, ok := r.roomList[roomId]
	if !ok {
		roomConns = make(map[string]*websocket.Conn)
		r.roomList[roomId] = roomConns
	}
	roomConns[participantId] = conn

	return nil
}

func (r *repo) RemoveByConn(conn *websocket.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.connList[conn]
	if !ok {
		return connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.idList, id.participantId)

	if roomConns, ok := r.roomList[id.roomId]; ok {
		delete(roomConns, id.participantId)
		if len(roomConns) == 0 {
			delete(r.roomList, id.roomId)
		}
	}

	return nil
}

func (r *repo) GetConn(participantId string) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.idList[participantId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

func (r *repo) GetIdentity(conn *websocket.Conn) (string, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.connList[conn]
	if !ok {
		return "", "", connection.ErrNotFound
	}

	return id.roomId, id.participantId, nil
}

func (r *repo) GetConnsByRoomId(roomId string) []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return maps.Values(r.roomList[roomId])
}

// WriteJSON serializes writes per connection. Broadcast fan-out and private
// deliveries run on different goroutines and gorilla conns do not allow
// concurrent writers.
func (r *repo) WriteJSON(conn *websocket.Conn, v any) error {
	r.mu.RLock()
	id, ok := r.connList[conn]
	r.mu.RUnlock()

	if !ok {
		// not registered yet, e.g. a handshake rejection
		return conn.WriteJSON(v)
	}

	id.writeMu.Lock()
	defer id.writeMu.Unlock()

	return conn.WriteJSON(v)
}

func (r *repo) WriteMessage(conn *websocket.Conn, data []byte) error {
	r.mu.RLock()
	id, ok := r.connList[conn]
	r.mu.RUnlock()

	if !ok {
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	id.writeMu.Lock()
	defer id.writeMu.Unlock()

	return conn.WriteMessage(websocket.TextMessage, data)
}
