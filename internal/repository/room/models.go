package room

import (
	"errors"

	"github.com/watchtogether/server/internal/domain"
)

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrVideoStateNotFound   = errors.New("video state not found")
	ErrConnectTokenNotFound = errors.New("connect token not found")
)

// VideoState is the authoritative playback state of one room. Writes are
// always full replacements, never partial merges.
type VideoState struct {
	VideoURL  string             `redis:"video_url"`
	Position  float64            `redis:"position"`
	Status    domain.VideoStatus `redis:"status"`
	UpdatedAt int64              `redis:"updated_at"`
}

type SetVideoStateParams struct {
	VideoState
	RoomId string
}

type CreateRoomParams struct {
	RoomId    string
	CreatedBy string
	CreatedAt int64
}

type AddParticipantParams struct {
	RoomId        string
	ParticipantId string
	Username      string
}

type RemoveParticipantParams struct {
	RoomId        string
	ParticipantId string
}

// ConnectSession is the pending identity created by the REST handshake and
// consumed once by the websocket connect.
type ConnectSession struct {
	RoomId        string `json:"room_id"`
	ParticipantId string `json:"participant_id"`
	Username      string `json:"username"`
}
