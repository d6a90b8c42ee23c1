package domain

import "math"

type EventType string

const (
	EventTypePlay        EventType = "PLAY"
	EventTypePause       EventType = "PAUSE"
	EventTypeSeek        EventType = "SEEK"
	EventTypeChange      EventType = "CHANGE"
	EventTypeRequestSync EventType = "REQUEST_SYNC"
	EventTypeSyncState   EventType = "SYNC_STATE"
)

type VideoStatus string

const (
	VideoStatusPlaying VideoStatus = "PLAYING"
	VideoStatusPaused  VideoStatus = "PAUSED"
	VideoStatusStopped VideoStatus = "STOPPED"
)

// SyncEvent is the wire shape of one playback synchronization message.
// Position and VideoURL are pointers because their presence depends on the
// event type. OriginParticipantId is stamped by the server on receipt and
// never trusted from the client.
type SyncEvent struct {
	Type                EventType    `json:"type"`
	Position            *float64     `json:"position,omitempty"`
	VideoURL            *string      `json:"video_url,omitempty"`
	EmittedAt           *int64       `json:"emitted_at,omitempty"`
	Status              *VideoStatus `json:"status,omitempty"`
	OriginParticipantId string       `json:"origin_participant_id,omitempty"`
}

// Validate enforces the structural and semantic rules for client-supplied
// events. SYNC_STATE is server-produced only and is rejected as input.
func (e *SyncEvent) Validate() error {
	switch e.Type {
	case EventTypePlay, EventTypePause, EventTypeSeek:
		if e.Position == nil {
			return NewSyncError(CodeMalformedEvent, "position is required for "+string(e.Type))
		}
		if math.IsNaN(*e.Position) || math.IsInf(*e.Position, 0) {
			return NewSyncError(CodeMalformedEvent, "position must be a finite number")
		}
		if *e.Position < 0 {
			return NewSyncError(CodeMalformedEvent, "position must not be negative")
		}
	case EventTypeChange:
		if e.VideoURL == nil || *e.VideoURL == "" {
			return NewSyncError(CodeMalformedEvent, "video_url is required for CHANGE")
		}
	case EventTypeRequestSync:
		// no payload fields required, extras are ignored
	case EventTypeSyncState:
		return NewSyncError(CodeForbiddenEventType, "SYNC_STATE is not accepted as client input")
	default:
		return NewSyncError(CodeMalformedEvent, "unknown event type: "+string(e.Type))
	}

	return nil
}
