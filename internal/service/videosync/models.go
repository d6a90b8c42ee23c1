package videosync

import "github.com/watchtogether/server/internal/domain"

// Output is the envelope for every server-to-client message, on both the
// room topic and the private channel.
type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const outputTypeError = "ERROR"

func newEventOutput(event *domain.SyncEvent) *Output {
	return &Output{
		Type:    string(event.Type),
		Payload: event,
	}
}

func NewErrorOutput(syncErr *domain.SyncError) *Output {
	return &Output{
		Type:    outputTypeError,
		Payload: syncErr,
	}
}
