package videosync

import (
	"context"
	"fmt"
	"time"

	"github.com/watchtogether/server/internal/domain"
	"github.com/watchtogether/server/internal/repository/room"
)

type HandleEventParams struct {
	Event    domain.SyncEvent
	SenderId string
	RoomId   string
}

// HandleEvent is the single authority turning a validated client event into
// a state mutation and a broadcast. It runs start-to-finish per event: on
// any failure nothing is persisted and nothing is broadcast.
//
// REQUEST_SYNC is answered by SendSyncState on the private channel and never
// goes through here.
func (s *service) HandleEvent(ctx context.Context, params *HandleEventParams) error {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	event := params.Event
	if err := event.Validate(); err != nil {
		return err
	}

	exists, err := s.roomRepo.IsRoomExists(ctx, params.RoomId)
	if err != nil {
		return domain.NewSyncError(domain.CodeStoreUnavailable, fmt.Sprintf("failed to check room: %s", err))
	}
	if !exists {
		return domain.NewSyncError(domain.CodeRoomNotFound, "room not found: "+params.RoomId)
	}

	newState, err := s.nextVideoState(ctx, params.RoomId, &event)
	if err != nil {
		return err
	}

	if err := s.roomRepo.SetVideoState(ctx, &room.SetVideoStateParams{
		VideoState: newState,
		RoomId:     params.RoomId,
	}); err != nil {
		return domain.NewSyncError(domain.CodeStoreUnavailable, fmt.Sprintf("failed to persist state: %s", err))
	}

	// broadcast the validated event to every room subscriber, the sender
	// included: the sender's own echo finalizes its local state in the same
	// order every other participant observes.
	event.OriginParticipantId = params.SenderId
	if err := s.broadcaster.Publish(ctx, params.RoomId, newEventOutput(&event)); err != nil {
		return domain.NewSyncError(domain.CodeStoreUnavailable, fmt.Sprintf("failed to broadcast: %s", err))
	}

	if s.onActivity != nil {
		s.onActivity(params.RoomId, string(event.Type))
	}

	return nil
}

// nextVideoState computes the full replacement state for a mutating event.
// It never merges partially: the caller persists the returned value as a
// whole.
func (s *service) nextVideoState(ctx context.Context, roomId string, event *domain.SyncEvent) (room.VideoState, error) {
	current, err := s.roomRepo.GetVideoState(ctx, roomId)
	if err != nil {
		if err != room.ErrVideoStateNotFound {
			return room.VideoState{}, domain.NewSyncError(domain.CodeStoreUnavailable, fmt.Sprintf("failed to read state: %s", err))
		}

		current = defaultVideoState()
	}

	next := current
	switch event.Type {
	case domain.EventTypePlay:
		next.Status = domain.VideoStatusPlaying
		next.Position = *event.Position
	case domain.EventTypePause:
		next.Status = domain.VideoStatusPaused
		next.Position = *event.Position
	case domain.EventTypeSeek:
		next.Position = *event.Position
	case domain.EventTypeChange:
		// a freshly loaded video starts at zero and does not auto-play,
		// whatever position the sender claims
		next.VideoURL = *event.VideoURL
		next.Position = 0
		next.Status = domain.VideoStatusPaused

		zero := 0.0
		event.Position = &zero
	}
	next.UpdatedAt = time.Now().UnixMilli()

	return next, nil
}

func defaultVideoState() room.VideoState {
	return room.VideoState{
		VideoURL: "",
		Position: 0,
		Status:   domain.VideoStatusStopped,
	}
}

// BuildSyncState reads the room state without mutating it and shapes it as
// a SYNC_STATE event for private delivery.
func (s *service) BuildSyncState(ctx context.Context, roomId string) (domain.SyncEvent, error) {
	state, err := s.roomRepo.GetVideoState(ctx, roomId)
	if err != nil {
		if err != room.ErrVideoStateNotFound {
			return domain.SyncEvent{}, domain.NewSyncError(domain.CodeStoreUnavailable, fmt.Sprintf("failed to read state: %s", err))
		}

		state = defaultVideoState()
	}

	position := state.Position
	status := state.Status
	now := time.Now().UnixMilli()

	event := domain.SyncEvent{
		Type:      domain.EventTypeSyncState,
		Position:  &position,
		Status:    &status,
		EmittedAt: &now,
	}
	if state.VideoURL != "" {
		videoURL := state.VideoURL
		event.VideoURL = &videoURL
	}

	return event, nil
}

// SendSyncState delivers the room's current state to one participant on its
// private channel. Used both for an explicit REQUEST_SYNC and proactively
// on join.
func (s *service) SendSyncState(ctx context.Context, roomId, participantId string) error {
	event, err := s.BuildSyncState(ctx, roomId)
	if err != nil {
		return err
	}

	conn, err := s.connRepo.GetConn(participantId)
	if err != nil {
		return fmt.Errorf("failed to get conn: %w", err)
	}

	if err := s.connRepo.WriteJSON(conn, newEventOutput(&event)); err != nil {
		return fmt.Errorf("failed to send sync state: %w", err)
	}

	return nil
}
