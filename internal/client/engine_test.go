package client

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchtogether/server/internal/domain"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []domain.SyncEvent
}

func (s *fakeSender) Send(event domain.SyncEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, event)
	return nil
}

func (s *fakeSender) events() []domain.SyncEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.SyncEvent(nil), s.sent...)
}

func (s *fakeSender) types() []domain.EventType {
	types := []domain.EventType{}
	for _, event := range s.events() {
		types = append(types, event.Type)
	}
	return types
}

// fakePlayer simulates the media element. The onPlay/onPause/onSeek hooks
// model the element firing its own events in response to programmatic calls;
// they run outside the player lock so they may call back into the engine.
type fakePlayer struct {
	mu       sync.Mutex
	position float64
	playing  bool
	videoURL string
	notReady int
	ops      []string

	onPlay  func()
	onPause func()
	onSeek  func()
}

func (p *fakePlayer) Play() {
	p.mu.Lock()
	p.playing = true
	p.ops = append(p.ops, "play")
	hook := p.onPlay
	p.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	p.playing = false
	p.ops = append(p.ops, "pause")
	hook := p.onPause
	p.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (p *fakePlayer) SeekTo(position float64) {
	p.mu.Lock()
	p.position = position
	p.ops = append(p.ops, "seek")
	hook := p.onSeek
	p.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (p *fakePlayer) Load(videoURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.videoURL = videoURL
	p.position = 0
	p.playing = false
	p.ops = append(p.ops, "load")
}

func (p *fakePlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.position
}

func (p *fakePlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.playing
}

func (p *fakePlayer) VideoURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.videoURL
}

func (p *fakePlayer) IsReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.notReady > 0 {
		p.notReady--
		return false
	}
	return true
}

func (p *fakePlayer) operations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.ops...)
}

func ptr[T any](v T) *T {
	return &v
}

func newTestEngine(sender Sender, cfg Config) *Engine {
	return NewEngine(sender, cfg, slog.Default())
}

func TestApplyPlayWithinDriftDoesNotSeek(t *testing.T) {
	sender := &fakeSender{}
	engine := newTestEngine(sender, Config{})
	player := &fakePlayer{position: 10.0, videoURL: "v1"}
	engine.AttachPlayer(player)

	require.NoError(t, engine.Apply(domain.SyncEvent{
		Type:     domain.EventTypePlay,
		Position: ptr(10.8),
		VideoURL: ptr("v1"),
	}))

	assert.True(t, player.IsPlaying())
	assert.Equal(t, []string{"play"}, player.operations())
	assert.Equal(t, 10.0, player.Position())
}

func TestApplyPlayBeyondDriftSeeks(t *testing.T) {
	sender := &fakeSender{}
	engine := newTestEngine(sender, Config{})
	player := &fakePlayer{position: 10.0, videoURL: "v1"}
	engine.AttachPlayer(player)

	require.NoError(t, engine.Apply(domain.SyncEvent{
		Type:     domain.EventTypePlay,
		Position: ptr(30.0),
		VideoURL: ptr("v1"),
	}))

	assert.Equal(t, []string{"seek", "play"}, player.operations())
	assert.Equal(t, 30.0, player.Position())
}

func TestApplySeekAlwaysSeeks(t *testing.T) {
	sender := &fakeSender{}
	engine := newTestEngine(sender, Config{})
	player := &fakePlayer{position: 10.0, videoURL: "v1"}
	engine.AttachPlayer(player)

	// 0.3s off is well inside the drift tolerance, an explicit jump still
	// lands exactly
	require.NoError(t, engine.Apply(domain.SyncEvent{
		Type:     domain.EventTypeSeek,
		Position: ptr(10.3),
	}))

	assert.Equal(t, []string{"seek"}, player.operations())
	assert.Equal(t, 10.3, player.Position())
}

func TestApplySuppressesEcho(t *testing.T) {
	sender := &fakeSender{}
	engine := newTestEngine(sender, Config{SettleDelay: 50 * time.Millisecond})
	player := &fakePlayer{position: 0, videoURL: "v1"}
	player.onPlay = engine.HandleNativePlay
	player.onPause = engine.HandleNativePause
	player.onSeek = engine.HandleNativeSeek
	engine.AttachPlayer(player)

	require.NoError(t, engine.Apply(domain.SyncEvent{
		Type:     domain.EventTypePlay,
		Position: ptr(42.0),
	}))

	// the programmatic seek and play fired native events back into the
	// engine; none of them may reach the room
	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, sender.events())
}

func TestNativePlayEmittedWhenIdle(t *testing.T) {
	sender := &fakeSender{}
	engine := newTestEngine(sender, Config{})
	engine.AttachPlayer(&fakePlayer{position: 7.0})

	engine.HandleNativePlay()

	events := sender.events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypePlay, events[0].Type)
	require.NotNil(t, events[0].Position)
	assert.Equal(t, 7.0, *events[0].Position)
	assert.NotNil(t, events[0].EmittedAt)
}

func TestPauseDebounceFires(t *testing.T) {
	sender := &fakeSender{}
	engine := newTestEngine(sender, Config{PauseDebounce: 30 * time.Millisecond})
	engine.AttachPlayer(&fakePlayer{position: 12.0})

	engine.HandleNativePause()

	assert.Eventually(t, func() bool {
		return len(sender.events()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []domain.EventType{domain.EventTypePause}, sender.types())
}

func TestPauseDebounceCancelledByResume(t *testing.T) {
	sender := &fakeSender{}
	engine := newTestEngine(sender, Config{PauseDebounce: 60 * time.Millisecond})
	engine.AttachPlayer(&fakePlayer{position: 12.0})

	// a buffering stall pauses and resumes within the window; the room only
	// ever sees the resume
	engine.HandleNativePause()
	time.Sleep(10 * time.Millisecond)
	engine.HandleNativePlay()

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, []domain.EventType{domain.EventTypePlay}, sender.types())
}

func TestApplySyncStateIsIdempotent(t *testing.T) {
	sender := &fakeSender{}
	engine := newTestEngine(sender, Config{})
	player := &fakePlayer{position: 40.0, playing: true, videoURL: "v1"}
	engine.AttachPlayer(player)

	event := domain.SyncEvent{
		Type:     domain.EventTypeSyncState,
		VideoURL: ptr("v1"),
		Position: ptr(40.0),
		Status:   ptr(domain.VideoStatusPlaying),
	}
	require.NoError(t, engine.Apply(event))
	require.NoError(t, engine.Apply(event))

	// the element was already playing at that position: seeks land on the
	// same spot and no play/pause call is issued
	assert.Equal(t, []string{"seek", "seek"}, player.operations())
	assert.True(t, player.IsPlaying())
	assert.Equal(t, 40.0, player.Position())
}

func TestApplyChangeLoadsBeforeSeeking(t *testing.T) {
	sender := &fakeSender{}
	engine := newTestEngine(sender, Config{ReadyRetryInterval: 5 * time.Millisecond})
	player := &fakePlayer{videoURL: "v1", notReady: 3}
	engine.AttachPlayer(player)

	require.NoError(t, engine.Apply(domain.SyncEvent{
		Type:     domain.EventTypeChange,
		VideoURL: ptr("v2"),
		Position: ptr(0.0),
	}))

	assert.Equal(t, []string{"load", "seek"}, player.operations())
	assert.Equal(t, "v2", player.VideoURL())
	assert.False(t, player.IsPlaying())
}

func TestApplyWaitsForPlayerAttachment(t *testing.T) {
	sender := &fakeSender{}
	engine := newTestEngine(sender, Config{ReadyRetryInterval: 10 * time.Millisecond})
	player := &fakePlayer{videoURL: "v1"}

	done := make(chan error, 1)
	go func() {
		done <- engine.Apply(domain.SyncEvent{
			Type:     domain.EventTypeSeek,
			Position: ptr(5.0),
		})
	}()

	time.Sleep(30 * time.Millisecond)
	engine.AttachPlayer(player)

	require.NoError(t, <-done)
	assert.Equal(t, 5.0, player.Position())
}

func TestApplyFailsWhenPlayerNeverAttaches(t *testing.T) {
	sender := &fakeSender{}
	engine := newTestEngine(sender, Config{
		ReadyRetryInterval: time.Millisecond,
		ReadyRetryLimit:    3,
	})

	err := engine.Apply(domain.SyncEvent{
		Type:     domain.EventTypeSeek,
		Position: ptr(5.0),
	})

	assert.ErrorIs(t, err, ErrPlayerNotReady)
}

func TestChangeVideoEmitsEvenWhileSuppressed(t *testing.T) {
	sender := &fakeSender{}
	engine := newTestEngine(sender, Config{SettleDelay: time.Second})
	engine.AttachPlayer(&fakePlayer{videoURL: "v1"})

	engine.guard.beginRemote()
	engine.ChangeVideo("v2")

	events := sender.events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeChange, events[0].Type)
	require.NotNil(t, events[0].VideoURL)
	assert.Equal(t, "v2", *events[0].VideoURL)
}

func TestNativeEventsIgnoredWithoutPlayer(t *testing.T) {
	sender := &fakeSender{}
	engine := newTestEngine(sender, Config{})

	engine.HandleNativePlay()
	engine.HandleNativeSeek()

	assert.Empty(t, sender.events())
}
