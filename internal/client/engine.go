package client

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/watchtogether/server/internal/domain"
	"github.com/watchtogether/server/pkg/delayedtask"
)

var ErrPlayerNotReady = errors.New("media player not ready")

// Sender carries outbound events to the server. Sends are fire-and-forget:
// an event lost to a dropped transport is reconciled on the next sync.
type Sender interface {
	Send(event domain.SyncEvent) error
}

// StatusFunc receives coarse user-facing indicators ("syncing",
// "synced", "reconnecting", "connected"), never raw error codes.
type StatusFunc func(status string)

type Config struct {
	// DriftTolerance is the position gap, in seconds, below which inbound
	// PLAY/PAUSE events do not force a seek.
	DriftTolerance float64
	// SettleDelay keeps echo suppression on after applying a remote event,
	// long enough for the element to fire its own events.
	SettleDelay time.Duration
	// PauseDebounce filters transient pauses caused by buffering/seeking.
	PauseDebounce time.Duration

	ReadyRetryInterval time.Duration
	ReadyRetryLimit    int
}

func (cfg Config) withDefaults() Config {
	if cfg.DriftTolerance == 0 {
		cfg.DriftTolerance = 1.5
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = 300 * time.Millisecond
	}
	if cfg.PauseDebounce == 0 {
		cfg.PauseDebounce = 250 * time.Millisecond
	}
	if cfg.ReadyRetryInterval == 0 {
		cfg.ReadyRetryInterval = 100 * time.Millisecond
	}
	if cfg.ReadyRetryLimit == 0 {
		cfg.ReadyRetryLimit = 20
	}

	return cfg
}

// Engine reconciles the local media element with the room: it translates
// user-driven element events into outbound protocol events and applies
// inbound events to the element with echo suppression and drift tolerance.
type Engine struct {
	cfg    Config
	guard  *echoGuard
	logger *slog.Logger

	mu           sync.Mutex
	player       MediaPlayer
	sender       Sender
	pendingPause *delayedtask.Task
	onStatus     StatusFunc
}

func NewEngine(sender Sender, cfg Config, logger *slog.Logger) *Engine {
	cfg = cfg.withDefaults()

	return &Engine{
		cfg:    cfg,
		guard:  newEchoGuard(cfg.SettleDelay),
		sender: sender,
		logger: logger,
	}
}

// AttachPlayer hands the engine its media element. Inbound events arriving
// before attachment are retried, not dropped.
func (e *Engine) AttachPlayer(p MediaPlayer) {
	e.mu.Lock()
	e.player = p
	e.mu.Unlock()
}

func (e *Engine) SetSender(sender Sender) {
	e.mu.Lock()
	e.sender = sender
	e.mu.Unlock()
}

func (e *Engine) OnStatus(f StatusFunc) {
	e.mu.Lock()
	e.onStatus = f
	e.mu.Unlock()
}

func (e *Engine) getPlayer() MediaPlayer {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.player
}

func (e *Engine) setStatus(status string) {
	e.mu.Lock()
	f := e.onStatus
	e.mu.Unlock()

	if f != nil {
		f(status)
	}
}

// HandleNativePlay reacts to the element reporting it started playing. A
// resume within the pause debounce window cancels the pending PAUSE.
func (e *Engine) HandleNativePlay() {
	e.cancelPendingPause()

	if e.guard.suppressed() {
		return
	}

	player := e.getPlayer()
	if player == nil {
		return
	}

	position := player.Position()
	e.emit(domain.SyncEvent{
		Type:     domain.EventTypePlay,
		Position: &position,
	})
}

// HandleNativePause debounces: transient pauses caused by buffering resolve
// back into playing within the window and must not reach the room.
func (e *Engine) HandleNativePause() {
	if e.guard.suppressed() {
		return
	}

	player := e.getPlayer()
	if player == nil {
		return
	}

	e.cancelPendingPause()

	e.mu.Lock()
	e.pendingPause = delayedtask.Schedule(e.cfg.PauseDebounce, func() {
		position := player.Position()
		e.emit(domain.SyncEvent{
			Type:     domain.EventTypePause,
			Position: &position,
		})
	})
	e.mu.Unlock()
}

// HandleNativeSeek reacts to a user-driven position jump.
func (e *Engine) HandleNativeSeek() {
	if e.guard.suppressed() {
		return
	}

	player := e.getPlayer()
	if player == nil {
		return
	}

	position := player.Position()
	e.emit(domain.SyncEvent{
		Type:     domain.EventTypeSeek,
		Position: &position,
	})
}

// ChangeVideo is an explicit user action, unambiguous by definition: it is
// always emitted, echo suppression or not, and applied locally at once
// rather than waiting for the echo.
func (e *Engine) ChangeVideo(videoURL string) {
	e.cancelPendingPause()

	player := e.getPlayer()
	if player != nil {
		e.guard.beginRemote()
		player.Load(videoURL)
		e.guard.settleLater()
	}

	e.emit(domain.SyncEvent{
		Type:     domain.EventTypeChange,
		VideoURL: &videoURL,
	})
}

// RequestSync asks the server for the room's current state; the answer
// arrives as SYNC_STATE on the private channel and goes through Apply.
func (e *Engine) RequestSync() {
	e.emit(domain.SyncEvent{Type: domain.EventTypeRequestSync})
}

// Apply runs the inbound path for one remote event: suppress echo, load a
// different video first, seek within drift policy, align play/pause status,
// then release suppression after the settle window.
func (e *Engine) Apply(event domain.SyncEvent) error {
	player, err := e.waitForPlayer()
	if err != nil {
		return err
	}

	e.setStatus("syncing")
	e.cancelPendingPause()
	e.guard.beginRemote()
	defer func() {
		e.guard.settleLater()
		e.setStatus("synced")
	}()

	if event.VideoURL != nil && *event.VideoURL != player.VideoURL() {
		player.Load(*event.VideoURL)
		// loading is asynchronous; position/status apply only once the
		// element can seek again
		if err := e.waitForReady(player); err != nil {
			return err
		}
	}

	if event.Position != nil {
		alwaysSeek := event.Type == domain.EventTypeSeek ||
			event.Type == domain.EventTypeChange ||
			event.Type == domain.EventTypeSyncState
		if alwaysSeek || math.Abs(player.Position()-*event.Position) > e.cfg.DriftTolerance {
			player.SeekTo(*event.Position)
		}
	}

	e.applyStatus(player, &event)

	return nil
}

// applyStatus aligns play/pause only when it differs from the element's
// native state; redundant calls would fire spurious native events.
func (e *Engine) applyStatus(player MediaPlayer, event *domain.SyncEvent) {
	switch event.Type {
	case domain.EventTypePlay:
		if !player.IsPlaying() {
			player.Play()
		}
	case domain.EventTypePause:
		if player.IsPlaying() {
			player.Pause()
		}
	case domain.EventTypeChange:
		// a freshly loaded video does not auto-play
		if player.IsPlaying() {
			player.Pause()
		}
	case domain.EventTypeSyncState:
		if event.Status == nil {
			return
		}
		switch *event.Status {
		case domain.VideoStatusPlaying:
			if !player.IsPlaying() {
				player.Play()
			}
		case domain.VideoStatusPaused, domain.VideoStatusStopped:
			if player.IsPlaying() {
				player.Pause()
			}
		}
	}
}

// waitForPlayer retries for a bounded time when the element is not yet
// attached. Losing the first synchronization after join would be a
// correctness bug, not a cosmetic one.
func (e *Engine) waitForPlayer() (MediaPlayer, error) {
	for attempt := 0; attempt < e.cfg.ReadyRetryLimit; attempt++ {
		if player := e.getPlayer(); player != nil {
			return player, nil
		}

		time.Sleep(e.cfg.ReadyRetryInterval)
	}

	return nil, fmt.Errorf("%w: no media player attached", ErrPlayerNotReady)
}

func (e *Engine) waitForReady(player MediaPlayer) error {
	for attempt := 0; attempt < e.cfg.ReadyRetryLimit; attempt++ {
		if player.IsReady() {
			return nil
		}

		time.Sleep(e.cfg.ReadyRetryInterval)
	}

	return fmt.Errorf("%w: video did not become ready", ErrPlayerNotReady)
}

func (e *Engine) cancelPendingPause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingPause != nil {
		e.pendingPause.Cancel()
		e.pendingPause = nil
	}
}

// emit sends fire-and-forget: a failed send is logged and reconciled by the
// next sync, never queued across a disconnect.
func (e *Engine) emit(event domain.SyncEvent) {
	e.mu.Lock()
	sender := e.sender
	e.mu.Unlock()

	if sender == nil {
		return
	}

	now := time.Now().UnixMilli()
	event.EmittedAt = &now

	if err := sender.Send(event); err != nil {
		e.logger.Info("failed to send event", "type", event.Type, "error", err)
	}
}
