package client

import (
	"sync"
	"time"

	"github.com/watchtogether/server/pkg/delayedtask"
)

type guardState int

const (
	guardIdle guardState = iota
	guardApplyingRemote
)

// echoGuard suppresses the feedback loop between remote application and the
// media element's own events. It is a two-state machine: beginRemote moves
// it to applying-remote, and a settle timer returns it to idle once the
// element had time to fire the events caused by the programmatic change.
type echoGuard struct {
	mu          sync.Mutex
	state       guardState
	settle      *delayedtask.Task
	settleDelay time.Duration
}

func newEchoGuard(settleDelay time.Duration) *echoGuard {
	return &echoGuard{settleDelay: settleDelay}
}

func (g *echoGuard) beginRemote() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.settle != nil {
		g.settle.Cancel()
		g.settle = nil
	}
	g.state = guardApplyingRemote
}

func (g *echoGuard) settleLater() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.settle != nil {
		g.settle.Cancel()
	}
	g.settle = delayedtask.Schedule(g.settleDelay, func() {
		g.mu.Lock()
		g.state = guardIdle
		g.settle = nil
		g.mu.Unlock()
	})
}

func (g *echoGuard) suppressed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.state == guardApplyingRemote
}
