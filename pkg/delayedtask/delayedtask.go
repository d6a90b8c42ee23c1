// Package delayedtask provides a cancellable delayed task, used for
// wait-and-see filtering such as debouncing transient pause events and
// releasing echo suppression after a settle window.
package delayedtask

import (
	"sync"
	"time"
)

type Task struct {
	timer *time.Timer
	mu    sync.Mutex
	fired bool
}

// Schedule runs fn after d unless the task is cancelled first.
func Schedule(d time.Duration, fn func()) *Task {
	t := &Task{}
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		t.fired = true
		t.mu.Unlock()

		fn()
	})

	return t
}

// Cancel stops the task. It reports whether the task was cancelled before
// it fired.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fired {
		return false
	}

	return t.timer.Stop()
}

func (t *Task) Fired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.fired
}
