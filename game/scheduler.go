package game

import (
	"sync"
	"time"
)

// TimerHandle cancels a scheduled callback. Cancel is idempotent.
type TimerHandle interface {
	Cancel()
}

// Scheduler arms one-shot deadline callbacks. It is the orchestrator's
// only source of time-driven events; a handle that was canceled before
// its callback entered the canceled-check never fires. A cancellation
// that loses the race against an in-flight callback is resolved by the
// phase guard at the top of every timeout handler.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) TimerHandle
}

type timerScheduler struct{}

func NewScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) Schedule(d time.Duration, fn func()) TimerHandle {
	h := &timerHandle{}
	h.timer = time.AfterFunc(d, func() {
		h.mu.Lock()
		if h.canceled || h.fired {
			h.mu.Unlock()
			return
		}
		h.fired = true
		h.mu.Unlock()
		fn()
	})
	return h
}

type timerHandle struct {
	mu       sync.Mutex
	canceled bool
	fired    bool
	timer    *time.Timer
}

func (h *timerHandle) Cancel() {
	h.mu.Lock()
	h.canceled = true
	h.mu.Unlock()
	h.timer.Stop()
}
