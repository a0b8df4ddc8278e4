package pipeline

import (
	"sync"
	"time"
)

// AlertState is the transient "suspect detected" banner.
// Each raise clears the banner once the duration has passed, even if a later raise set it again.
// Timers armed before Clear do not touch alerts raised after it.
type AlertState struct {
	mu       sync.Mutex
	duration time.Duration
	name     string
	epoch    uint64
}

func NewAlertState(duration time.Duration) *AlertState {
	return &AlertState{duration: duration}
}

func (a *AlertState) Raise(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	epoch := a.epoch
	a.name = name

	time.AfterFunc(a.duration, func() {
		a.expire(epoch)
	})
}

func (a *AlertState) expire(epoch uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.epoch == epoch {
		a.name = ""
	}
}

// Clear drops the banner and disarms every pending timer.
func (a *AlertState) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.epoch++
	a.name = ""
}

// Current returns the alerted name, or "" when no alert is showing.
func (a *AlertState) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name
}
