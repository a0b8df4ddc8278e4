package pipeline

import (
	"context"
	"sync"
	"time"
)

// Task is a cancellable periodic job. Ticks of one task never overlap; a tick that is
// still running when the next one is due delays it rather than running alongside it.
type Task struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Every runs fn every interval until ctx is done or Stop is called.
// fn must not call Stop on its own task.
func Every(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context, now time.Time)) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	t := &Task{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(t.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-taskCtx.Done():
				return
			case now := <-ticker.C:
				// select picks randomly when both are ready
				if taskCtx.Err() != nil {
					return
				}
				fn(taskCtx, now)
			}
		}
	}()

	return t
}

func (t *Task) Name() string {
	return t.name
}

// Stop cancels the task and waits for a running tick to return. Safe to call more than once.
func (t *Task) Stop() {
	t.once.Do(t.cancel)
	<-t.done
}
