package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestEveryTicksUntilStopped(t *testing.T) {
	var ticks atomic.Int32
	task := Every(context.Background(), "test", 5*time.Millisecond, func(context.Context, time.Time) {
		ticks.Add(1)
	})

	time.Sleep(60 * time.Millisecond)
	task.Stop()
	task.Stop()

	n := ticks.Load()
	if n < 3 {
		t.Errorf("ticks = %d, want at least 3", n)
	}

	time.Sleep(20 * time.Millisecond)
	if ticks.Load() != n {
		t.Error("task ticked after stop")
	}
}

func TestEveryTicksDoNotOverlap(t *testing.T) {
	var running, overlaps atomic.Int32
	task := Every(context.Background(), "slow", time.Millisecond, func(context.Context, time.Time) {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
	})

	time.Sleep(60 * time.Millisecond)
	task.Stop()

	if overlaps.Load() != 0 {
		t.Errorf("%d overlapping ticks", overlaps.Load())
	}
}

func TestStopWaitsForRunningTick(t *testing.T) {
	started := make(chan struct{}, 1)
	var finished atomic.Bool
	task := Every(context.Background(), "wait", time.Millisecond, func(context.Context, time.Time) {
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
	})

	<-started
	task.Stop()
	if !finished.Load() {
		t.Error("stop returned before the running tick finished")
	}
}

func TestEveryEndsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := Every(ctx, "parent", time.Millisecond, func(context.Context, time.Time) {})

	cancel()
	select {
	case <-task.done:
	case <-time.After(time.Second):
		t.Fatal("task did not end with its context")
	}
}
