package pipeline

import (
	"math"
	"sync/atomic"
	"time"
)

// fpsMeter counts painted frames over a one second window. tick and reset belong to the render goroutine.
type fpsMeter struct {
	frames      int
	windowStart time.Time
	fps         atomic.Int32
}

func (m *fpsMeter) tick(now time.Time) {
	if m.windowStart.IsZero() {
		m.windowStart = now
	}

	m.frames++
	elapsed := now.Sub(m.windowStart)
	if elapsed < time.Second {
		return
	}

	m.fps.Store(int32(math.Round(float64(m.frames) * float64(time.Second) / float64(elapsed))))
	m.frames = 0
	m.windowStart = now
}

func (m *fpsMeter) reset() {
	m.frames = 0
	m.windowStart = time.Time{}
	m.fps.Store(0)
}

func (m *fpsMeter) value() int {
	return int(m.fps.Load())
}
