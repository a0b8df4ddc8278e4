package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/khaledhikmat/vs-live/model"
)

type detectionSet struct {
	generation uint64
	list       []model.Detection
	updated    time.Time
}

// DetectionState holds the latest analysis response as one immutable list.
// Readers always see a whole list; a write tagged with another session's generation is refused.
type DetectionState struct {
	current atomic.Pointer[detectionSet]
}

// Reset empties the state and binds it to generation.
func (s *DetectionState) Reset(generation uint64) {
	s.current.Store(&detectionSet{generation: generation})
}

// Replace swaps in list when generation is still the bound one.
func (s *DetectionState) Replace(generation uint64, list []model.Detection) bool {
	next := &detectionSet{
		generation: generation,
		list:       append([]model.Detection(nil), list...),
		updated:    time.Now(),
	}

	for {
		cur := s.current.Load()
		if cur == nil || cur.generation != generation {
			return false
		}
		if s.current.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// Load returns the current list. It is shared: callers must not modify it.
func (s *DetectionState) Load() []model.Detection {
	cur := s.current.Load()
	if cur == nil {
		return nil
	}
	return cur.list
}

func (s *DetectionState) Updated() time.Time {
	cur := s.current.Load()
	if cur == nil {
		return time.Time{}
	}
	return cur.updated
}
