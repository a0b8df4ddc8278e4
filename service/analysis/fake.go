package analysis

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-live/model"
)

// Fake scripts analysis responses. Tests use it to observe how the sampler calls the backend.
type Fake struct {
	mu        sync.Mutex
	responses []FakeResponse
	next      int
	suspects  []model.Suspect
	records   []model.Record

	calls       atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

// FakeResponse is returned by one ProcessFrame call. Delay applies before answering.
type FakeResponse struct {
	Result model.AnalysisResult
	Err    error
	Delay  time.Duration
}

func NewFake(responses ...FakeResponse) *Fake {
	return &Fake{responses: responses}
}

// The last response repeats once the script is exhausted.
func (svc *Fake) ProcessFrame(ctx context.Context, _ []byte) (model.AnalysisResult, error) {
	svc.calls.Add(1)
	n := svc.inFlight.Add(1)
	defer svc.inFlight.Add(-1)

	for {
		m := svc.maxInFlight.Load()
		if n <= m || svc.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	resp := svc.current()
	if resp.Delay > 0 {
		select {
		case <-ctx.Done():
			return model.AnalysisResult{}, ctx.Err()
		case <-time.After(resp.Delay):
		}
	}

	return resp.Result, resp.Err
}

func (svc *Fake) current() FakeResponse {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if len(svc.responses) == 0 {
		return FakeResponse{Result: model.AnalysisResult{Status: "success"}}
	}

	resp := svc.responses[svc.next]
	if svc.next < len(svc.responses)-1 {
		svc.next++
	}
	return resp
}

// Script replaces the remaining responses.
func (svc *Fake) Script(responses ...FakeResponse) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.responses = responses
	svc.next = 0
}

func (svc *Fake) UploadSuspect(_ context.Context, suspect model.Suspect) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.suspects = append(svc.suspects, suspect)
	return nil
}

func (svc *Fake) RetrieveRecords(_ context.Context) ([]model.Record, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]model.Record(nil), svc.records...), nil
}

func (svc *Fake) DeleteRecord(_ context.Context, id int) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	for i, r := range svc.records {
		if r.ID == id {
			svc.records = append(svc.records[:i:i], svc.records[i+1:]...)
			return nil
		}
	}
	return xerrors.Errorf("DELETE /delete-face/%d: %w: Face not found", id, ErrNotFound)
}

func (svc *Fake) SetRecords(records []model.Record) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.records = records
}

func (svc *Fake) Uploaded() []model.Suspect {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]model.Suspect(nil), svc.suspects...)
}

func (svc *Fake) Calls() int {
	return int(svc.calls.Load())
}

func (svc *Fake) MaxInFlight() int {
	return int(svc.maxInFlight.Load())
}
