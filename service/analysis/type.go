package analysis

import (
	"context"
	"errors"

	"github.com/khaledhikmat/vs-live/model"
)

var (
	ErrUnsuccessful = errors.New("analysis endpoint reported failure")
	ErrNotFound     = errors.New("not found")
)

// IService is the remote backend that does the face work.
type IService interface {
	ProcessFrame(ctx context.Context, jpeg []byte) (model.AnalysisResult, error)
	UploadSuspect(ctx context.Context, suspect model.Suspect) error
	RetrieveRecords(ctx context.Context) ([]model.Record, error)
	DeleteRecord(ctx context.Context, id int) error
}
