package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-live/model"
	"github.com/khaledhikmat/vs-live/service/config"
)

type filesDBService struct {
	CfgSvc config.IService
	// Each entity file is rewritten whole, so appends must not interleave
	mu sync.Mutex
}

func NewFilesDB(cfgsvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgsvc,
	}
}

func (svc *filesDBService) NewError(err interface{}) error {
	// Determine if the error is custom
	var customErr model.CustomError
	switch e := err.(type) {
	case model.CustomError:
		customErr = e
	case error:
		customErr.Processor = "N/A"
		customErr.Inner = e
		customErr.Message = e.Error()
		customErr.StackTrace = "N/A"
	default:
		customErr.Processor = "N/A"
		customErr.Message = fmt.Sprintf("%v", e)
		customErr.StackTrace = "N/A"
	}

	inner := ""
	if customErr.Inner != nil {
		inner = customErr.Inner.Error()
	}

	// Create an error object to persist
	errorData := struct {
		Timestamp  int64                  `json:"timestamp"`
		Processor  string                 `json:"processor"`
		Inner      string                 `json:"innerError"`
		Message    string                 `json:"message"`
		StackTrace string                 `json:"stackTrace"`
		Misc       map[string]interface{} `json:"misc"`
	}{
		Timestamp:  time.Now().Unix(),
		Processor:  customErr.Processor,
		Inner:      inner,
		Message:    customErr.Message,
		StackTrace: customErr.StackTrace,
		Misc:       customErr.Misc,
	}
	return newEntity(svc, errorData, "errors")
}

func (svc *filesDBService) NewSessionStats(stats model.SessionStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(svc, stats, "session-stats")
}

func (svc *filesDBService) NewRendererStats(stats model.RendererStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(svc, stats, "renderer-stats")
}

func (svc *filesDBService) NewSamplerStats(stats model.SamplerStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(svc, stats, "sampler-stats")
}

func (svc *filesDBService) NewAlerterStats(stats model.AlerterStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(svc, stats, "alerter-stats")
}

func (svc *filesDBService) NewAlert(alert model.Alert) error {
	return newEntity(svc, alert, "alerts")
}

func (svc *filesDBService) RetrieveAlerts() ([]model.Alert, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return retrieveEntities[model.Alert](svc.path("alerts"))
}

func (svc *filesDBService) path(name string) string {
	return filepath.Join(svc.CfgSvc.GetDataFolder(), name+".json")
}

func newEntity[T any](svc *filesDBService, entity T, name string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if err := os.MkdirAll(svc.CfgSvc.GetDataFolder(), 0o755); err != nil {
		return xerrors.Errorf("creating data folder: %w", err)
	}

	output := svc.path(name)
	entities, err := retrieveEntities[T](output)
	if err != nil {
		return err
	}

	entities = append(entities, entity)

	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return xerrors.Errorf("marshalling %s: %w", name, err)
	}

	// Write the JSON data to the file (with truncation)
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return xerrors.Errorf("writing %s: %w", output, err)
	}

	return nil
}

func retrieveEntities[T any](file string) ([]T, error) {
	entities := []T{}

	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return entities, nil
	}
	if err != nil {
		return nil, xerrors.Errorf("reading %s: %w", file, err)
	}

	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, xerrors.Errorf("unmarshalling %s: %w", file, err)
	}

	return entities, nil
}
