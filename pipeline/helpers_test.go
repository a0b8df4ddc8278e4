package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/khaledhikmat/vs-live/service/analysis"
	"github.com/khaledhikmat/vs-live/service/camera"
	"github.com/khaledhikmat/vs-live/service/config"
	"github.com/khaledhikmat/vs-live/service/data"
	"github.com/khaledhikmat/vs-live/service/storage"
	"github.com/khaledhikmat/vs-live/service/webhook"
)

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	dir := t.TempDir()

	s := config.Defaults()
	s.CameraType = config.CameraTypeRandom
	s.CameraWidth = 64
	s.CameraHeight = 48
	s.RenderInterval = 5 * time.Millisecond
	s.SampleInterval = 40 * time.Millisecond
	s.SamplePollInterval = 10 * time.Millisecond
	s.AlertDuration = 150 * time.Millisecond
	s.AlertCooldown = time.Second
	s.AnalysisTimeout = time.Second
	s.StatsInterval = time.Hour
	s.DataFolder = filepath.Join(dir, "data")
	s.SnapshotsFolder = filepath.Join(dir, "snapshots")
	s.DetectionsLogFile = filepath.Join(dir, "detections.log")
	return s
}

func testServices(settings config.Settings, cam camera.IService, svc analysis.IService) ServicesFactory {
	cfg := config.NewWith(settings)
	return ServicesFactory{
		CfgSvc:      cfg,
		DataSvc:     data.NewFilesDB(cfg),
		CameraSvc:   cam,
		AnalysisSvc: svc,
		StorageSvc:  storage.NewLocal(cfg),
		WebhookSvc:  webhook.New(cfg),
	}
}

func newTestAgent(t *testing.T, settings config.Settings, cam camera.IService, svc analysis.IService, statsStream chan interface{}) *Agent {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	a := NewAgent(ctx, testServices(settings, cam, svc), nil, statsStream, nil)
	t.Cleanup(func() {
		a.Close()
		cancel()
	})
	return a
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// painted reports whether the agent's surface holds a frame.
func painted(a *Agent) func() bool {
	return func() bool {
		return a.Snapshot().Width > 0
	}
}
