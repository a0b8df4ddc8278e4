package data

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/khaledhikmat/vs-live/model"
	"github.com/khaledhikmat/vs-live/service/config"
)

func newTestDB(t *testing.T) (IService, string) {
	t.Helper()

	s := config.Defaults()
	s.DataFolder = filepath.Join(t.TempDir(), "data")
	return NewFilesDB(config.NewWith(s)), s.DataFolder
}

func TestAlertsRoundTrip(t *testing.T) {
	db, _ := newTestDB(t)

	alerts, err := db.RetrieveAlerts()
	if err != nil || len(alerts) != 0 {
		t.Fatalf("fresh store = %v, %v", alerts, err)
	}

	for _, name := range []string{"X", "Y"} {
		if err := db.NewAlert(model.Alert{Name: name, Timestamp: time.Now()}); err != nil {
			t.Fatalf("new alert: %v", err)
		}
	}

	alerts, err = db.RetrieveAlerts()
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(alerts) != 2 || alerts[0].Name != "X" || alerts[1].Name != "Y" {
		t.Errorf("alerts = %+v", alerts)
	}
}

func TestStatsAreTimestamped(t *testing.T) {
	db, folder := newTestDB(t)

	if err := db.NewSamplerStats(model.SamplerStats{Name: "sampler", Requests: 4}); err != nil {
		t.Fatalf("sampler stats: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(folder, "sampler-stats.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var stats []model.SamplerStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(stats) != 1 || stats[0].Requests != 4 || stats[0].Timestamp == 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestNewErrorAcceptsPlainAndCustomErrors(t *testing.T) {
	db, folder := newTestDB(t)

	if err := db.NewError(errors.New("plain")); err != nil {
		t.Fatalf("plain: %v", err)
	}
	if err := db.NewError(model.GenError("sampler", errors.New("inner"), nil, "custom")); err != nil {
		t.Fatalf("custom: %v", err)
	}
	if err := db.NewError("not an error"); err != nil {
		t.Fatalf("string: %v", err)
	}

	raw, _ := os.ReadFile(filepath.Join(folder, "errors.json"))
	var entries []map[string]interface{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(entries) != 3 || entries[1]["processor"] != "sampler" || entries[1]["innerError"] != "inner" {
		t.Errorf("entries = %v", entries)
	}
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	db, _ := newTestDB(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			db.NewAlert(model.Alert{Name: "X"})
		}()
	}
	wg.Wait()

	alerts, _ := db.RetrieveAlerts()
	if len(alerts) != 20 {
		t.Errorf("alerts = %d, want 20", len(alerts))
	}
}
