package pipeline

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/khaledhikmat/vs-live/model"
	"github.com/khaledhikmat/vs-live/service/analysis"
	"github.com/khaledhikmat/vs-live/service/camera"
)

func TestSimpleAlerter(t *testing.T) {
	bodies := make(chan string, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies <- string(b)
	}))
	defer srv.Close()

	settings := testSettings(t)
	settings.WebhookURL = srv.URL
	svcs := testServices(settings, camera.NewRandom(), analysis.NewFake())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errorStream := make(chan interface{}, 10)
	alerts := SimpleAlerter(ctx, svcs, errorStream, nil)

	now := time.Now()
	frame := []byte{0xff, 0xd8, 0xff, 0xd9}
	alerts <- AlertData{SessionID: "s1", Detection: model.Detection{Name: "X", Location: "Mumbai", Similarity: 0.8}, Frame: frame, Timestamp: now}
	alerts <- AlertData{SessionID: "s1", Detection: model.Detection{Name: "X"}, Frame: frame, Timestamp: now.Add(100 * time.Millisecond)}
	alerts <- AlertData{SessionID: "s1", Detection: model.Detection{Name: "Y"}, Frame: frame, Timestamp: now.Add(200 * time.Millisecond)}

	var got []string
	for len(got) < 2 {
		select {
		case b := <-bodies:
			got = append(got, b)
		case err := <-errorStream:
			t.Fatalf("alerter error: %v", err)
		case <-time.After(2 * time.Second):
			t.Fatalf("webhooks received: %v", got)
		}
	}
	if !strings.Contains(got[0], `"label":"X"`) || !strings.Contains(got[1], `"label":"Y"`) {
		t.Errorf("webhook bodies = %v", got)
	}

	select {
	case b := <-bodies:
		t.Errorf("cooldown let a repeat through: %s", b)
	case <-time.After(100 * time.Millisecond):
	}

	stored, err := svcs.DataSvc.RetrieveAlerts()
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 || stored[0].Name != "X" || stored[0].SnapshotURL == "" {
		t.Fatalf("stored alerts = %+v", stored)
	}
	if _, err := os.Stat(stored[0].SnapshotURL); err != nil {
		t.Errorf("snapshot not written: %v", err)
	}

	log, err := os.ReadFile(settings.DetectionsLogFile)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(log), "\n"); lines != 2 {
		t.Errorf("detections log has %d lines", lines)
	}
}
