package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"testing"
	"time"

	"github.com/khaledhikmat/vs-live/model"
	"github.com/khaledhikmat/vs-live/service/analysis"
	"github.com/khaledhikmat/vs-live/service/camera"
)

func success(detections ...model.Detection) analysis.FakeResponse {
	return analysis.FakeResponse{Result: model.AnalysisResult{Status: "success", Detections: detections}}
}

func TestStartStopReleasesTracks(t *testing.T) {
	cam := camera.NewRandom()
	a := newTestAgent(t, testSettings(t), cam, analysis.NewFake(), nil)

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if a.State() != StateLive {
		t.Fatalf("state = %v, want live", a.State())
	}
	if cam.ActiveTracks() != 1 {
		t.Errorf("active tracks = %d, want 1", cam.ActiveTracks())
	}
	waitFor(t, time.Second, "first paint", painted(a))

	a.Stop()
	if a.State() != StateIdle {
		t.Errorf("state = %v, want idle", a.State())
	}
	if cam.ActiveTracks() != 0 {
		t.Errorf("active tracks after stop = %d", cam.ActiveTracks())
	}

	// Second stop is a no-op
	a.Stop()
	if cam.Releases() != 1 {
		t.Errorf("releases = %d, want 1", cam.Releases())
	}

	snap := a.Snapshot()
	if len(snap.Detections) != 0 || snap.Alert != "" || snap.Processing || snap.Width != 0 || snap.Updated != nil {
		t.Errorf("snapshot after stop not reset: %+v", snap)
	}
}

func TestStopWhenIdleIsNoop(t *testing.T) {
	cam := camera.NewRandom()
	a := newTestAgent(t, testSettings(t), cam, analysis.NewFake(), nil)

	a.Stop()
	if a.State() != StateIdle || cam.Releases() != 0 {
		t.Errorf("stop on idle agent changed something: state %v, releases %d", a.State(), cam.Releases())
	}
}

func TestStartFailureReturnsToIdle(t *testing.T) {
	cam := camera.NewRandom()
	cam.FailOpen(errors.New("permission denied"))
	a := newTestAgent(t, testSettings(t), cam, analysis.NewFake(), nil)

	err := a.Start(context.Background())
	if !errors.Is(err, ErrCameraUnavailable) {
		t.Fatalf("err = %v, want ErrCameraUnavailable", err)
	}
	if a.State() != StateIdle {
		t.Errorf("state = %v, want idle", a.State())
	}
	if a.Snapshot().CameraError == "" {
		t.Error("camera error not reported")
	}

	cam.FailOpen(nil)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if a.Snapshot().CameraError != "" {
		t.Error("camera error not cleared by a successful start")
	}
}

func TestStartWhileLiveReplacesSession(t *testing.T) {
	cam := camera.NewRandom()
	a := newTestAgent(t, testSettings(t), cam, analysis.NewFake(), nil)

	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := a.Snapshot().SessionID

	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	second := a.Snapshot().SessionID

	if first == second {
		t.Error("restart kept the same session")
	}
	if cam.Opened() != 2 || cam.Releases() != 1 || cam.ActiveTracks() != 1 {
		t.Errorf("opened %d, releases %d, active %d", cam.Opened(), cam.Releases(), cam.ActiveTracks())
	}
}

func TestEnableProcessingRequiresLive(t *testing.T) {
	a := newTestAgent(t, testSettings(t), camera.NewRandom(), analysis.NewFake(), nil)

	if err := a.EnableProcessing(); !errors.Is(err, ErrNotLive) {
		t.Errorf("err = %v, want ErrNotLive", err)
	}
	if a.Processing() {
		t.Error("processing enabled while idle")
	}
}

func TestRenderLoopMakesNoRequests(t *testing.T) {
	cam := camera.NewRandom()
	fake := analysis.NewFake()
	a := newTestAgent(t, testSettings(t), cam, fake, nil)

	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	a.Stop()

	if fake.Calls() != 0 {
		t.Errorf("analysis called %d times with processing off", fake.Calls())
	}
	if paints := cam.Surfaces()[0].Paints; paints < 5 {
		t.Errorf("only %d paints in 200ms", paints)
	}
}

func TestSingleFlightWithSlowResponses(t *testing.T) {
	fake := analysis.NewFake(analysis.FakeResponse{
		Result: model.AnalysisResult{Status: "success"},
		Delay:  200 * time.Millisecond,
	})
	a := newTestAgent(t, testSettings(t), camera.NewRandom(), fake, nil)

	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, "first paint", painted(a))
	if err := a.EnableProcessing(); err != nil {
		t.Fatal(err)
	}

	time.Sleep(700 * time.Millisecond)

	if fake.MaxInFlight() != 1 {
		t.Errorf("max in flight = %d, want 1", fake.MaxInFlight())
	}
	if calls := fake.Calls(); calls < 2 || calls > 5 {
		t.Errorf("calls = %d, want between 2 and 5", calls)
	}
}

func TestSingleFlightWithTimeouts(t *testing.T) {
	settings := testSettings(t)
	settings.AnalysisTimeout = 50 * time.Millisecond

	fake := analysis.NewFake(analysis.FakeResponse{Delay: time.Second})
	a := newTestAgent(t, settings, camera.NewRandom(), fake, nil)

	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, "first paint", painted(a))
	if err := a.EnableProcessing(); err != nil {
		t.Fatal(err)
	}

	// The loop keeps its cadence through failures
	waitFor(t, 2*time.Second, "repeated attempts", func() bool { return fake.Calls() >= 3 })

	if fake.MaxInFlight() != 1 {
		t.Errorf("max in flight = %d, want 1", fake.MaxInFlight())
	}
	if n := len(a.Snapshot().Detections); n != 0 {
		t.Errorf("failed requests produced %d detections", n)
	}
}

func TestUnsuccessfulStatusKeepsDetections(t *testing.T) {
	fake := analysis.NewFake(success(model.Detection{BBox: []int{1, 1, 20, 20}, Name: "Unknown"}))
	a := newTestAgent(t, testSettings(t), camera.NewRandom(), fake, nil)

	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, "first paint", painted(a))
	if err := a.EnableProcessing(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, "detections", func() bool { return len(a.Snapshot().Detections) == 1 })

	fake.Script(analysis.FakeResponse{Result: model.AnalysisResult{Status: "error", Message: "no face"}})
	// Let a successful response that is already in flight land
	time.Sleep(100 * time.Millisecond)
	updated := a.Snapshot().Updated
	if updated == nil {
		t.Fatal("snapshot has no update time after a successful response")
	}
	calls := fake.Calls()
	waitFor(t, time.Second, "more requests", func() bool { return fake.Calls() > calls+2 })

	snap := a.Snapshot()
	if n := len(snap.Detections); n != 1 {
		t.Errorf("detections = %d, want the last successful list", n)
	}
	if snap.Updated == nil || !snap.Updated.Equal(*updated) {
		t.Errorf("update time moved on failed responses: %v, want %v", snap.Updated, *updated)
	}
}

func TestRecognizedSuspectRaisesAlert(t *testing.T) {
	cam := camera.NewRandom()
	fake := analysis.NewFake(success(
		model.Detection{BBox: []int{5, 10, 30, 40}, Name: "X", Similarity: 0.8, Recognized: true},
		model.Detection{BBox: []int{35, 10, 60, 40}, Name: "Unknown", Similarity: 0.1},
	))
	a := newTestAgent(t, testSettings(t), cam, fake, nil)

	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, "first paint", painted(a))
	if err := a.EnableProcessing(); err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, "alert", func() bool { return a.Snapshot().Alert == "X" })
	snap := a.Snapshot()
	if len(snap.Detections) != 2 || len(snap.Recent) != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}

	a.DisableProcessing()
	waitFor(t, time.Second, "alert to clear", func() bool { return a.Snapshot().Alert == "" })

	// Let a few frames paint with the boxes
	time.Sleep(50 * time.Millisecond)
	a.Stop()

	surface := cam.Surfaces()[0]
	if len(surface.Boxes) != 2 {
		t.Errorf("boxes = %d, want 2", len(surface.Boxes))
	}
	want := map[string]bool{"X (0.80)": true, "Unknown (0.10)": true}
	for _, l := range surface.Labels {
		delete(want, l)
	}
	if len(want) != 0 {
		t.Errorf("labels %v missing %v", surface.Labels, want)
	}
}

func TestMalformedDetectionsAreSkipped(t *testing.T) {
	cam := camera.NewRandom()
	fake := analysis.NewFake(success(
		model.Detection{BBox: []int{1, 2, 3}, Name: "short"},
		model.Detection{Name: "missing"},
		model.Detection{BBox: []int{10, 10, 10, 30}, Name: "flat"},
		model.Detection{BBox: []int{10, 10, 30, 30}, Name: "ok"},
	))
	a := newTestAgent(t, testSettings(t), cam, fake, nil)

	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, "first paint", painted(a))
	if err := a.EnableProcessing(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, "detections", func() bool { return len(a.Snapshot().Detections) == 4 })

	if snap := a.Snapshot(); len(snap.Recent) != recentDetections {
		t.Errorf("recent = %d, want %d", len(snap.Recent), recentDetections)
	}

	a.DisableProcessing()
	time.Sleep(50 * time.Millisecond)
	a.Stop()

	surface := cam.Surfaces()[0]
	if len(surface.Boxes) != 1 || len(surface.Labels) != 1 || surface.Labels[0] != "ok (0.00)" {
		t.Errorf("boxes %v labels %v", surface.Boxes, surface.Labels)
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	fake := analysis.NewFake(analysis.FakeResponse{
		Result: model.AnalysisResult{Status: "success", Detections: []model.Detection{
			{BBox: []int{1, 1, 20, 20}, Name: "X", Recognized: true},
		}},
		Delay: 150 * time.Millisecond,
	})
	a := newTestAgent(t, testSettings(t), camera.NewRandom(), fake, nil)

	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, "first paint", painted(a))
	if err := a.EnableProcessing(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, "request in flight", func() bool { return fake.Calls() == 1 })

	a.Stop()
	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)

	snap := a.Snapshot()
	if len(snap.Detections) != 0 || snap.Alert != "" {
		t.Errorf("stale response landed in the new session: %+v", snap)
	}
	if fake.Calls() != 1 {
		t.Errorf("calls = %d, want 1", fake.Calls())
	}
}

func TestStartDetectionNeedsSuspect(t *testing.T) {
	settings := testSettings(t)
	fake := analysis.NewFake()
	a := newTestAgent(t, settings, camera.NewRandom(), fake, nil)
	ctx := context.Background()

	if err := a.StartDetection(ctx); !errors.Is(err, ErrNoSuspects) {
		t.Fatalf("err = %v, want ErrNoSuspects", err)
	}

	err := a.AddSuspect(ctx, model.Suspect{Name: "X", Crime: "theft"})
	if !errors.Is(err, ErrInvalidSuspect) {
		t.Fatalf("err = %v, want ErrInvalidSuspect", err)
	}

	err = a.AddSuspect(ctx, model.Suspect{Name: "X", Crime: "theft", PhotoName: "x.jpg", Photo: []byte{0xff, 0xd8}})
	if err != nil {
		t.Fatalf("add suspect: %v", err)
	}

	uploaded := fake.Uploaded()
	if len(uploaded) != 1 || uploaded[0].Station != settings.StationName {
		t.Errorf("uploaded = %+v", uploaded)
	}
	if s := a.Suspects(); len(s) != 1 || s[0].Photo != nil || s[0].AddedAt.IsZero() {
		t.Errorf("suspects = %+v", s)
	}

	if err := a.StartDetection(ctx); err != nil {
		t.Fatalf("start detection: %v", err)
	}
	if a.State() != StateLive || !a.Processing() {
		t.Errorf("state %v, processing %v", a.State(), a.Processing())
	}
}

func TestFrame(t *testing.T) {
	a := newTestAgent(t, testSettings(t), camera.NewRandom(), analysis.NewFake(), nil)

	if _, err := a.Frame(); !errors.Is(err, ErrNotLive) {
		t.Errorf("err = %v, want ErrNotLive", err)
	}

	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, "first paint", painted(a))

	payload, err := a.Frame()
	if err != nil {
		t.Fatal(err)
	}
	img, err := jpeg.Decode(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("frame size = %v", img.Bounds())
	}
}

func TestStatsPublishedOnStop(t *testing.T) {
	stats := make(chan interface{}, 10)
	a := newTestAgent(t, testSettings(t), camera.NewRandom(), analysis.NewFake(), stats)

	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	id := a.Snapshot().SessionID
	waitFor(t, time.Second, "first paint", painted(a))
	a.Stop()

	var renderer, sampler, sess bool
	for len(stats) > 0 {
		switch s := (<-stats).(type) {
		case model.RendererStats:
			renderer = s.SessionID == id && s.Frames > 0
		case model.SamplerStats:
			sampler = s.SessionID == id
		case model.SessionStats:
			sess = s.ID == id && s.Width == 64 && s.Height == 48
		}
	}
	if !renderer || !sampler || !sess {
		t.Errorf("renderer %v, sampler %v, session %v", renderer, sampler, sess)
	}
}
