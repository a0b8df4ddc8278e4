package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/khaledhikmat/vs-live/model"
	"github.com/khaledhikmat/vs-live/service/camera"
	"github.com/khaledhikmat/vs-live/service/lgr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"
)

// sample runs on every poll tick and fires a request when processing is on,
// the sample interval has elapsed and no other request is outstanding.
func (a *Agent) sample(_ context.Context, s *session, now time.Time) {
	if !a.processing.Load() {
		return
	}

	if last := a.lastSample.Load(); last != 0 && now.Sub(time.Unix(0, last)) < a.svcs.CfgSvc.GetSampleInterval() {
		return
	}

	if !a.inFlight.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		return
	}

	payload, err := a.encodeSurface()
	if err != nil {
		a.inFlight.Store(false)
		// Nothing painted yet
		if errors.Is(err, camera.ErrEmptySurface) || errors.Is(err, ErrNotLive) {
			return
		}
		a.report(model.GenError("agent_sampler",
			err,
			map[string]interface{}{"session": s.id},
			"error encoding frame"))
		return
	}

	a.lastSample.Store(now.UnixNano())
	s.requests.Add(1)

	a.pending.Add(1)
	go a.submit(s, payload)
}

func (a *Agent) encodeSurface() ([]byte, error) {
	a.surfaceMu.Lock()
	defer a.surfaceMu.Unlock()

	if a.surface == nil {
		return nil, ErrNotLive
	}
	return a.surface.EncodeJPEG(a.svcs.CfgSvc.GetJpegQuality())
}

// submit is not tied to the session: a stopped session lets the request finish
// and its response is then dropped as stale.
func (a *Agent) submit(s *session, payload []byte) {
	defer a.pending.Done()
	defer a.inFlight.Store(false)

	ctx, span := a.tracer.Start(a.rootCtx, "sampler.process_frame",
		trace.WithAttributes(
			attribute.String("session.id", s.id),
			attribute.Int("payload.bytes", len(payload)),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, a.svcs.CfgSvc.GetAnalysisTimeout())
	defer cancel()

	started := time.Now()
	result, err := a.svcs.AnalysisSvc.ProcessFrame(ctx, payload)
	s.latency.Add(int64(time.Since(started)))

	if err == nil && !result.Succeeded() {
		err = xerrors.Errorf("status %q: %s", result.Status, result.Message)
	}
	if err != nil {
		s.failures.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "process frame failed")
		lgr.Logger.Warn(
			"frame processing failed, skipping cycle",
			slog.String("session", s.id),
			slog.Any("error", err),
		)
		return
	}

	s.successes.Add(1)
	span.SetAttributes(attribute.Int("detections", len(result.Detections)))
	a.apply(s, result, payload)
}

// apply publishes a successful response if its session is still the active one.
func (a *Agent) apply(s *session, result model.AnalysisResult, payload []byte) {
	a.applyMu.Lock()
	if a.activeGen.Load() != s.generation || !a.detections.Replace(s.generation, result.Detections) {
		a.applyMu.Unlock()
		s.stale.Add(1)
		lgr.Logger.Debug(
			"discarding stale analysis response",
			slog.String("session", s.id),
			slog.Int("detections", len(result.Detections)),
		)
		return
	}

	detection, recognized := result.FirstRecognized()
	if recognized {
		a.alert.Raise(detection.Name)
	}
	a.applyMu.Unlock()

	if !recognized {
		return
	}

	s.alerts.Add(1)
	lgr.Logger.Info(
		"suspect recognized",
		slog.String("session", s.id),
		slog.String("name", detection.Name),
		slog.Float64("similarity", detection.Similarity),
	)

	if a.alertStream == nil {
		return
	}

	// The alerter must never hold up the sampling loop
	select {
	case a.alertStream <- AlertData{
		SessionID: s.id,
		Detection: detection,
		Frame:     payload,
		Timestamp: time.Now(),
	}:
	default:
		lgr.Logger.Warn(
			"alert stream is full, dropping alert",
			slog.String("name", detection.Name),
		)
	}
}
