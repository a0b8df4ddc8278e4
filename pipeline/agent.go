package pipeline

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/khaledhikmat/vs-live/model"
	"github.com/khaledhikmat/vs-live/service/camera"
	"github.com/khaledhikmat/vs-live/service/lgr"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/xerrors"
)

const recentDetections = 3

var validate = validator.New()

// session is one Live period of the camera.
type session struct {
	id         string
	generation uint64
	device     camera.Device
	startedAt  time.Time

	render *Task
	sample *Task
	stats  *Task

	frames       atomic.Int64
	renderErrors atomic.Int64

	requests  atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64
	skipped   atomic.Int64
	stale     atomic.Int64
	alerts    atomic.Int64
	latency   atomic.Int64 // total, nanoseconds
}

// Agent owns the camera, the render and sampling loops and everything they share.
type Agent struct {
	svcs        ServicesFactory
	rootCtx     context.Context
	errorStream chan interface{}
	statsStream chan interface{}
	alertStream chan AlertData
	tracer      trace.Tracer

	// serializes Start, Stop and processing changes
	lifecycle sync.Mutex

	mu         sync.RWMutex
	state      State
	session    *session
	generation uint64
	cameraErr  string
	suspects   []model.Suspect

	surfaceMu sync.Mutex
	surface   camera.Surface

	applyMu    sync.Mutex
	activeGen  atomic.Uint64
	detections DetectionState
	alert      *AlertState

	processing atomic.Bool
	inFlight   atomic.Bool
	lastSample atomic.Int64 // unix nanos, 0 when never sampled
	pending    sync.WaitGroup

	fps fpsMeter
}

type Option func(*Agent)

// WithTracer replaces the default no-op tracer used for analysis requests.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Agent) {
		a.tracer = tracer
	}
}

// NewAgent creates an idle agent. canxCtx bounds the agent's whole lifetime;
// any stream may be nil.
func NewAgent(canxCtx context.Context,
	svcs ServicesFactory,
	errorStream chan interface{},
	statsStream chan interface{},
	alertStream chan AlertData,
	opts ...Option) *Agent {
	a := &Agent{
		svcs:        svcs,
		rootCtx:     canxCtx,
		errorStream: errorStream,
		statsStream: statsStream,
		alertStream: alertStream,
		tracer:      noop.NewTracerProvider().Tracer("vs-live/pipeline"),
		alert:       NewAlertState(svcs.CfgSvc.GetAlertDuration()),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.detections.Reset(0)
	return a
}

// Start opens the camera and starts both loops. An active session is torn down first.
func (a *Agent) Start(ctx context.Context) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if a.currentSession() != nil {
		lgr.Logger.Info("camera already active, restarting")
		a.stopLocked()
	}

	a.mu.Lock()
	a.state = StateStarting
	a.cameraErr = ""
	a.mu.Unlock()

	cfg := a.svcs.CfgSvc
	device, err := a.svcs.CameraSvc.Open(camera.Constraints{
		Device:     cfg.GetCameraDevice(),
		Width:      cfg.GetCameraWidth(),
		Height:     cfg.GetCameraHeight(),
		FacingMode: cfg.GetCameraFacingMode(),
	})
	if err != nil {
		a.mu.Lock()
		a.state = StateIdle
		a.cameraErr = cameraErrorMessage
		a.mu.Unlock()

		a.report(model.GenError("agent_capture",
			err,
			map[string]interface{}{"device": cfg.GetCameraDevice()},
			"error opening camera"))
		return xerrors.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	a.mu.Lock()
	a.generation++
	s := &session{
		id:         uuid.NewString(),
		generation: a.generation,
		device:     device,
		startedAt:  time.Now(),
	}
	a.mu.Unlock()

	a.surfaceMu.Lock()
	a.surface = a.svcs.CameraSvc.NewSurface()
	a.surfaceMu.Unlock()

	a.applyMu.Lock()
	a.activeGen.Store(s.generation)
	a.detections.Reset(s.generation)
	a.alert.Clear()
	a.applyMu.Unlock()

	a.fps.reset()
	a.lastSample.Store(0)
	a.processing.Store(false)

	a.mu.Lock()
	a.session = s
	a.state = StateLive
	a.mu.Unlock()

	s.render = Every(a.rootCtx, "renderer", cfg.GetRenderInterval(), func(ctx context.Context, now time.Time) {
		a.render(ctx, s, now)
	})
	s.sample = Every(a.rootCtx, "sampler", cfg.GetSamplePollInterval(), func(ctx context.Context, now time.Time) {
		a.sample(ctx, s, now)
	})
	s.stats = Every(a.rootCtx, "stats", cfg.GetStatsInterval(), func(_ context.Context, _ time.Time) {
		a.publishStats(s)
	})

	lgr.Logger.Info(
		"camera live",
		slog.String("session", s.id),
		slog.String("camera", device.Name()),
		slog.Int("tracks", device.Tracks()),
	)
	return nil
}

// Stop ends the live session. It is a no-op when the camera is not live.
func (a *Agent) Stop() {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.stopLocked()
}

func (a *Agent) stopLocked() {
	a.mu.Lock()
	s := a.session
	if s == nil {
		a.mu.Unlock()
		return
	}
	a.state = StateStopping
	a.mu.Unlock()

	a.processing.Store(false)

	for _, task := range []*Task{s.render, s.sample, s.stats} {
		task.Stop()
		lgr.Logger.Debug("task stopped", slog.String("task", task.Name()), slog.String("session", s.id))
	}

	// From here on no response of this session may land
	a.applyMu.Lock()
	a.activeGen.Store(0)
	a.detections.Reset(0)
	a.alert.Clear()
	a.applyMu.Unlock()

	if err := s.device.Close(); err != nil {
		a.report(model.GenError("agent_capture",
			err,
			map[string]interface{}{"session": s.id},
			"error releasing camera"))
	}

	// Final stats carry the frame size, so publish before the surface goes
	a.publishStats(s)

	a.surfaceMu.Lock()
	if a.surface != nil {
		if err := a.surface.Close(); err != nil {
			lgr.Logger.Warn("error closing surface", slog.Any("error", err))
		}
		a.surface = nil
	}
	a.surfaceMu.Unlock()

	a.lastSample.Store(0)
	a.fps.reset()

	a.mu.Lock()
	a.session = nil
	a.state = StateIdle
	a.mu.Unlock()

	lgr.Logger.Info(
		"camera stopped",
		slog.String("session", s.id),
		slog.Int64("frames", s.frames.Load()),
		slog.Int64("requests", s.requests.Load()),
	)
}

// EnableProcessing turns the sampling loop on. Only valid while Live.
func (a *Agent) EnableProcessing() error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	return a.enableLocked()
}

func (a *Agent) enableLocked() error {
	if a.State() != StateLive {
		return ErrNotLive
	}
	a.processing.Store(true)
	lgr.Logger.Info("detection enabled")
	return nil
}

func (a *Agent) DisableProcessing() {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	if a.processing.Swap(false) {
		lgr.Logger.Info("detection disabled")
	}
}

// StartDetection needs at least one suspect. It starts the camera when it is not live
// and turns processing on.
func (a *Agent) StartDetection(ctx context.Context) error {
	a.mu.RLock()
	suspects := len(a.suspects)
	a.mu.RUnlock()

	if suspects == 0 {
		return ErrNoSuspects
	}

	if a.State() != StateLive {
		if err := a.Start(ctx); err != nil {
			return err
		}
	}

	return a.EnableProcessing()
}

// AddSuspect uploads the suspect to the analysis backend and keeps it in the local list.
func (a *Agent) AddSuspect(ctx context.Context, suspect model.Suspect) error {
	if suspect.Station == "" {
		suspect.Station = a.svcs.CfgSvc.GetStationName()
	}

	if err := validate.Struct(suspect); err != nil {
		return xerrors.Errorf("%w: %v", ErrInvalidSuspect, err)
	}

	if err := a.svcs.AnalysisSvc.UploadSuspect(ctx, suspect); err != nil {
		return xerrors.Errorf("error uploading suspect %s: %w", suspect.Name, err)
	}

	suspect.AddedAt = time.Now()
	suspect.Photo = nil

	a.mu.Lock()
	a.suspects = append(a.suspects, suspect)
	a.mu.Unlock()

	lgr.Logger.Info(
		"suspect added",
		slog.String("name", suspect.Name),
		slog.String("crime", suspect.Crime),
	)
	return nil
}

func (a *Agent) Suspects() []model.Suspect {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]model.Suspect(nil), a.suspects...)
}

func (a *Agent) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Agent) Processing() bool {
	return a.processing.Load()
}

func (a *Agent) currentSession() *session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// Snapshot reports what the live page would show right now.
func (a *Agent) Snapshot() Snapshot {
	a.mu.RLock()
	snap := Snapshot{
		State:       a.state.String(),
		CameraError: a.cameraErr,
		Suspects:    len(a.suspects),
	}
	s := a.session
	a.mu.RUnlock()

	if s != nil {
		snap.SessionID = s.id
		snap.Camera = s.device.Name()
	}

	detections := a.detections.Load()
	snap.Detections = append([]model.Detection{}, detections...)
	snap.Recent = snap.Detections[:min(len(snap.Detections), recentDetections)]
	if updated := a.detections.Updated(); !updated.IsZero() {
		snap.Updated = &updated
	}
	snap.Processing = a.processing.Load()
	snap.Alert = a.alert.Current()
	snap.FPS = a.fps.value()
	snap.Timestamp = time.Now()

	size := a.surfaceSize()
	snap.Width, snap.Height = size.X, size.Y
	return snap
}

func (a *Agent) surfaceSize() image.Point {
	a.surfaceMu.Lock()
	defer a.surfaceMu.Unlock()

	if a.surface == nil {
		return image.Point{}
	}
	return a.surface.Size()
}

// Frame returns the annotated surface as a JPEG.
func (a *Agent) Frame() ([]byte, error) {
	return a.encodeSurface()
}

// Close stops the camera and waits for outstanding analysis requests.
func (a *Agent) Close() {
	a.Stop()
	a.pending.Wait()
}

func (a *Agent) publishStats(s *session) {
	now := time.Now()
	uptime := int64(now.Sub(s.startedAt).Seconds())
	size := a.surfaceSize()

	var avgLatency float64
	if completed := s.successes.Load() + s.failures.Load(); completed > 0 {
		avgLatency = float64(time.Duration(s.latency.Load()/completed).Milliseconds())
	}

	a.publish(model.RendererStats{
		Name:      "renderer",
		SessionID: s.id,
		FPS:       a.fps.value(),
		Frames:    int(s.frames.Load()),
		Errors:    int(s.renderErrors.Load()),
		Uptime:    uptime,
		Timestamp: now.Unix(),
	})
	a.publish(model.SamplerStats{
		Name:       "sampler",
		SessionID:  s.id,
		Requests:   int(s.requests.Load()),
		Successes:  int(s.successes.Load()),
		Failures:   int(s.failures.Load()),
		Skipped:    int(s.skipped.Load()),
		Stale:      int(s.stale.Load()),
		Alerts:     int(s.alerts.Load()),
		AvgLatency: avgLatency,
		Uptime:     uptime,
		Timestamp:  now.Unix(),
	})
	a.publish(model.SessionStats{
		ID:        s.id,
		Camera:    s.device.Name(),
		Width:     size.X,
		Height:    size.Y,
		Uptime:    uptime,
		Timestamp: now.Unix(),
	})
}

func (a *Agent) publish(stats interface{}) {
	send(a.rootCtx, a.statsStream, stats)
}

func (a *Agent) report(err model.CustomError) {
	lgr.Logger.Error(err.Message, slog.String("processor", err.Processor), slog.Any("error", err.Inner))
	send(a.rootCtx, a.errorStream, err)
}
