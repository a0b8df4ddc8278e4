package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/khaledhikmat/vs-live/model"
	"github.com/khaledhikmat/vs-live/service/analysis"
	"github.com/khaledhikmat/vs-live/service/camera"
	"github.com/khaledhikmat/vs-live/service/config"
	"github.com/khaledhikmat/vs-live/service/data"
	"github.com/khaledhikmat/vs-live/service/storage"
	"github.com/khaledhikmat/vs-live/service/webhook"
)

var (
	ErrCameraUnavailable = errors.New("camera unavailable")
	ErrNotLive           = errors.New("camera is not live")
	ErrNoSuspects        = errors.New("add at least one suspect before starting detection")
	ErrInvalidSuspect    = errors.New("invalid suspect")
)

// Shown to the user when the camera cannot be acquired.
const cameraErrorMessage = "Failed to access webcam. Please make sure your camera is connected and permissions are granted."

type ServicesFactory struct {
	CfgSvc      config.IService
	DataSvc     data.IService
	CameraSvc   camera.IService
	AnalysisSvc analysis.IService
	StorageSvc  storage.IService
	WebhookSvc  webhook.IService
}

type State int32

const (
	StateIdle State = iota
	StateStarting
	StateLive
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateLive:
		return "live"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

type AlertData struct {
	SessionID string
	Detection model.Detection
	Frame     []byte // the JPEG that was sampled
	Timestamp time.Time
}

// Snapshot is what a viewer of the live page sees.
type Snapshot struct {
	SessionID   string            `json:"sessionId,omitempty"`
	State       string            `json:"state"`
	Processing  bool              `json:"processing"`
	Camera      string            `json:"camera,omitempty"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	FPS         int               `json:"fps"`
	Detections  []model.Detection `json:"detections"`
	Recent      []model.Detection `json:"recent"`
	// When the last analysis response was applied; nil before the first one
	Updated     *time.Time        `json:"updated,omitempty"`
	Alert       string            `json:"alert,omitempty"`
	CameraError string            `json:"cameraError,omitempty"`
	Suspects    int               `json:"suspects"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Signature of alerter function
type Alerter func(canx context.Context, svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) chan AlertData
