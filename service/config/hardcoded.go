package config

import (
	"time"
)

type hardcodedService struct {
	settings Settings
}

// NewHardCoded serves the defaults. The synthetic camera is used so it runs without a webcam.
func NewHardCoded() IService {
	s := Defaults()
	s.CameraType = CameraTypeRandom
	return &hardcodedService{settings: s}
}

// NewWith serves the given settings as they are. Tests use it to shrink intervals.
func NewWith(s Settings) IService {
	return &hardcodedService{settings: s}
}

func Defaults() Settings {
	return Settings{
		ModeMaxShutdownTime: 5 * time.Second,
		StatsInterval:       30 * time.Second,
		DataFolder:          "./data",
		SnapshotsFolder:     "./snapshots",
		LogLevel:            "info",
		DetectionsLogFile:   "detections.log",

		AnalysisBaseURL: "http://localhost:8000",
		AnalysisTimeout: 10 * time.Second,
		StationName:     "Kharghar Police Station",

		CameraType:       CameraTypeOpenCV,
		CameraDevice:     0,
		CameraWidth:      1280,
		CameraHeight:     720,
		CameraFacingMode: "user",

		RenderInterval:     33 * time.Millisecond,
		SampleInterval:     500 * time.Millisecond,
		SamplePollInterval: 100 * time.Millisecond,
		JpegQuality:        60,
		AlertDuration:      3 * time.Second,
		AlertCooldown:      5 * time.Second,

		ListenAddress:     ":8080",
		StateFeedInterval: 250 * time.Millisecond,
		ControlRateLimit:  20,
		ControlBurst:      40,
	}
}

func (svc *hardcodedService) GetModeMaxShutdownTime() time.Duration {
	return svc.settings.ModeMaxShutdownTime
}

func (svc *hardcodedService) GetStatsInterval() time.Duration {
	return svc.settings.StatsInterval
}

func (svc *hardcodedService) GetDataFolder() string {
	return svc.settings.DataFolder
}

func (svc *hardcodedService) GetSnapshotsFolder() string {
	return svc.settings.SnapshotsFolder
}

func (svc *hardcodedService) GetSnapshotsBucket() string {
	return svc.settings.SnapshotsBucket
}

func (svc *hardcodedService) GetAWSRegion() string {
	return svc.settings.AWSRegion
}

func (svc *hardcodedService) GetLogLevel() string {
	return svc.settings.LogLevel
}

func (svc *hardcodedService) GetLogFile() string {
	return svc.settings.LogFile
}

func (svc *hardcodedService) GetDetectionsLogFile() string {
	return svc.settings.DetectionsLogFile
}

func (svc *hardcodedService) GetAnalysisBaseURL() string {
	return svc.settings.AnalysisBaseURL
}

func (svc *hardcodedService) GetAnalysisTimeout() time.Duration {
	return svc.settings.AnalysisTimeout
}

func (svc *hardcodedService) GetStationName() string {
	return svc.settings.StationName
}

func (svc *hardcodedService) GetWebhookURL() string {
	return svc.settings.WebhookURL
}

func (svc *hardcodedService) GetCameraType() string {
	return svc.settings.CameraType
}

func (svc *hardcodedService) GetCameraDevice() int {
	return svc.settings.CameraDevice
}

func (svc *hardcodedService) GetCameraWidth() int {
	return svc.settings.CameraWidth
}

func (svc *hardcodedService) GetCameraHeight() int {
	return svc.settings.CameraHeight
}

func (svc *hardcodedService) GetCameraFacingMode() string {
	return svc.settings.CameraFacingMode
}

func (svc *hardcodedService) GetRenderInterval() time.Duration {
	return svc.settings.RenderInterval
}

func (svc *hardcodedService) GetSampleInterval() time.Duration {
	return svc.settings.SampleInterval
}

// The sampler re-checks more often than it fires so a slow response does not shift the cadence by a whole interval.
func (svc *hardcodedService) GetSamplePollInterval() time.Duration {
	return svc.settings.SamplePollInterval
}

func (svc *hardcodedService) GetJpegQuality() int {
	return svc.settings.JpegQuality
}

func (svc *hardcodedService) GetAlertDuration() time.Duration {
	return svc.settings.AlertDuration
}

func (svc *hardcodedService) GetAlertCooldown() time.Duration {
	return svc.settings.AlertCooldown
}

func (svc *hardcodedService) GetListenAddress() string {
	return svc.settings.ListenAddress
}

func (svc *hardcodedService) GetStateFeedInterval() time.Duration {
	return svc.settings.StateFeedInterval
}

func (svc *hardcodedService) GetControlRateLimit() int {
	return svc.settings.ControlRateLimit
}

func (svc *hardcodedService) GetControlBurst() int {
	return svc.settings.ControlBurst
}
