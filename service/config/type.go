package config

import "time"

const (
	CameraTypeOpenCV = "opencv"
	CameraTypeRandom = "random"
)

type IService interface {
	GetModeMaxShutdownTime() time.Duration
	GetStatsInterval() time.Duration
	GetDataFolder() string
	GetSnapshotsFolder() string
	GetSnapshotsBucket() string
	GetAWSRegion() string
	GetLogLevel() string
	GetLogFile() string
	GetDetectionsLogFile() string

	GetAnalysisBaseURL() string
	GetAnalysisTimeout() time.Duration
	GetStationName() string
	GetWebhookURL() string

	GetCameraType() string
	GetCameraDevice() int
	GetCameraWidth() int
	GetCameraHeight() int
	GetCameraFacingMode() string

	GetRenderInterval() time.Duration
	GetSampleInterval() time.Duration
	GetSamplePollInterval() time.Duration
	GetJpegQuality() int
	GetAlertDuration() time.Duration
	GetAlertCooldown() time.Duration

	GetListenAddress() string
	GetStateFeedInterval() time.Duration
	GetControlRateLimit() int
	GetControlBurst() int
}

// Settings is the flat, validated form every implementation serves from.
type Settings struct {
	ModeMaxShutdownTime time.Duration `validate:"gt=0"`
	StatsInterval       time.Duration `validate:"gt=0"`
	DataFolder          string        `validate:"required"`
	SnapshotsFolder     string        `validate:"required"`
	SnapshotsBucket     string
	AWSRegion           string `validate:"required_with=SnapshotsBucket"`
	LogLevel            string `validate:"oneof=debug info warn error"`
	LogFile             string
	DetectionsLogFile   string `validate:"required"`

	AnalysisBaseURL string        `validate:"required,url"`
	AnalysisTimeout time.Duration `validate:"gt=0"`
	StationName     string        `validate:"required"`
	WebhookURL      string        `validate:"omitempty,url"`

	CameraType       string `validate:"oneof=opencv random"`
	CameraDevice     int    `validate:"gte=0"`
	CameraWidth      int    `validate:"gt=0"`
	CameraHeight     int    `validate:"gt=0"`
	CameraFacingMode string `validate:"oneof=user environment"`

	RenderInterval     time.Duration `validate:"gt=0"`
	SampleInterval     time.Duration `validate:"gt=0"`
	SamplePollInterval time.Duration `validate:"gt=0,ltefield=SampleInterval"`
	JpegQuality        int           `validate:"gte=1,lte=100"`
	AlertDuration      time.Duration `validate:"gt=0"`
	AlertCooldown      time.Duration `validate:"gte=0"`

	ListenAddress     string        `validate:"required"`
	StateFeedInterval time.Duration `validate:"gt=0"`
	ControlRateLimit  int           `validate:"gte=0"` // requests per second per client, 0 disables
	ControlBurst      int           `validate:"gte=1"`
}
