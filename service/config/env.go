package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/xerrors"
)

// NewEnv reads settings from the environment on top of the defaults and validates them.
func NewEnv() (IService, error) {
	return newFromLookup(os.LookupEnv)
}

func newFromLookup(lookup func(string) (string, bool)) (IService, error) {
	s := Defaults()
	r := envReader{lookup: lookup}

	s.ModeMaxShutdownTime = r.duration("MODE_MAX_SHUTDOWN_TIME", s.ModeMaxShutdownTime)
	s.StatsInterval = r.duration("STATS_INTERVAL", s.StatsInterval)
	s.DataFolder = r.str("DATA_FOLDER", s.DataFolder)
	s.SnapshotsFolder = r.str("SNAPSHOTS_FOLDER", s.SnapshotsFolder)
	s.SnapshotsBucket = r.str("SNAPSHOTS_BUCKET", s.SnapshotsBucket)
	s.AWSRegion = r.str("AWS_REGION", s.AWSRegion)
	s.LogLevel = r.str("LOG_LEVEL", s.LogLevel)
	s.LogFile = r.str("LOG_FILE", s.LogFile)
	s.DetectionsLogFile = r.str("DETECTIONS_LOG_FILE", s.DetectionsLogFile)

	s.AnalysisBaseURL = r.str("ANALYSIS_BASE_URL", s.AnalysisBaseURL)
	s.AnalysisTimeout = r.duration("ANALYSIS_TIMEOUT", s.AnalysisTimeout)
	s.StationName = r.str("STATION_NAME", s.StationName)
	s.WebhookURL = r.str("WEBHOOK_URL", s.WebhookURL)

	s.CameraType = r.str("CAMERA_TYPE", s.CameraType)
	s.CameraDevice = r.integer("CAMERA_DEVICE", s.CameraDevice)
	s.CameraWidth = r.integer("CAMERA_WIDTH", s.CameraWidth)
	s.CameraHeight = r.integer("CAMERA_HEIGHT", s.CameraHeight)
	s.CameraFacingMode = r.str("CAMERA_FACING_MODE", s.CameraFacingMode)

	s.RenderInterval = r.duration("RENDER_INTERVAL", s.RenderInterval)
	s.SampleInterval = r.duration("SAMPLE_INTERVAL", s.SampleInterval)
	s.SamplePollInterval = r.duration("SAMPLE_POLL_INTERVAL", s.SamplePollInterval)
	s.JpegQuality = r.integer("JPEG_QUALITY", s.JpegQuality)
	s.AlertDuration = r.duration("ALERT_DURATION", s.AlertDuration)
	s.AlertCooldown = r.duration("ALERT_COOLDOWN", s.AlertCooldown)

	s.ListenAddress = r.str("LISTEN_ADDRESS", s.ListenAddress)
	s.StateFeedInterval = r.duration("STATE_FEED_INTERVAL", s.StateFeedInterval)
	s.ControlRateLimit = r.integer("CONTROL_RATE_LIMIT", s.ControlRateLimit)
	s.ControlBurst = r.integer("CONTROL_BURST", s.ControlBurst)

	if r.err != nil {
		return nil, r.err
	}

	if err := Validate(s); err != nil {
		return nil, err
	}

	return &hardcodedService{settings: s}, nil
}

var validate = validator.New()

func Validate(s Settings) error {
	if err := validate.Struct(s); err != nil {
		return xerrors.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// envReader keeps the first parse error so every key can be read in one pass.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *envReader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (r *envReader) integer(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return n
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return d
}

func (r *envReader) fail(key string, err error) {
	if r.err == nil {
		r.err = xerrors.Errorf("parsing %s: %w", key, err)
	}
}
