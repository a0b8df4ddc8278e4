package config

import (
	"strings"
	"testing"
	"time"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestEnvDefaults(t *testing.T) {
	svc, err := newFromLookup(lookupFrom(nil))
	if err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}

	if svc.GetSampleInterval() != 500*time.Millisecond {
		t.Errorf("sample interval = %v", svc.GetSampleInterval())
	}
	if svc.GetAlertDuration() != 3*time.Second {
		t.Errorf("alert duration = %v", svc.GetAlertDuration())
	}
	if svc.GetCameraWidth() != 1280 || svc.GetCameraHeight() != 720 {
		t.Errorf("camera size = %dx%d", svc.GetCameraWidth(), svc.GetCameraHeight())
	}
	if svc.GetJpegQuality() != 60 {
		t.Errorf("jpeg quality = %d", svc.GetJpegQuality())
	}
}

func TestEnvOverrides(t *testing.T) {
	svc, err := newFromLookup(lookupFrom(map[string]string{
		"ANALYSIS_BASE_URL": "http://analysis:9000",
		"SAMPLE_INTERVAL":   "750ms",
		"CAMERA_TYPE":       "random",
		"CAMERA_DEVICE":     "2",
	}))
	if err != nil {
		t.Fatalf("overrides rejected: %v", err)
	}

	if svc.GetAnalysisBaseURL() != "http://analysis:9000" {
		t.Errorf("base url = %s", svc.GetAnalysisBaseURL())
	}
	if svc.GetSampleInterval() != 750*time.Millisecond {
		t.Errorf("sample interval = %v", svc.GetSampleInterval())
	}
	if svc.GetCameraType() != CameraTypeRandom || svc.GetCameraDevice() != 2 {
		t.Errorf("camera = %s/%d", svc.GetCameraType(), svc.GetCameraDevice())
	}
}

func TestEnvRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unparsable duration", map[string]string{"SAMPLE_INTERVAL": "soon"}, "SAMPLE_INTERVAL"},
		{"unparsable int", map[string]string{"CAMERA_WIDTH": "wide"}, "CAMERA_WIDTH"},
		{"bad url", map[string]string{"ANALYSIS_BASE_URL": "not a url"}, "AnalysisBaseURL"},
		{"quality out of range", map[string]string{"JPEG_QUALITY": "0"}, "JpegQuality"},
		{"poll slower than interval", map[string]string{"SAMPLE_POLL_INTERVAL": "2s"}, "SamplePollInterval"},
		{"bucket without region", map[string]string{"SNAPSHOTS_BUCKET": "alerts"}, "AWSRegion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newFromLookup(lookupFrom(tt.env))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
