package model

import (
	"fmt"
	"image"
	"runtime/debug"
	"time"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

// Detection is one face region reported by the analysis endpoint.
type Detection struct {
	BBox       []int   `json:"bbox"` // [x1, y1, x2, y2]
	Name       string  `json:"name"`
	Location   string  `json:"location"`
	Similarity float64 `json:"similarity"`
	Recognized bool    `json:"recognized"`
	ImagePath  string  `json:"image_path,omitempty"`
}

// Rect returns the bounding box. ok is false when the box is not a usable rectangle.
func (d Detection) Rect() (image.Rectangle, bool) {
	if len(d.BBox) != 4 {
		return image.Rectangle{}, false
	}

	r := image.Rect(d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3])
	if r.Empty() {
		return image.Rectangle{}, false
	}

	return r, true
}

// Label is the text painted above the bounding box.
func (d Detection) Label() string {
	return fmt.Sprintf("%s (%.2f)", d.Name, d.Similarity)
}

type AnalysisResult struct {
	Status     string      `json:"status"`
	Message    string      `json:"message,omitempty"`
	Detections []Detection `json:"detections"`
}

func (r AnalysisResult) Succeeded() bool {
	return r.Status == "success"
}

// FirstRecognized returns the first recognized detection, if any.
func (r AnalysisResult) FirstRecognized() (Detection, bool) {
	for _, d := range r.Detections {
		if d.Recognized {
			return d, true
		}
	}
	return Detection{}, false
}

type Suspect struct {
	Name      string    `json:"name" validate:"required"`
	Crime     string    `json:"crime" validate:"required"`
	Station   string    `json:"station" validate:"required"`
	PhotoName string    `json:"photoName" validate:"required"`
	Photo     []byte    `json:"-" validate:"required"`
	AddedAt   time.Time `json:"addedAt"`
}

type Record struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Thana string `json:"thana"`
	Img   string `json:"img"`
}

type Alert struct {
	SessionID   string    `json:"sessionId"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Similarity  float64   `json:"similarity"`
	ImagePath   string    `json:"imagePath,omitempty"`
	SnapshotURL string    `json:"snapshotUrl,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type RendererStats struct {
	Name      string `json:"name"`
	SessionID string `json:"sessionId"`
	FPS       int    `json:"fps"`
	Frames    int    `json:"frames"`
	Errors    int    `json:"errors"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}

type SamplerStats struct {
	Name       string  `json:"name"`
	SessionID  string  `json:"sessionId"`
	Requests   int     `json:"requests"`
	Successes  int     `json:"successes"`
	Failures   int     `json:"failures"`
	Skipped    int     `json:"skipped"`
	Stale      int     `json:"stale"`
	Alerts     int     `json:"alerts"`
	AvgLatency float64 `json:"avgLatency"`
	Uptime     int64   `json:"uptime"`
	Timestamp  int64   `json:"timestamp"`
}

type SessionStats struct {
	ID        string `json:"id"`
	Camera    string `json:"camera"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}

type AlerterStats struct {
	Name      string `json:"name"`
	Alerts    int    `json:"alerts"`
	Errors    int    `json:"errors"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}
