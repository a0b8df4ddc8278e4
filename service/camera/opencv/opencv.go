// Package opencv implements the camera contracts on top of gocv.
package opencv

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-live/service/camera"
	"github.com/khaledhikmat/vs-live/service/lgr"
)

const (
	labelFont  = gocv.FontHersheySimplex
	labelScale = 0.6
	labelThick = 2
)

type opencvService struct {
}

func New() camera.IService {
	return &opencvService{}
}

func (svc *opencvService) Open(c camera.Constraints) (camera.Device, error) {
	webcam, err := gocv.OpenVideoCapture(c.Device)
	if err != nil {
		return nil, xerrors.Errorf("opening camera %d: %w", c.Device, err)
	}

	if !webcam.IsOpened() {
		webcam.Close()
		return nil, xerrors.Errorf("camera %d is not available", c.Device)
	}

	// Preferred size only; the driver may pick another resolution
	webcam.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))

	lgr.Logger.Info(
		"camera opened",
		slog.Int("device", c.Device),
		slog.String("facingMode", c.FacingMode),
		slog.Float64("width", webcam.Get(gocv.VideoCaptureFrameWidth)),
		slog.Float64("height", webcam.Get(gocv.VideoCaptureFrameHeight)),
		slog.String("openCV", gocv.Version()),
	)

	return &device{
		name:   fmt.Sprintf("webcam-%d", c.Device),
		webcam: webcam,
	}, nil
}

func (svc *opencvService) NewSurface() camera.Surface {
	return &surface{canvas: gocv.NewMat()}
}

type device struct {
	name   string
	mu     sync.Mutex
	webcam *gocv.VideoCapture
}

func (d *device) Name() string {
	return d.name
}

func (d *device) Read() (camera.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.webcam == nil {
		return nil, camera.ErrDeviceClosed
	}

	img := gocv.NewMat()
	if ok := d.webcam.Read(&img); !ok || img.Empty() {
		img.Close() // Crucial to close the image to avoid memory leaks
		return nil, camera.ErrNoFrame
	}

	return &frame{mat: img}, nil
}

func (d *device) Tracks() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.webcam == nil {
		return 0
	}
	return 1
}

func (d *device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.webcam == nil {
		return nil
	}

	err := d.webcam.Close()
	d.webcam = nil
	return err
}

type frame struct {
	mat gocv.Mat
}

func (f *frame) Size() image.Point {
	return image.Pt(f.mat.Cols(), f.mat.Rows())
}

func (f *frame) Close() error {
	return f.mat.Close()
}

type surface struct {
	canvas gocv.Mat
	closed bool
}

func (s *surface) Size() image.Point {
	return image.Pt(s.canvas.Cols(), s.canvas.Rows())
}

func (s *surface) Resize(size image.Point) {
	s.canvas.Close()
	s.canvas = gocv.NewMatWithSize(size.Y, size.X, gocv.MatTypeCV8UC3)
}

func (s *surface) Paint(f camera.Frame) error {
	if s.closed {
		return camera.ErrSurfaceClosed
	}

	src, ok := f.(*frame)
	if !ok {
		return camera.ErrForeignFrame
	}

	src.mat.CopyTo(&s.canvas)
	return nil
}

func (s *surface) DrawBox(r image.Rectangle, c color.RGBA, thickness int) {
	gocv.Rectangle(&s.canvas, r, c, thickness)
}

func (s *surface) DrawLabel(text string, at image.Point, bg color.RGBA) {
	size := gocv.GetTextSize(text, labelFont, labelScale, labelThick)
	gocv.Rectangle(&s.canvas, image.Rect(at.X, at.Y-25, at.X+size.X+10, at.Y), bg, -1)
	gocv.PutText(&s.canvas, text, image.Pt(at.X+5, at.Y-5), labelFont, labelScale, color.RGBA{255, 255, 255, 0}, labelThick)
}

func (s *surface) EncodeJPEG(quality int) ([]byte, error) {
	if s.closed {
		return nil, camera.ErrSurfaceClosed
	}
	if s.canvas.Empty() {
		return nil, camera.ErrEmptySurface
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, s.canvas, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, xerrors.Errorf("encoding surface: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close
	return append([]byte(nil), buf.GetBytes()...), nil
}

func (s *surface) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.canvas.Close()
}
