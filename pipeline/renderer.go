package pipeline

import (
	"context"
	"errors"
	"image/color"
	"log/slog"
	"time"

	"github.com/khaledhikmat/vs-live/model"
	"github.com/khaledhikmat/vs-live/service/camera"
	"github.com/khaledhikmat/vs-live/service/lgr"
)

var (
	recognizedBox     = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	recognizedLabel   = color.RGBA{R: 0, G: 255, B: 0, A: 178}
	unrecognizedBox   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	unrecognizedLabel = color.RGBA{R: 255, G: 0, B: 0, A: 178}
)

const boxThickness = 2

// render paints one frame of the session onto the surface. It never touches the network.
func (a *Agent) render(_ context.Context, s *session, now time.Time) {
	frame, err := s.device.Read()
	if err != nil {
		if !errors.Is(err, camera.ErrNoFrame) {
			s.renderErrors.Add(1)
			lgr.Logger.Debug(
				"renderer could not read frame",
				slog.String("session", s.id),
				slog.Any("error", err),
			)
		}
		return
	}
	defer frame.Close()

	// One read per paint: every box drawn comes from the same response
	detections := a.detections.Load()

	a.surfaceMu.Lock()
	surface := a.surface
	if surface == nil {
		a.surfaceMu.Unlock()
		return
	}

	if size := frame.Size(); surface.Size() != size {
		surface.Resize(size)
		lgr.Logger.Debug(
			"renderer resized surface",
			slog.String("session", s.id),
			slog.Int("width", size.X),
			slog.Int("height", size.Y),
		)
	}

	err = surface.Paint(frame)
	if err == nil {
		paintDetections(surface, detections)
	}
	a.surfaceMu.Unlock()

	if err != nil {
		s.renderErrors.Add(1)
		lgr.Logger.Debug(
			"renderer could not paint frame",
			slog.String("session", s.id),
			slog.Any("error", err),
		)
		return
	}

	s.frames.Add(1)
	a.fps.tick(now)
}

// paintDetections skips boxes that are not usable rectangles.
func paintDetections(surface camera.Surface, detections []model.Detection) {
	for _, d := range detections {
		r, ok := d.Rect()
		if !ok {
			continue
		}

		box, label := unrecognizedBox, unrecognizedLabel
		if d.Recognized {
			box, label = recognizedBox, recognizedLabel
		}

		surface.DrawBox(r, box, boxThickness)
		surface.DrawLabel(d.Label(), r.Min, label)
	}
}
