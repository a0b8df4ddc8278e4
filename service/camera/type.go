package camera

import (
	"errors"
	"image"
	"image/color"
)

var (
	ErrDeviceClosed  = errors.New("camera device closed")
	ErrNoFrame       = errors.New("no frame available")
	ErrForeignFrame  = errors.New("frame does not belong to this surface implementation")
	ErrSurfaceClosed = errors.New("surface closed")
	ErrEmptySurface  = errors.New("surface has no content")
)

// Constraints mirror a getUserMedia request: preferred size and facing mode.
type Constraints struct {
	Device     int
	Width      int
	Height     int
	FacingMode string
}

// Frame is one captured image. The caller closes it.
type Frame interface {
	Size() image.Point
	Close() error
}

// Device is an open camera. Close releases every track and is safe to call more than once.
type Device interface {
	Name() string
	Read() (Frame, error)
	Tracks() int
	Close() error
}

// Surface is the drawing target the render loop paints and the sampler encodes.
// Implementations are not safe for concurrent use.
type Surface interface {
	Size() image.Point
	Resize(size image.Point)
	Paint(f Frame) error
	DrawBox(r image.Rectangle, c color.RGBA, thickness int)
	DrawLabel(text string, at image.Point, bg color.RGBA)
	EncodeJPEG(quality int) ([]byte, error)
	Close() error
}

type IService interface {
	Open(c Constraints) (Device, error)
	NewSurface() Surface
}
