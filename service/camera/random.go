package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math/rand"
	"sync"
	"sync/atomic"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Random produces synthetic frames. It stands in for a webcam in tests and on machines without one.
type Random struct {
	mu       sync.Mutex
	openErr  error
	devices  []*randomDevice
	surfaces []*ImageSurface
}

func NewRandom() *Random {
	return &Random{}
}

// FailOpen makes the next Open calls fail with err, as a denied permission would. nil restores.
func (svc *Random) FailOpen(err error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.openErr = err
}

func (svc *Random) Open(c Constraints) (Device, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.openErr != nil {
		return nil, svc.openErr
	}

	w, h := c.Width, c.Height
	if w <= 0 || h <= 0 {
		w, h = 640, 480
	}

	d := &randomDevice{
		name:   fmt.Sprintf("random-%d-%s", c.Device, c.FacingMode),
		size:   image.Pt(w, h),
		tracks: 1,
	}
	svc.devices = append(svc.devices, d)
	return d, nil
}

func (svc *Random) NewSurface() Surface {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	s := NewImageSurface()
	svc.surfaces = append(svc.surfaces, s)
	return s
}

// ActiveTracks sums the live tracks of every device opened so far.
func (svc *Random) ActiveTracks() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	total := 0
	for _, d := range svc.devices {
		total += d.Tracks()
	}
	return total
}

// Releases counts how many times device tracks were actually stopped.
func (svc *Random) Releases() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	total := 0
	for _, d := range svc.devices {
		total += int(d.releases.Load())
	}
	return total
}

// Surfaces returns every surface handed out, oldest first.
func (svc *Random) Surfaces() []*ImageSurface {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]*ImageSurface(nil), svc.surfaces...)
}

func (svc *Random) Opened() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return len(svc.devices)
}

type randomDevice struct {
	name     string
	size     image.Point
	mu       sync.Mutex
	tracks   int
	releases atomic.Int32
}

func (d *randomDevice) Name() string {
	return d.name
}

func (d *randomDevice) Read() (Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tracks == 0 {
		return nil, ErrDeviceClosed
	}

	img := image.NewRGBA(image.Rectangle{Max: d.size})
	fill := color.RGBA{uint8(rand.Intn(256)), uint8(rand.Intn(256)), uint8(rand.Intn(256)), 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: fill}, image.Point{}, draw.Src)
	return &imageFrame{img: img}, nil
}

func (d *randomDevice) Tracks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tracks
}

func (d *randomDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tracks == 0 {
		return nil
	}
	d.tracks = 0
	d.releases.Add(1)
	return nil
}

type imageFrame struct {
	img *image.RGBA
}

func NewImageFrame(img *image.RGBA) Frame {
	return &imageFrame{img: img}
}

func (f *imageFrame) Size() image.Point {
	return f.img.Bounds().Size()
}

func (f *imageFrame) Close() error {
	return nil
}

// ImageSurface is a Surface over an in-memory RGBA image. Labels are filled boxes; the text is kept in Labels.
type ImageSurface struct {
	img    *image.RGBA
	closed bool
	Boxes  []image.Rectangle
	Labels []string
	Paints int
}

func NewImageSurface() *ImageSurface {
	return &ImageSurface{img: image.NewRGBA(image.Rectangle{})}
}

func (s *ImageSurface) Size() image.Point {
	return s.img.Bounds().Size()
}

func (s *ImageSurface) Resize(size image.Point) {
	s.img = image.NewRGBA(image.Rectangle{Max: size})
}

func (s *ImageSurface) Paint(f Frame) error {
	if s.closed {
		return ErrSurfaceClosed
	}

	src, ok := f.(*imageFrame)
	if !ok {
		return ErrForeignFrame
	}

	draw.Draw(s.img, s.img.Bounds(), src.img, image.Point{}, draw.Src)
	s.Boxes = s.Boxes[:0]
	s.Labels = s.Labels[:0]
	s.Paints++
	return nil
}

func (s *ImageSurface) DrawBox(r image.Rectangle, c color.RGBA, thickness int) {
	r = r.Intersect(s.img.Bounds())
	if r.Empty() {
		return
	}
	s.Boxes = append(s.Boxes, r)

	u := &image.Uniform{C: c}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(s.img, e.Intersect(r), u, image.Point{}, draw.Over)
	}
}

var labelText = image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 255})

// DrawLabel fills a box above at and writes text in it.
func (s *ImageSurface) DrawLabel(text string, at image.Point, bg color.RGBA) {
	s.Labels = append(s.Labels, text)

	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	box := image.Rect(at.X, at.Y-face.Height-8, at.X+width+10, at.Y).Intersect(s.img.Bounds())
	if box.Empty() {
		return
	}
	draw.Draw(s.img, box, &image.Uniform{C: bg}, image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  s.img,
		Src:  labelText,
		Face: face,
		Dot:  fixed.P(at.X+5, at.Y-5),
	}
	d.DrawString(text)
}

func (s *ImageSurface) EncodeJPEG(quality int) ([]byte, error) {
	if s.closed {
		return nil, ErrSurfaceClosed
	}
	if s.img.Bounds().Empty() {
		return nil, ErrEmptySurface
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, s.img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *ImageSurface) Close() error {
	s.closed = true
	return nil
}
