package capture

import (
	"context"
	"fmt"

	"github.com/cjeanneret/espcam/internal/debug"
	"github.com/cjeanneret/espcam/internal/hw/camera"
	"github.com/cjeanneret/espcam/internal/hw/led"
)

// Saver persists one image under a name.
type Saver interface {
	Save(name string, buf []byte) error
}

// Signaler plays a status pattern.
type Signaler interface {
	Show(p led.Pattern)
}

// Service contains the capture-and-save operation shared by the
// /capture route, the startup capture and the one-shot mode.
type Service struct {
	camera camera.Camera
	store  Saver
	led    Signaler
	name   string
}

func NewService(c camera.Camera, s Saver, l Signaler, imageName string) *Service {
	return &Service{
		camera: c,
		store:  s,
		led:    l,
		name:   imageName,
	}
}

// ImageName returns the file name every capture is written to.
func (s *Service) ImageName() string {
	return s.name
}

// CaptureAndSave grabs one frame and replaces the current image with it.
// It returns the number of bytes written. Errors wrap camera.ErrCapture or
// store.ErrStorage; the status LED shows the outcome either way.
func (s *Service) CaptureAndSave(ctx context.Context) (int, error) {
	debug.Live("Capturing image as %s", s.name)
	s.led.Show(led.CaptureStart)

	buf, err := s.camera.Capture(ctx)
	if err != nil {
		s.led.Show(led.CaptureError)
		return 0, err
	}

	if err := s.store.Save(s.name, buf); err != nil {
		s.led.Show(led.CaptureError)
		return 0, fmt.Errorf("save %s: %w", s.name, err)
	}

	debug.Live("Image captured and saved as %s (%d bytes)", s.name, len(buf))
	s.led.Show(led.Captured)
	return len(buf), nil
}
