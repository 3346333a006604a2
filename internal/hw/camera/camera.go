package camera

import (
	"context"
	"errors"
)

var (
	// ErrInit reports that the sensor could not be configured.
	ErrInit = errors.New("camera init failed")
	// ErrCapture reports a failed or impossible frame capture.
	ErrCapture = errors.New("camera capture failed")
)

// Camera is the high-level interface used by the rest of the application.
// It represents an abstract "camera", regardless of how frames are
// obtained (sensor bus, external still program, generated test pattern).
type Camera interface {
	// Capture blocks until one JPEG-encoded frame is available.
	Capture(ctx context.Context) ([]byte, error)
}

// Sensor is the frame source driven by a Controller.
type Sensor interface {
	Open(s Settings) error
	Grab(ctx context.Context) ([]byte, error)
	Close() error
}

// FrameSize is a named sensor geometry.
type FrameSize struct {
	Name   string
	Width  int
	Height int
}

// FrameSizes lists the supported geometries, smallest first.
var FrameSizes = []FrameSize{
	{"QQVGA", 160, 120},
	{"QVGA", 320, 240},
	{"CIF", 400, 296},
	{"VGA", 640, 480},
	{"SVGA", 800, 600},
	{"XGA", 1024, 768},
	{"SXGA", 1280, 1024},
	{"UXGA", 1600, 1200},
}

// LookupFrameSize finds a geometry by name.
func LookupFrameSize(name string) (FrameSize, bool) {
	for _, fs := range FrameSizes {
		if fs.Name == name {
			return fs, true
		}
	}
	return FrameSize{}, false
}

// JPEGQuality maps a sensor quality (10-63, lower is better) onto the
// 1-100 scale used by JPEG encoders (higher is better).
func JPEGQuality(sensorQuality int) int {
	if sensorQuality < 10 {
		sensorQuality = 10
	}
	if sensorQuality > 63 {
		sensorQuality = 63
	}
	return 100 - (sensorQuality-10)*90/53
}
