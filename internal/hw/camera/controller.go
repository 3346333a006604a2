package camera

import (
	"context"
	"fmt"

	"github.com/cjeanneret/espcam/internal/debug"
	"github.com/cjeanneret/espcam/internal/hw/gpio"
)

// Config is the fixed sensor table applied once by Initialize.
type Config struct {
	FrameSize  string // one of FrameSizes
	Quality    int    // 10-63, lower means higher quality
	XclkFreqHz int
	FBCount    int
	FBLocation string // "psram" or "dram"
	PwdnPin    int    // power-down pin, active HIGH; -1 = not wired
}

// Settings is the validated form of Config handed to a Sensor.
type Settings struct {
	Width       int
	Height      int
	JPEGQuality int // 1-100
	XclkFreqHz  int
	FBCount     int
	PSRAM       bool
}

// Controller owns the sensor: it validates the configuration, powers the
// sensor up and down, and turns every failure into ErrInit or ErrCapture.
// Only one Controller may drive a given sensor.
type Controller struct {
	gpio        gpio.Driver
	sensor      Sensor
	pwdnPin     int
	settings    Settings
	initialized bool
}

// NewController creates an uninitialized controller for sensor.
func NewController(g gpio.Driver, s Sensor) *Controller {
	return &Controller{
		gpio:    g,
		sensor:  s,
		pwdnPin: -1,
	}
}

// Initialize configures the sensor from cfg. Calling it again re-applies
// the configuration after releasing the sensor.
func (c *Controller) Initialize(cfg Config) error {
	if c.initialized {
		c.Release()
	}

	settings, err := resolve(cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInit, err)
	}
	debug.PrintStruct("Camera settings", settings)

	if cfg.PwdnPin >= 0 {
		debug.Verbose("Camera: powering up sensor (pwdn pin %d -> LOW)", cfg.PwdnPin)
		if err := c.gpio.SetupPin(cfg.PwdnPin, gpio.Output); err != nil {
			return fmt.Errorf("%w: power-down pin %d: %w", ErrInit, cfg.PwdnPin, err)
		}
		if err := c.gpio.WritePin(cfg.PwdnPin, gpio.Low); err != nil {
			return fmt.Errorf("%w: power-down pin %d: %w", ErrInit, cfg.PwdnPin, err)
		}
	}

	if err := c.sensor.Open(settings); err != nil {
		c.powerDown(cfg.PwdnPin)
		return fmt.Errorf("%w: %w", ErrInit, err)
	}

	c.pwdnPin = cfg.PwdnPin
	c.settings = settings
	c.initialized = true
	debug.Info("Camera initialized (%dx%d, jpeg quality %d)", settings.Width, settings.Height, settings.JPEGQuality)
	return nil
}

// Capture returns one JPEG frame.
func (c *Controller) Capture(ctx context.Context) ([]byte, error) {
	if !c.initialized {
		return nil, fmt.Errorf("%w: camera not initialized", ErrCapture)
	}
	buf, err := c.sensor.Grab(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCapture, err)
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrCapture)
	}
	debug.Verbose("Camera: captured %d bytes", len(buf))
	return buf, nil
}

// Release shuts the sensor down. Safe to call any number of times;
// failures are logged only.
func (c *Controller) Release() {
	if !c.initialized {
		return
	}
	c.initialized = false
	if err := c.sensor.Close(); err != nil {
		debug.Info("Camera: release failed: %v", err)
	}
	c.powerDown(c.pwdnPin)
	debug.Info("Camera released")
}

// Initialized reports whether Capture can succeed.
func (c *Controller) Initialized() bool {
	return c.initialized
}

// Settings returns the settings applied by the last successful Initialize.
func (c *Controller) Settings() Settings {
	return c.settings
}

func (c *Controller) powerDown(pin int) {
	if pin < 0 {
		return
	}
	if err := c.gpio.WritePin(pin, gpio.High); err != nil {
		debug.Info("Camera: power-down pin %d: %v", pin, err)
	}
}

func resolve(cfg Config) (Settings, error) {
	size, ok := LookupFrameSize(cfg.FrameSize)
	if !ok {
		return Settings{}, fmt.Errorf("unknown frame size %q", cfg.FrameSize)
	}
	if cfg.Quality < 10 || cfg.Quality > 63 {
		return Settings{}, fmt.Errorf("quality must be between 10 and 63, got %d", cfg.Quality)
	}
	if cfg.XclkFreqHz <= 0 {
		return Settings{}, fmt.Errorf("xclk frequency must be > 0, got %d", cfg.XclkFreqHz)
	}
	if cfg.FBCount < 1 {
		return Settings{}, fmt.Errorf("frame buffer count must be >= 1, got %d", cfg.FBCount)
	}
	var psram bool
	switch cfg.FBLocation {
	case "psram":
		psram = true
	case "dram":
	default:
		return Settings{}, fmt.Errorf("unknown frame buffer location %q", cfg.FBLocation)
	}
	return Settings{
		Width:       size.Width,
		Height:      size.Height,
		JPEGQuality: JPEGQuality(cfg.Quality),
		XclkFreqHz:  cfg.XclkFreqHz,
		FBCount:     cfg.FBCount,
		PSRAM:       psram,
	}, nil
}
