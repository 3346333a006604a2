package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes caps the size of a config file accepted by Load.
const MaxConfigFileBytes = 64 << 10

// Environment variables applied on top of the YAML file.
const (
	EnvListen     = "ESPCAM_LISTEN"
	EnvImageDir   = "ESPCAM_IMAGE_DIR"
	EnvDebugLevel = "ESPCAM_DEBUG_LEVEL"
	EnvMockGPIO   = "ESPCAM_MOCK_GPIO"
)

// ServerConfig controls the request server and the image store.
type ServerConfig struct {
	ListenAddr      string `yaml:"listen_addr"`       // e.g. ":80"
	ImageDir        string `yaml:"image_dir"`         // directory holding captures
	ImageName       string `yaml:"image_name"`        // the single "current" capture
	ReadBufferBytes int    `yaml:"read_buffer_bytes"` // one read per request, larger requests are truncated
	ChunkBytes      int    `yaml:"chunk_bytes"`       // per-write size when sending the image
}

// CameraPins is the sensor wiring table. -1 means not connected.
type CameraPins struct {
	Pwdn  int `yaml:"pwdn"`
	Reset int `yaml:"reset"`
	Xclk  int `yaml:"xclk"`
	SDA   int `yaml:"sda"`
	SCL   int `yaml:"scl"`
	D7    int `yaml:"d7"`
	D6    int `yaml:"d6"`
	D5    int `yaml:"d5"`
	D4    int `yaml:"d4"`
	D3    int `yaml:"d3"`
	D2    int `yaml:"d2"`
	D1    int `yaml:"d1"`
	D0    int `yaml:"d0"`
	Vsync int `yaml:"vsync"`
	Href  int `yaml:"href"`
	Pclk  int `yaml:"pclk"`
}

// DefaultCameraPins returns the AI-Thinker ESP32-CAM wiring.
func DefaultCameraPins() CameraPins {
	return CameraPins{
		Pwdn: 32, Reset: -1, Xclk: 0, SDA: 26, SCL: 27,
		D7: 35, D6: 34, D5: 39, D4: 36, D3: 21, D2: 19, D1: 18, D0: 5,
		Vsync: 25, Href: 23, Pclk: 22,
	}
}

// CameraConfig describes the sensor and how frames are obtained.
// Backend selects a concrete implementation ("still" or "synthetic").
type CameraConfig struct {
	Backend    string      `yaml:"backend"`      // "still" runs Command, "synthetic" generates a test pattern
	Command    string      `yaml:"command"`      // still-capture program writing JPEG to stdout
	FrameSize  string      `yaml:"frame_size"`   // QQVGA, QVGA, CIF, VGA, SVGA, XGA, SXGA, UXGA
	Quality    int         `yaml:"quality"`      // 10-63, lower means higher quality
	XclkFreqHz int         `yaml:"xclk_freq_hz"` // sensor clock
	FBCount    int         `yaml:"fb_count"`     // frame buffers
	FBLocation string      `yaml:"fb_location"`  // "psram" or "dram"
	Pins       *CameraPins `yaml:"pins,omitempty"`
}

// LEDConfig describes the status LED.
type LEDConfig struct {
	Pin       int `yaml:"pin"`         // GPIO pin, 0 = default (4)
	PWMFreqHz int `yaml:"pwm_freq_hz"` // brightness PWM frequency
}

// AccessPointConfig is informational: the radio is brought up by firmware,
// the values are only printed in the startup banner.
type AccessPointConfig struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real board)
}

// Config aggregates all application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Camera      CameraConfig      `yaml:"camera"`
	LED         LEDConfig         `yaml:"led"`
	AccessPoint AccessPointConfig `yaml:"access_point"`
	Defaults    DefaultsConfig    `yaml:"defaults"`
}

// ValidateConfigPath accepts only .yaml files located directly in a
// "configs" directory, without ".." segments.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return fmt.Errorf("config path %q must not contain '..'", path)
		}
	}
	if filepath.Ext(path) != ".yaml" {
		return fmt.Errorf("config path %q must have .yaml extension", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file, overlays environment variables (optionally
// seeded from a .env file next to it) and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := readLimited(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", MaxConfigFileBytes)
	}
	return data, nil
}

// loadDotEnv seeds the process environment from a .env file. Variables
// already set win; a missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvListen); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv(EnvImageDir); v != "" {
		c.Server.ImageDir = v
	}
	if v := os.Getenv(EnvDebugLevel); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDebugLevel, err)
		}
		c.Defaults.DebugLevel = n
	}
	if v := os.Getenv(EnvMockGPIO); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMockGPIO, err)
		}
		c.Defaults.MockGPIO = b
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":80"
	}
	if c.Server.ImageDir == "" {
		c.Server.ImageDir = "images"
	}
	if c.Server.ImageName == "" {
		c.Server.ImageName = "webcam.jpg"
	}
	if c.Server.ReadBufferBytes <= 0 {
		c.Server.ReadBufferBytes = 1024
	}
	if c.Server.ChunkBytes <= 0 {
		c.Server.ChunkBytes = 1024
	}

	if c.Camera.Backend == "" {
		c.Camera.Backend = "still"
	}
	if c.Camera.Command == "" {
		c.Camera.Command = "rpicam-still"
	}
	if c.Camera.FrameSize == "" {
		c.Camera.FrameSize = "VGA"
	}
	if c.Camera.Quality == 0 {
		c.Camera.Quality = 12
	}
	if c.Camera.XclkFreqHz <= 0 {
		c.Camera.XclkFreqHz = 20000000 // 20 MHz
	}
	if c.Camera.FBCount <= 0 {
		c.Camera.FBCount = 2
	}
	if c.Camera.FBLocation == "" {
		c.Camera.FBLocation = "psram"
	}
	if c.Camera.Pins == nil {
		pins := DefaultCameraPins()
		c.Camera.Pins = &pins
	}

	if c.LED.Pin == 0 {
		c.LED.Pin = 4 // flash LED
	}
	if c.LED.PWMFreqHz <= 0 {
		c.LED.PWMFreqHz = 1000
	}

	if c.AccessPoint.SSID == "" {
		c.AccessPoint.SSID = "ESP32-CAM"
	}
}

// Validate checks values that cannot be defaulted. Sensor parameters are
// checked by the camera controller at initialization, since a bad sensor
// table must not stop the server.
func (c *Config) Validate() error {
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	if c.LED.Pin < 0 {
		return fmt.Errorf("led.pin must be >= 0, got %d", c.LED.Pin)
	}
	if strings.ContainsAny(c.Server.ImageName, `/\`) || c.Server.ImageName == ".." {
		return fmt.Errorf("server.image_name must be a plain file name, got %q", c.Server.ImageName)
	}
	if !strings.HasSuffix(c.Server.ImageName, ".jpg") {
		return fmt.Errorf("server.image_name must end in .jpg, got %q", c.Server.ImageName)
	}
	switch c.Camera.Backend {
	case "still", "synthetic":
	default:
		return fmt.Errorf("unsupported camera backend: %s", c.Camera.Backend)
	}
	return nil
}

// PWMFrequency returns the LED PWM frequency in Hz.
func (c *Config) PWMFrequency() int {
	return c.LED.PWMFreqHz
}
