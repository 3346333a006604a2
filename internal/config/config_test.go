package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ---------- ValidateConfigPath ----------

func TestValidateConfigPath_Valid(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "default.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateConfigPath(path); err != nil {
		t.Errorf("expected valid path, got error: %v", err)
	}
}

func TestValidateConfigPath_Rejected(t *testing.T) {
	cases := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"traversal", "../../etc/passwd"},
		{"traversal_inside", "configs/../../../etc/shadow"},
		{"json", "configs/default.json"},
		{"yml", "configs/default.yml"},
		{"no_extension", "configs/default"},
		{"other_dir", "other/default.yaml"},
		{"bare_file", "default.yaml"},
		{"absolute_outside", "/tmp/default.yaml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateConfigPath(tc.path); err == nil {
				t.Errorf("expected error for %q, got nil", tc.path)
			}
		})
	}
}

// ---------- Load ----------

// writeConfig creates a temporary configs/ dir with the given YAML content and returns the path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "test.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// clearEnv makes sure no ESPCAM_* variable leaks into a test, and removes
// whatever a .env file set once the test ends.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvListen, EnvImageDir, EnvDebugLevel, EnvMockGPIO} {
		prev, had := os.LookupEnv(k)
		os.Unsetenv(k)
		k := k
		t.Cleanup(func() {
			if had {
				os.Setenv(k, prev)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

const validYAML = `
server:
  listen_addr: ":8080"
  image_dir: "/var/lib/espcam"
  image_name: "webcam.jpg"
  read_buffer_bytes: 1024
  chunk_bytes: 512
camera:
  backend: "synthetic"
  frame_size: "QVGA"
  quality: 20
  xclk_freq_hz: 10000000
  fb_count: 1
  fb_location: "dram"
  pins:
    pwdn: 32
    reset: -1
    xclk: 0
    sda: 26
    scl: 27
led:
  pin: 33
  pwm_freq_hz: 5000
access_point:
  ssid: "ESP32_first"
  password: "micropython"
defaults:
  debug_level: 2
  mock_gpio: true
`

func TestLoad_ValidFullConfig(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Server.ChunkBytes != 512 {
		t.Errorf("chunk_bytes = %d, want 512", cfg.Server.ChunkBytes)
	}
	if cfg.Camera.Backend != "synthetic" {
		t.Errorf("camera.backend = %q, want synthetic", cfg.Camera.Backend)
	}
	if cfg.Camera.FrameSize != "QVGA" {
		t.Errorf("camera.frame_size = %q, want QVGA", cfg.Camera.FrameSize)
	}
	if cfg.Camera.Pins == nil || cfg.Camera.Pins.Pwdn != 32 || cfg.Camera.Pins.Reset != -1 {
		t.Errorf("camera.pins not loaded: %+v", cfg.Camera.Pins)
	}
	if cfg.LED.Pin != 33 {
		t.Errorf("led.pin = %d, want 33", cfg.LED.Pin)
	}
	if cfg.PWMFrequency() != 5000 {
		t.Errorf("PWMFrequency() = %d, want 5000", cfg.PWMFrequency())
	}
	if cfg.AccessPoint.SSID != "ESP32_first" {
		t.Errorf("access_point.ssid = %q", cfg.AccessPoint.SSID)
	}
	if !cfg.Defaults.MockGPIO || cfg.Defaults.DebugLevel != 2 {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":80" {
		t.Errorf("listen_addr default = %q, want :80", cfg.Server.ListenAddr)
	}
	if cfg.Server.ImageName != "webcam.jpg" {
		t.Errorf("image_name default = %q, want webcam.jpg", cfg.Server.ImageName)
	}
	if cfg.Server.ReadBufferBytes != 1024 || cfg.Server.ChunkBytes != 1024 {
		t.Errorf("buffer defaults = %d/%d, want 1024/1024", cfg.Server.ReadBufferBytes, cfg.Server.ChunkBytes)
	}
	if cfg.Camera.Backend != "still" || cfg.Camera.Command != "rpicam-still" {
		t.Errorf("camera backend defaults = %q/%q", cfg.Camera.Backend, cfg.Camera.Command)
	}
	if cfg.Camera.FrameSize != "VGA" || cfg.Camera.Quality != 12 {
		t.Errorf("sensor defaults = %s/q%d, want VGA/q12", cfg.Camera.FrameSize, cfg.Camera.Quality)
	}
	if cfg.Camera.XclkFreqHz != 20000000 || cfg.Camera.FBCount != 2 || cfg.Camera.FBLocation != "psram" {
		t.Errorf("clock/buffer defaults = %d/%d/%s", cfg.Camera.XclkFreqHz, cfg.Camera.FBCount, cfg.Camera.FBLocation)
	}
	if cfg.Camera.Pins == nil || *cfg.Camera.Pins != DefaultCameraPins() {
		t.Errorf("pins default = %+v, want AI-Thinker table", cfg.Camera.Pins)
	}
	if cfg.LED.Pin != 4 || cfg.LED.PWMFreqHz != 1000 {
		t.Errorf("led defaults = %+v, want pin 4 @ 1000Hz", cfg.LED)
	}
	if cfg.AccessPoint.SSID != "ESP32-CAM" {
		t.Errorf("ssid default = %q", cfg.AccessPoint.SSID)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"debug_level_high", "defaults:\n  debug_level: 5\n"},
		{"debug_level_negative", "defaults:\n  debug_level: -1\n"},
		{"led_pin_negative", "led:\n  pin: -3\n"},
		{"image_name_path", "server:\n  image_name: \"../x.jpg\"\n"},
		{"image_name_not_jpg", "server:\n  image_name: \"webcam.png\"\n"},
		{"unknown_backend", "camera:\n  backend: \"ov2640_i2c\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			path := writeConfig(t, tc.yaml)
			if _, err := Load(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoad_FileTooLarge(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, strings.Repeat("#", MaxConfigFileBytes+1))
	if _, err := Load(path); err == nil {
		t.Error("expected error for oversized config file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "{{{{invalid yaml!!!!")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestLoad_UnknownFields(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "unknown_section:\n  foo: bar\n")
	if _, err := Load(path); err != nil {
		t.Errorf("unknown fields should be ignored, got error: %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "configs", "nonexistent.yaml")
	if _, err := Load(path); err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
}

// ---------- Environment overlay ----------

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, validYAML)
	os.Setenv(EnvListen, ":9090")
	os.Setenv(EnvImageDir, "/tmp/captures")
	os.Setenv(EnvDebugLevel, "4")
	os.Setenv(EnvMockGPIO, "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr = %q, want :9090", cfg.Server.ListenAddr)
	}
	if cfg.Server.ImageDir != "/tmp/captures" {
		t.Errorf("image_dir = %q, want /tmp/captures", cfg.Server.ImageDir)
	}
	if cfg.Defaults.DebugLevel != 4 {
		t.Errorf("debug_level = %d, want 4", cfg.Defaults.DebugLevel)
	}
	if cfg.Defaults.MockGPIO {
		t.Error("mock_gpio should be overridden to false")
	}
}

func TestLoad_EnvInvalid(t *testing.T) {
	cases := []struct {
		key, value string
	}{
		{EnvDebugLevel, "verbose"},
		{EnvMockGPIO, "maybe"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			clearEnv(t)
			path := writeConfig(t, "")
			os.Setenv(tc.key, tc.value)
			if _, err := Load(path); err == nil {
				t.Errorf("expected error for %s=%q, got nil", tc.key, tc.value)
			}
		})
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "")
	envFile := filepath.Join(filepath.Dir(path), ".env")
	content := EnvListen + "=:8181\n" + EnvMockGPIO + "=true\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":8181" {
		t.Errorf("listen_addr = %q, want :8181 from .env", cfg.Server.ListenAddr)
	}
	if !cfg.Defaults.MockGPIO {
		t.Error("mock_gpio should be true from .env")
	}
}

func TestLoad_ProcessEnvWinsOverDotEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "")
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := os.WriteFile(envFile, []byte(EnvListen+"=:8181\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	os.Setenv(EnvListen, ":7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":7070" {
		t.Errorf("listen_addr = %q, want :7070 (process env wins)", cfg.Server.ListenAddr)
	}
}
