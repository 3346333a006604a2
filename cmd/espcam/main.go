package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cjeanneret/espcam/internal/config"
	"github.com/cjeanneret/espcam/internal/debug"
	"github.com/cjeanneret/espcam/internal/hw/camera"
	"github.com/cjeanneret/espcam/internal/hw/gpio"
	"github.com/cjeanneret/espcam/internal/hw/led"
	"github.com/cjeanneret/espcam/internal/hw/netif"
	"github.com/cjeanneret/espcam/internal/logic/capture"
	"github.com/cjeanneret/espcam/internal/store"
	"github.com/cjeanneret/espcam/internal/web"
)

func main() {
	// CLI flags
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	listen := flag.String("listen", "", "override server listen address, e.g. :8080")
	once := flag.Bool("once", false, "capture one image, list stored images and exit")
	selfTest := flag.Bool("selftest", false, "run the status LED self test and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if err := applyListenOverride(cfg, *listen); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	if err := run(ctx, cfg, *once, *selfTest, os.Stdout); err != nil {
		log.Fatalf("espcam: %v", err)
	}
}

// run wires the hardware, then runs the selected mode until it ends or ctx
// is cancelled. The camera and GPIO are released on every return path.
func run(ctx context.Context, cfg *config.Config, once, selfTest bool, out io.Writer) error {
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		return fmt.Errorf("init GPIO: %w", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	debug.Step(2, "Initializing status LED")
	indicator, err := led.New(gpioDriver, cfg.LED.Pin, cfg.PWMFrequency())
	if err != nil {
		return fmt.Errorf("init status LED: %w", err)
	}
	debug.PrintStruct("LED config", cfg.LED)

	if selfTest {
		debug.Section("LED self test")
		indicator.SelfTest()
		return nil
	}

	debug.Step(3, "Opening image store")
	images, err := store.New(cfg.Server.ImageDir)
	if err != nil {
		return fmt.Errorf("open image store: %w", err)
	}
	debug.Value("Image dir", images.Root())

	debug.Step(4, "Initializing camera")
	sensor, err := newSensor(cfg.Camera)
	if err != nil {
		return err
	}
	debug.Value("Camera backend", cfg.Camera.Backend)
	cam := camera.NewController(gpioDriver, sensor)
	defer cam.Release()

	indicator.Show(led.Startup)
	if err := cam.Initialize(cameraConfig(cfg.Camera)); err != nil {
		// Non-fatal: the server still starts and /capture reports the failure.
		debug.Error(err)
		indicator.Show(led.Failure)
	} else {
		indicator.Show(led.Success)
	}

	svc := capture.NewService(cam, images, indicator, cfg.Server.ImageName)

	if once {
		return runOnce(ctx, svc, images, out)
	}

	debug.Step(5, "Initial capture")
	if _, err := svc.CaptureAndSave(ctx); err != nil {
		debug.Info("Initial capture failed: %v", err)
	}

	ip, err := netif.IPv4()
	if err != nil {
		debug.Info("Network address unknown: %v", err)
	}
	writeBanner(out, netif.URL(ip, cfg.Server.ListenAddr), cfg.AccessPoint)

	srv := web.NewServer(web.Options{
		Addr:            cfg.Server.ListenAddr,
		ImageName:       cfg.Server.ImageName,
		ReadBufferBytes: cfg.Server.ReadBufferBytes,
		ChunkBytes:      cfg.Server.ChunkBytes,
	}, svc, images, indicator)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("web server: %w", err)
	}
	debug.Info("Server stopped by user")
	return nil
}

// imageLister is the part of the store runOnce needs.
type imageLister interface {
	List(ext string) ([]store.ImageFile, error)
}

// runOnce captures one image, then prints the stored images.
func runOnce(ctx context.Context, svc *capture.Service, images imageLister, out io.Writer) error {
	debug.Section("Single capture")
	size, err := svc.CaptureAndSave(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Image saved as %s (%d bytes)\n", svc.ImageName(), size)

	files, err := images.List(".jpg")
	if err != nil {
		return fmt.Errorf("list images: %w", err)
	}
	fmt.Fprintln(out, "Images:")
	for _, f := range files {
		fmt.Fprintf(out, "  - %s (%d bytes)\n", f.Name, f.Size)
	}
	return nil
}

// writeBanner prints how to reach the server.
func writeBanner(w io.Writer, url string, ap config.AccessPointConfig) {
	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, "  ESP32-CAM Web Server")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Open %s in your browser\n", url)
	if ap.SSID != "" {
		fmt.Fprintf(w, "WiFi network: %s", ap.SSID)
		if ap.Password != "" {
			fmt.Fprintf(w, " (password: %s)", ap.Password)
		}
		fmt.Fprintln(w)
	}
}

// applyListenOverride replaces the listen address when addr is set.
func applyListenOverride(cfg *config.Config, addr string) error {
	if addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("listen address %q: %w", addr, err)
	}
	cfg.Server.ListenAddr = addr
	return nil
}

// newSensor selects a sensor implementation based on configuration.
func newSensor(cfg config.CameraConfig) (camera.Sensor, error) {
	switch cfg.Backend {
	case "still":
		return camera.NewStillSensor(cfg.Command), nil
	case "synthetic":
		return camera.NewSyntheticSensor(), nil
	default:
		return nil, fmt.Errorf("unsupported camera backend: %s", cfg.Backend)
	}
}

// cameraConfig maps the YAML camera section onto the controller's table.
func cameraConfig(cfg config.CameraConfig) camera.Config {
	pwdn := -1
	if cfg.Pins != nil {
		pwdn = cfg.Pins.Pwdn
	}
	return camera.Config{
		FrameSize:  cfg.FrameSize,
		Quality:    cfg.Quality,
		XclkFreqHz: cfg.XclkFreqHz,
		FBCount:    cfg.FBCount,
		FBLocation: cfg.FBLocation,
		PwdnPin:    pwdn,
	}
}
