package camera

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/cjeanneret/espcam/internal/debug"
)

// StillSensor obtains frames by running a still-capture program that writes
// one JPEG to stdout (rpicam-still / libcamera-still compatible flags).
type StillSensor struct {
	command string
	path    string
	args    []string
}

// NewStillSensor returns a sensor backed by command.
func NewStillSensor(command string) *StillSensor {
	return &StillSensor{command: command}
}

// Open resolves the program and prepares its arguments.
func (s *StillSensor) Open(st Settings) error {
	path, err := exec.LookPath(s.command)
	if err != nil {
		return fmt.Errorf("still command %q: %w", s.command, err)
	}
	s.path = path
	s.args = []string{
		"-n",       // no preview window
		"-t", "1", // shortest timeout
		"--width", strconv.Itoa(st.Width),
		"--height", strconv.Itoa(st.Height),
		"-q", strconv.Itoa(st.JPEGQuality),
		"-e", "jpg",
		"-o", "-",
	}
	debug.Verbose("Camera: still command %s %s", path, strings.Join(s.args, " "))
	return nil
}

// Grab runs the program once and returns its stdout.
func (s *StillSensor) Grab(ctx context.Context) ([]byte, error) {
	if s.path == "" {
		return nil, fmt.Errorf("still sensor not open")
	}
	cmd := exec.CommandContext(ctx, s.path, s.args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run %s: %w (stderr: %s)", s.command, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Close forgets the resolved program.
func (s *StillSensor) Close() error {
	s.path = ""
	s.args = nil
	return nil
}
