package led

import (
	"errors"
	"testing"
	"time"

	"github.com/cjeanneret/espcam/internal/hw/gpio"
)

type call struct {
	op    string
	pin   int
	mode  gpio.PinMode
	level gpio.Level
	duty  uint32
}

// recordingDriver records GPIO calls for verification.
type recordingDriver struct {
	calls    []call
	setupErr error
}

func (d *recordingDriver) SetupPin(pin int, mode gpio.PinMode) error {
	d.calls = append(d.calls, call{op: "setup", pin: pin, mode: mode})
	return d.setupErr
}

func (d *recordingDriver) WritePin(pin int, level gpio.Level) error {
	d.calls = append(d.calls, call{op: "write", pin: pin, level: level})
	return nil
}

func (d *recordingDriver) ReadPin(pin int) (gpio.Level, error) { return gpio.Low, nil }

func (d *recordingDriver) SetDuty(pin int, freqHz int, duty, cycle uint32) error {
	d.calls = append(d.calls, call{op: "duty", pin: pin, duty: duty})
	return nil
}

func (d *recordingDriver) Close() error { return nil }

func (d *recordingDriver) ops(op string) []call {
	var out []call
	for _, c := range d.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func newTestIndicator(t *testing.T) (*Indicator, *recordingDriver, *[]time.Duration) {
	t.Helper()
	drv := &recordingDriver{}
	ind, err := New(drv, 4, 1000)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var slept []time.Duration
	ind.sleep = func(d time.Duration) { slept = append(slept, d) }
	drv.calls = nil // reset after init
	return ind, drv, &slept
}

func TestNew_ConfiguresPinOff(t *testing.T) {
	drv := &recordingDriver{}
	if _, err := New(drv, 33, 0); err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(drv.calls) != 2 {
		t.Fatalf("expected setup + write, got %v", drv.calls)
	}
	if drv.calls[0].op != "setup" || drv.calls[0].mode != gpio.Output {
		t.Errorf("first call = %+v, want output setup", drv.calls[0])
	}
	if drv.calls[1].level != gpio.Low {
		t.Errorf("LED should start off, got %+v", drv.calls[1])
	}
}

func TestNew_UnavailablePin(t *testing.T) {
	drv := &recordingDriver{setupErr: errors.New("no such pin")}
	if _, err := New(drv, 99, 1000); err == nil {
		t.Error("expected error for unavailable pin")
	}
}

func TestSignal_PulsesAndTiming(t *testing.T) {
	ind, drv, slept := newTestIndicator(t)

	ind.Signal(Success, 2)

	writes := drv.ops("write")
	want := []gpio.Level{gpio.High, gpio.Low, gpio.High, gpio.Low}
	if len(writes) != len(want) {
		t.Fatalf("expected %d writes, got %v", len(want), writes)
	}
	for i, lvl := range want {
		if writes[i].level != lvl {
			t.Errorf("write %d = %v, want %v", i, writes[i].level, lvl)
		}
	}
	var total time.Duration
	for _, d := range *slept {
		total += d
	}
	if total != 800*time.Millisecond {
		t.Errorf("blocked for %v, want 800ms", total)
	}
}

func TestShow_UsesPatternRepeat(t *testing.T) {
	cases := []struct {
		p      Pattern
		pulses int
	}{
		{Startup, 1},
		{Success, 2},
		{Failure, 5},
		{CaptureError, 3},
		{Error, 2},
	}
	for _, tc := range cases {
		t.Run(tc.p.Name, func(t *testing.T) {
			ind, drv, _ := newTestIndicator(t)
			ind.Show(tc.p)
			if got := len(drv.ops("write")); got != 2*tc.pulses {
				t.Errorf("%s: %d writes, want %d", tc.p.Name, got, 2*tc.pulses)
			}
		})
	}
}

func TestSignal_RestoresOnState(t *testing.T) {
	ind, drv, _ := newTestIndicator(t)
	ind.On()
	ind.Signal(Error, 1)

	writes := drv.ops("write")
	if last := writes[len(writes)-1]; last.level != gpio.High {
		t.Errorf("LED should be back on after signal, last write %v", last.level)
	}
	if !ind.IsOn() {
		t.Error("IsOn() should be true")
	}
}

func TestSignal_ZeroRepeat(t *testing.T) {
	ind, drv, slept := newTestIndicator(t)
	ind.Signal(Failure, 0)
	if len(drv.calls) != 0 || len(*slept) != 0 {
		t.Errorf("zero repeat should do nothing, got calls=%v sleeps=%v", drv.calls, *slept)
	}
}

func TestToggle(t *testing.T) {
	ind, _, _ := newTestIndicator(t)
	ind.Toggle()
	if !ind.IsOn() {
		t.Error("first toggle should switch on")
	}
	ind.Toggle()
	if ind.IsOn() {
		t.Error("second toggle should switch off")
	}
}

func TestSetBrightness_ClampsAndUsesPWM(t *testing.T) {
	ind, drv, _ := newTestIndicator(t)

	ind.SetBrightness(-5)
	ind.SetBrightness(512)
	ind.SetBrightness(5000)

	setups := drv.ops("setup")
	if len(setups) != 1 || setups[0].mode != gpio.PWM {
		t.Errorf("expected a single PWM setup, got %v", setups)
	}
	duties := drv.ops("duty")
	want := []uint32{0, 512, MaxBrightness}
	if len(duties) != len(want) {
		t.Fatalf("expected %d duty calls, got %v", len(want), duties)
	}
	for i, d := range want {
		if duties[i].duty != d {
			t.Errorf("duty %d = %d, want %d", i, duties[i].duty, d)
		}
	}
	if !ind.IsOn() {
		t.Error("non-zero brightness counts as on")
	}
}

func TestOn_LeavesPWMMode(t *testing.T) {
	ind, drv, _ := newTestIndicator(t)
	ind.SetBrightness(300)
	drv.calls = nil

	ind.On()

	if len(drv.calls) != 2 {
		t.Fatalf("expected output setup + write, got %v", drv.calls)
	}
	if drv.calls[0].op != "setup" || drv.calls[0].mode != gpio.Output {
		t.Errorf("expected switch back to output, got %+v", drv.calls[0])
	}
	if drv.calls[1].level != gpio.High {
		t.Errorf("expected HIGH write, got %+v", drv.calls[1])
	}
}

func TestSelfTest_EndsOff(t *testing.T) {
	ind, drv, _ := newTestIndicator(t)
	ind.SelfTest()

	if ind.IsOn() {
		t.Error("LED should be off after self test")
	}
	if len(drv.ops("duty")) == 0 {
		t.Error("self test should exercise PWM brightness")
	}
	writes := drv.ops("write")
	if last := writes[len(writes)-1]; last.level != gpio.Low {
		t.Errorf("last write = %v, want Low", last.level)
	}
}
