package led

import (
	"fmt"
	"time"

	"github.com/cjeanneret/espcam/internal/debug"
	"github.com/cjeanneret/espcam/internal/hw/gpio"
)

// MaxBrightness is the top of the brightness scale accepted by SetBrightness.
const MaxBrightness = 1023

// Pattern is one blink: the LED is held on for On, then off for Off.
// Repeat is the count used by Show.
type Pattern struct {
	Name   string
	On     time.Duration
	Off    time.Duration
	Repeat int
}

// Patterns used across the application.
var (
	Startup      = Pattern{"startup", 500 * time.Millisecond, 500 * time.Millisecond, 1}
	Success      = Pattern{"success", 200 * time.Millisecond, 200 * time.Millisecond, 2}
	Failure      = Pattern{"failure", 100 * time.Millisecond, 100 * time.Millisecond, 5}
	CaptureStart = Pattern{"capture-start", 100 * time.Millisecond, 100 * time.Millisecond, 1}
	Captured     = Pattern{"captured", 500 * time.Millisecond, 500 * time.Millisecond, 1}
	CaptureError = Pattern{"capture-error", 100 * time.Millisecond, 100 * time.Millisecond, 3}
	Error        = Pattern{"error", 100 * time.Millisecond, 100 * time.Millisecond, 2}
)

// Indicator drives a single status LED. Every call blocks for the whole
// pattern; there is no background blinking.
type Indicator struct {
	gpio   gpio.Driver
	pin    int
	freqHz int
	on     bool
	pwm    bool
	sleep  func(time.Duration)
}

// New configures pin as an output and switches the LED off. A pin that
// cannot be configured is a fatal configuration error for the caller.
func New(g gpio.Driver, pin int, pwmFreqHz int) (*Indicator, error) {
	if err := g.SetupPin(pin, gpio.Output); err != nil {
		return nil, fmt.Errorf("status led pin %d: %w", pin, err)
	}
	if err := g.WritePin(pin, gpio.Low); err != nil {
		return nil, fmt.Errorf("status led pin %d: %w", pin, err)
	}
	if pwmFreqHz <= 0 {
		pwmFreqHz = 1000
	}
	return &Indicator{
		gpio:   g,
		pin:    pin,
		freqHz: pwmFreqHz,
		sleep:  time.Sleep,
	}, nil
}

// Show plays p with its own repeat count.
func (i *Indicator) Show(p Pattern) {
	i.Signal(p, p.Repeat)
}

// Signal plays p repeat times, then restores the previous on/off state.
func (i *Indicator) Signal(p Pattern, repeat int) {
	debug.Verbose("LED: %s x%d", p.Name, repeat)
	wasOn := i.on
	for n := 0; n < repeat; n++ {
		i.On()
		i.sleep(p.On)
		i.Off()
		i.sleep(p.Off)
	}
	if wasOn {
		i.On()
	}
}

// On switches the LED fully on, leaving PWM mode if needed.
func (i *Indicator) On() {
	i.write(gpio.High)
}

// Off switches the LED off, leaving PWM mode if needed.
func (i *Indicator) Off() {
	i.write(gpio.Low)
}

// Toggle inverts the on/off state.
func (i *Indicator) Toggle() {
	if i.on {
		i.Off()
	} else {
		i.On()
	}
}

// IsOn reports the last on/off state. A non-zero brightness counts as on.
func (i *Indicator) IsOn() bool {
	return i.on
}

// SetBrightness drives the LED through PWM; level is clamped to 0..MaxBrightness.
func (i *Indicator) SetBrightness(level int) {
	if level < 0 {
		level = 0
	}
	if level > MaxBrightness {
		level = MaxBrightness
	}
	if !i.pwm {
		if err := i.gpio.SetupPin(i.pin, gpio.PWM); err != nil {
			debug.Trace("LED: pwm setup on pin %d: %v", i.pin, err)
			return
		}
		i.pwm = true
	}
	if err := i.gpio.SetDuty(i.pin, i.freqHz, uint32(level), MaxBrightness); err != nil {
		debug.Trace("LED: pwm duty on pin %d: %v", i.pin, err)
		return
	}
	i.on = level > 0
}

// SelfTest exercises every output mode: on/off, a few toggles and a
// brightness ramp up and down. The LED ends off.
func (i *Indicator) SelfTest() {
	debug.Info("LED self test on pin %d", i.pin)

	i.On()
	i.sleep(time.Second)
	i.Off()
	i.sleep(time.Second)

	for n := 0; n < 5; n++ {
		i.Toggle()
		i.sleep(200 * time.Millisecond)
	}

	for level := 0; level <= MaxBrightness; level += 100 {
		i.SetBrightness(level)
		i.sleep(100 * time.Millisecond)
	}
	i.sleep(500 * time.Millisecond)
	for level := MaxBrightness; level >= 0; level -= 100 {
		i.SetBrightness(level)
		i.sleep(100 * time.Millisecond)
	}

	i.Off()
	debug.Info("LED self test complete")
}

func (i *Indicator) write(level gpio.Level) {
	if i.pwm {
		if err := i.gpio.SetupPin(i.pin, gpio.Output); err != nil {
			debug.Trace("LED: leaving pwm on pin %d: %v", i.pin, err)
		}
		i.pwm = false
	}
	if err := i.gpio.WritePin(i.pin, level); err != nil {
		debug.Trace("LED: write pin %d: %v", i.pin, err)
	}
	i.on = bool(level)
}
