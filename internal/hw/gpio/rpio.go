package gpio

import (
	"fmt"

	"github.com/cjeanneret/espcam/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// RPiDriver is the real implementation using go-rpio.
// It requires access to /dev/gpiomem (plain I/O) or /dev/mem (PWM).
type RPiDriver struct {
	pins map[int]rpio.Pin
	pwm  map[int]bool
}

// NewRPiRealDriver memory-maps the GPIO registers.
func NewRPiRealDriver() (*RPiDriver, error) {
	debug.Info("Initializing real GPIO driver (go-rpio)")

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (is this a supported board?)", err)
	}

	debug.Verbose("GPIO memory mapped successfully")

	return &RPiDriver{
		pins: make(map[int]rpio.Pin),
		pwm:  make(map[int]bool),
	}, nil
}

func (r *RPiDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)

	if pin < 0 {
		return fmt.Errorf("invalid pin number: %d", pin)
	}
	p := rpio.Pin(pin)
	r.pins[pin] = p
	delete(r.pwm, pin)

	switch mode {
	case Input:
		p.Input()
	case Output:
		p.Output()
	case PWM:
		p.Mode(rpio.Pwm)
		r.pwm[pin] = true
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}

	return nil
}

func (r *RPiDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)

	p, ok := r.pins[pin]
	if !ok || r.pwm[pin] {
		// Not set up yet, or still in PWM mode: switch to plain output
		if err := r.SetupPin(pin, Output); err != nil {
			return err
		}
		p = r.pins[pin]
	}

	if level == High {
		p.High()
	} else {
		p.Low()
	}

	return nil
}

func (r *RPiDriver) ReadPin(pin int) (Level, error) {
	debug.GPIO("ReadPin", pin, nil)

	p, ok := r.pins[pin]
	if !ok {
		if err := r.SetupPin(pin, Input); err != nil {
			return Low, err
		}
		p = r.pins[pin]
	}

	if p.Read() == rpio.High {
		return High, nil
	}
	return Low, nil
}

// SetDuty programs the PWM clock so one period of cycle ticks lasts 1/freqHz.
func (r *RPiDriver) SetDuty(pin int, freqHz int, duty, cycle uint32) error {
	debug.GPIO("SetDuty", pin, debug.Fmt("%d/%d@%dHz", duty, cycle, freqHz))

	if cycle == 0 || freqHz <= 0 {
		return fmt.Errorf("invalid pwm parameters: freq=%d cycle=%d", freqHz, cycle)
	}
	if !r.pwm[pin] {
		if err := r.SetupPin(pin, PWM); err != nil {
			return err
		}
	}
	p := r.pins[pin]
	p.Freq(freqHz * int(cycle))
	p.DutyCycle(duty, cycle)
	return nil
}

func (r *RPiDriver) Close() error {
	debug.Trace("GPIO Close (real driver)")

	// Reset all pins to input (safe state)
	for pin, p := range r.pins {
		debug.Verbose("Resetting pin %d to input", pin)
		p.Input()
	}

	return rpio.Close()
}
