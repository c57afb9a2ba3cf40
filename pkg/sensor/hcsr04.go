package sensor

import (
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

const (
	// DefaultEchoTimeout matches the default timeout of Arduino's pulseIn.
	DefaultEchoTimeout = time.Second

	settleDuration  = 2 * time.Microsecond
	triggerDuration = 10 * time.Microsecond
)

// Trigger is the output line that starts a measurement.
type Trigger interface {
	Out(l gpio.Level) error
}

// Echo is the input line the module raises for the duration of the
// round trip. periph's gpio.PinIO satisfies both Trigger and Echo.
type Echo interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	WaitForEdge(timeout time.Duration) bool
}

// HCSR04 drives an HC-SR04 ultrasonic ranging module.
type HCSR04 struct {
	trigger Trigger
	echo    Echo
	timeout time.Duration

	now   func() time.Time
	sleep func(time.Duration)
}

// NewHCSR04 returns a driver over the given lines. A non-positive timeout
// means DefaultEchoTimeout.
func NewHCSR04(trigger Trigger, echo Echo, timeout time.Duration) *HCSR04 {
	if timeout <= 0 {
		timeout = DefaultEchoTimeout
	}
	return &HCSR04{
		trigger: trigger,
		echo:    echo,
		timeout: timeout,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// Open initializes the periph host drivers and looks up the named pins.
// Pin names are in the format expected by gpioreg.ByName, which for a
// Raspberry Pi is the BCM number as a string.
func Open(triggerName, echoName string, timeout time.Duration) (*HCSR04, error) {
	if _, err := host.Init(); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to initialize gpio host")
	}

	trigger := gpioreg.ByName(triggerName)
	if trigger == nil {
		return nil, pkgerrors.Errorf("no gpio trigger pin named %q", triggerName)
	}
	echo := gpioreg.ByName(echoName)
	if echo == nil {
		return nil, pkgerrors.Errorf("no gpio echo pin named %q", echoName)
	}

	if err := trigger.Out(gpio.Low); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to configure trigger pin %s", triggerName)
	}
	if err := echo.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to configure echo pin %s", echoName)
	}

	logrus.WithFields(logrus.Fields{
		"trigger": trigger.Name(),
		"echo":    echo.Name(),
		"timeout": timeout,
	}).Info("ultrasonic sensor opened")

	return NewHCSR04(trigger, echo, timeout), nil
}

// Sample fires one ping and measures the echo pulse. The whole measurement,
// both edges included, is bounded by the echo timeout.
func (s *HCSR04) Sample() (RawSample, error) {
	// Arm for the rising edge before pinging so the edge cannot be missed.
	if err := s.echo.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return RawSample{}, pkgerrors.Wrap(err, "failed to arm echo pin")
	}

	if err := s.pulse(); err != nil {
		return RawSample{}, err
	}

	deadline := s.now().Add(s.timeout)

	if !s.echo.WaitForEdge(s.timeout) {
		return RawSample{}, ErrNoReading
	}
	start := s.now()

	if err := s.echo.In(gpio.PullDown, gpio.FallingEdge); err != nil {
		return RawSample{}, pkgerrors.Wrap(err, "failed to arm echo pin")
	}

	remaining := deadline.Sub(start)
	if remaining <= 0 || !s.echo.WaitForEdge(remaining) {
		return RawSample{}, ErrNoReading
	}
	end := s.now()

	us := end.Sub(start).Microseconds()
	if us <= 0 {
		return RawSample{}, ErrNoReading
	}

	return RawSample{EchoDurationMicros: uint32(us)}, nil
}

func (s *HCSR04) pulse() error {
	if err := s.trigger.Out(gpio.Low); err != nil {
		return pkgerrors.Wrap(err, "failed to clear trigger pin")
	}
	s.sleep(settleDuration)
	if err := s.trigger.Out(gpio.High); err != nil {
		return pkgerrors.Wrap(err, "failed to raise trigger pin")
	}
	s.sleep(triggerDuration)
	if err := s.trigger.Out(gpio.Low); err != nil {
		return pkgerrors.Wrap(err, "failed to lower trigger pin")
	}
	return nil
}
