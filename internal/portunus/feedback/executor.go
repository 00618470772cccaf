package feedback

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Sink accepts feedback sequences.  Execute returns once the whole
// sequence, including every timed step, has completed.
type Sink interface {
	Execute(cmds ...Command)
}

// Sleeper blocks for d.  Tests substitute one that only records.
type Sleeper func(d time.Duration)

// Executor runs commands against hardware drivers.  Timed steps (tones,
// transient messages, holds) block the caller; nothing is cancelled once
// a sequence has started.
type Executor struct {
	drivers Drivers
	sleep   Sleeper
	logger  logrus.FieldLogger
}

func NewExecutor(d Drivers, sleep Sleeper, logger logrus.FieldLogger) *Executor {
	if sleep == nil {
		sleep = time.Sleep
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Executor{drivers: d, sleep: sleep, logger: logger}
}

func (e *Executor) Execute(cmds ...Command) {
	for _, c := range cmds {
		e.run(c)
	}
}

func (e *Executor) run(c Command) {
	switch c := c.(type) {
	case ShowScreen:
		if e.drivers.Display != nil {
			l1, l2 := c.Screen.Lines()
			e.check(c, e.drivers.Display.Show(l1, l2))
		}
		if c.Screen.Kind == ScreenTransientMessage && c.Screen.Duration > 0 {
			e.sleep(c.Screen.Duration)
		}

	case SetIndicator:
		if e.drivers.Indicator != nil {
			e.check(c, e.drivers.Indicator.SetIndicator(c.Indicator))
		}

	case PlayTone:
		if e.drivers.Buzzer == nil {
			e.sleep(c.Duration)
			return
		}
		e.check(c, e.drivers.Buzzer.StartTone(c.Hz))
		e.sleep(c.Duration)
		e.check(c, e.drivers.Buzzer.StopTone())

	case SetGate:
		if e.drivers.Gate != nil {
			e.check(c, e.drivers.Gate.SetGate(c.Position))
		}

	case Hold:
		e.sleep(c.Duration)
	}
}

func (e *Executor) check(c Command, err error) {
	if err != nil {
		e.logger.WithError(err).WithField("command", c.String()).Warn("feedback driver error")
	}
}
