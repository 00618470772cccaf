package feedback

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// LogDrivers returns drivers that report every output change as a log line.
// They stand in for the LCD, LEDs, buzzer and servo on a bench machine.
func LogDrivers(logger logrus.FieldLogger) Drivers {
	l := logDriver{logger: logger.WithField("component", "feedback")}
	return Drivers{Display: l, Indicator: l, Buzzer: l, Gate: l}
}

type logDriver struct {
	logger logrus.FieldLogger
}

// Show masks the entry line under a code prompt so codes never reach the log.
func (d logDriver) Show(line1, line2 string) error {
	if strings.HasSuffix(line1, ":") {
		line2 = strings.Repeat("*", len(line2))
	}
	d.logger.WithFields(logrus.Fields{"line1": line1, "line2": line2}).Info("display")
	return nil
}

func (d logDriver) SetIndicator(i Indicator) error {
	d.logger.WithField("indicator", i.String()).Info("indicator")
	return nil
}

func (d logDriver) StartTone(hz int) error {
	d.logger.WithField("hz", hz).Debug("tone on")
	return nil
}

func (d logDriver) StopTone() error {
	d.logger.Debug("tone off")
	return nil
}

func (d logDriver) SetGate(p GatePosition) error {
	d.logger.WithField("position", p.String()).Info("gate")
	return nil
}
