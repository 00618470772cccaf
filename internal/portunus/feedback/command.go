package feedback

import (
	"fmt"
	"time"
)

type Indicator int

const (
	IndicatorNone Indicator = iota
	IndicatorSuccess
	IndicatorFailure
)

func (i Indicator) String() string {
	switch i {
	case IndicatorSuccess:
		return "success"
	case IndicatorFailure:
		return "failure"
	default:
		return "none"
	}
}

type GatePosition int

const (
	GateClosed GatePosition = iota
	GateOpen
)

func (p GatePosition) String() string {
	if p == GateOpen {
		return "open"
	}
	return "closed"
}

// Command is one step of a feedback sequence.  Commands run in order and
// none of them returns anything to the state machine.
type Command interface {
	fmt.Stringer
	command()
}

// ShowScreen replaces both display lines.  A TransientMessage screen holds
// the sequence for its duration.
type ShowScreen struct{ Screen Screen }

// SetIndicator switches the status LEDs.
type SetIndicator struct{ Indicator Indicator }

// PlayTone sounds the buzzer and blocks for Duration.
type PlayTone struct {
	Hz       int
	Duration time.Duration
}

// SetGate drives the gate actuator.
type SetGate struct{ Position GatePosition }

// Hold blocks the sequence without touching any output.
type Hold struct{ Duration time.Duration }

func (ShowScreen) command()   {}
func (SetIndicator) command() {}
func (PlayTone) command()     {}
func (SetGate) command()      {}
func (Hold) command()         {}

func (c ShowScreen) String() string {
	l1, l2 := c.Screen.Lines()
	return fmt.Sprintf("show %s [%s|%s]", c.Screen.Kind, l1, l2)
}

func (c SetIndicator) String() string { return "indicator " + c.Indicator.String() }

func (c PlayTone) String() string { return fmt.Sprintf("tone %dHz %s", c.Hz, c.Duration) }

func (c SetGate) String() string { return "gate " + c.Position.String() }

func (c Hold) String() string { return "hold " + c.Duration.String() }
