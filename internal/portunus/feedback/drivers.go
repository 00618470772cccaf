package feedback

// Driver contracts for the kiosk's outputs.  Errors are logged by the
// Executor and never change the access flow.

type Display interface {
	Show(line1, line2 string) error
}

type IndicatorLight interface {
	SetIndicator(Indicator) error
}

// Buzzer starts and stops a square-wave tone; the Executor owns timing.
type Buzzer interface {
	StartTone(hz int) error
	StopTone() error
}

type Gate interface {
	SetGate(GatePosition) error
}

type Drivers struct {
	Display   Display
	Indicator IndicatorLight
	Buzzer    Buzzer
	Gate      Gate
}
