package feedback

import "time"

// Tones.  The success beep matches the 1 kHz / 300 ms buzzer test pattern of
// the reference hardware.
var (
	ToneKeyAck    = PlayTone{Hz: 1000, Duration: 40 * time.Millisecond}
	ToneKeyReject = PlayTone{Hz: 400, Duration: 150 * time.Millisecond}
	ToneSuccess   = PlayTone{Hz: 1000, Duration: 300 * time.Millisecond}
	ToneFailure   = PlayTone{Hz: 250, Duration: 600 * time.Millisecond}
)

// Timings are the fixed durations of the blocking sequences.
type Timings struct {
	GateDwell   time.Duration // gate held open after a grant
	FailureHold time.Duration // denial screen hold
	MessageHold time.Duration // transient message hold
}

func DefaultTimings() Timings {
	return Timings{
		GateDwell:   3 * time.Second,
		FailureHold: 1500 * time.Millisecond,
		MessageHold: 2 * time.Second,
	}
}

// Idle puts every output in its resting state.
func Idle() []Command {
	return []Command{
		SetGate{Position: GateClosed},
		SetIndicator{Indicator: IndicatorNone},
		ShowScreen{Screen: EnterCode("")},
	}
}

// Success opens the gate for the dwell time, closes it and returns to the
// code prompt.
func (t Timings) Success() []Command {
	return []Command{
		SetIndicator{Indicator: IndicatorSuccess},
		ShowScreen{Screen: AccessGranted()},
		ToneSuccess,
		SetGate{Position: GateOpen},
		Hold{Duration: t.GateDwell},
		SetGate{Position: GateClosed},
		SetIndicator{Indicator: IndicatorNone},
		ShowScreen{Screen: EnterCode("")},
	}
}

// Failure shows screen with the failure indicator and tone, then returns to
// the code prompt.
func (t Timings) Failure(screen Screen) []Command {
	return []Command{
		SetIndicator{Indicator: IndicatorFailure},
		ShowScreen{Screen: screen},
		ToneFailure,
		Hold{Duration: t.FailureHold},
		SetIndicator{Indicator: IndicatorNone},
		ShowScreen{Screen: EnterCode("")},
	}
}

// Message shows a transient two-line message, then next.
func (t Timings) Message(line1, line2 string, next Screen) []Command {
	return []Command{
		ShowScreen{Screen: TransientMessage(line1, line2, t.MessageHold)},
		ShowScreen{Screen: next},
	}
}
