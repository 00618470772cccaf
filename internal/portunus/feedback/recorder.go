package feedback

import "sync"

// Recorder is a Sink that only remembers what it was asked to do.  It is
// used by tests and by headless runs that report the last screen.
type Recorder struct {
	mu   sync.Mutex
	cmds []Command
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Execute(cmds ...Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmds...)
}

// Commands returns a copy of everything executed so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.cmds))
	copy(out, r.cmds)
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = nil
}

// Screens returns the kinds of every screen shown, in order.
func (r *Recorder) Screens() []ScreenKind {
	var out []ScreenKind
	for _, c := range r.Commands() {
		if s, ok := c.(ShowScreen); ok {
			out = append(out, s.Screen.Kind)
		}
	}
	return out
}

// LastScreen returns the most recent screen, if any.
func (r *Recorder) LastScreen() (Screen, bool) {
	cmds := r.Commands()
	for i := len(cmds) - 1; i >= 0; i-- {
		if s, ok := cmds[i].(ShowScreen); ok {
			return s.Screen, true
		}
	}
	return Screen{}, false
}

// GatePositions returns every gate command, in order.
func (r *Recorder) GatePositions() []GatePosition {
	var out []GatePosition
	for _, c := range r.Commands() {
		if g, ok := c.(SetGate); ok {
			out = append(out, g.Position)
		}
	}
	return out
}
