package input

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const ctrlC = 0x03

// TerminalKeypad reads keys from a raw-mode terminal for bench runs without
// a key matrix.  A reader goroutine fills a buffered channel; ScanKey only
// drains it.
type TerminalKeypad struct {
	fd    int
	old   *term.State
	keys  chan byte
	onInt func()
}

// NewTerminalKeypad puts f into raw mode.  Raw mode swallows SIGINT, so
// Ctrl-C is reported through onInterrupt instead.
func NewTerminalKeypad(f *os.File, onInterrupt func()) (*TerminalKeypad, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%s is not a terminal", f.Name())
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("raw mode: %w", err)
	}

	t := &TerminalKeypad{fd: fd, old: old, keys: make(chan byte, 32), onInt: onInterrupt}
	go t.read(f)
	return t, nil
}

func (t *TerminalKeypad) read(r io.Reader) {
	buf := make([]byte, 1)
	for {
		if _, err := r.Read(buf); err != nil {
			return
		}
		if buf[0] == ctrlC {
			if t.onInt != nil {
				t.onInt()
			}
			continue
		}
		select {
		case t.keys <- buf[0]:
		default: // drop keys typed faster than the loop consumes them
		}
	}
}

func (t *TerminalKeypad) ScanKey() (byte, bool) {
	select {
	case b := <-t.keys:
		return b, true
	default:
		return 0, false
	}
}

// Close restores the terminal mode.
func (t *TerminalKeypad) Close() error {
	return term.Restore(t.fd, t.old)
}
