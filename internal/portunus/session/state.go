package session

import "github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/types"

// State is the access flow's current position together with exactly the
// session data that position needs.
type State interface {
	Name() string
	state()
}

// AwaitingCode collects a code for normal authentication.
type AwaitingCode struct {
	Code string
}

// AwaitingCredential holds a submitted code until a card is presented.
type AwaitingCredential struct {
	Code string
}

// AdminAwaitingCredential waits for the card to enroll.
type AdminAwaitingCredential struct{}

// AdminAwaitingCode collects the code to assign to Pending.
type AdminAwaitingCode struct {
	Pending types.CredentialID
	Code    string
}

func (AwaitingCode) state()            {}
func (AwaitingCredential) state()      {}
func (AdminAwaitingCredential) state() {}
func (AdminAwaitingCode) state()       {}

func (AwaitingCode) Name() string            { return "awaiting_code" }
func (AwaitingCredential) Name() string      { return "awaiting_credential" }
func (AdminAwaitingCredential) Name() string { return "admin_awaiting_credential" }
func (AdminAwaitingCode) Name() string       { return "admin_awaiting_code" }

// Initial is the state the kiosk boots into and every flow returns to.
func Initial() State {
	return AwaitingCode{}
}

// IsIdle reports whether s is the initial state with nothing typed.
func IsIdle(s State) bool {
	ac, ok := s.(AwaitingCode)
	return ok && ac.Code == ""
}
