package session

import "github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/types"

// Event is one input consumed by the state machine.
type Event interface {
	event()
}

type SymbolPressed struct {
	Symbol types.Symbol
}

type CredentialPresented struct {
	ID types.CredentialID
}

func (SymbolPressed) event()       {}
func (CredentialPresented) event() {}
