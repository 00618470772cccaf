package input

import (
	"github.com/sirupsen/logrus"

	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/session"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/types"
)

// Arbiter turns raw driver reads into state machine events.  Each query
// touches its driver at most once and never blocks.
type Arbiter struct {
	keypad  Keypad
	reader  CardReader
	lengths map[int]struct{}
	logger  logrus.FieldLogger
}

func NewArbiter(k Keypad, r CardReader, credentialLengths []int, logger logrus.FieldLogger) *Arbiter {
	if len(credentialLengths) == 0 {
		credentialLengths = types.DefaultCredentialLengths
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	lengths := make(map[int]struct{}, len(credentialLengths))
	for _, n := range credentialLengths {
		lengths[n] = struct{}{}
	}
	return &Arbiter{keypad: k, reader: r, lengths: lengths, logger: logger}
}

// PollSymbol returns the next keypad symbol.  Bytes outside the keypad
// alphabet are dropped.
func (a *Arbiter) PollSymbol() (types.Symbol, bool) {
	if a.keypad == nil {
		return 0, false
	}
	b, ok := a.keypad.ScanKey()
	if !ok {
		return 0, false
	}
	sym, ok := types.ParseSymbol(b)
	if !ok {
		a.logger.WithField("key", b).Debug("dropped key outside keypad alphabet")
	}
	return sym, ok
}

// PollCredential returns a newly presented credential and halts the card.
// UIDs of a length the kiosk does not accept are halted and dropped.
func (a *Arbiter) PollCredential() (types.CredentialID, bool) {
	if a.reader == nil {
		return nil, false
	}
	uid, ok := a.reader.ReadUID()
	if !ok {
		return nil, false
	}

	id := types.CredentialID(uid).Clone()
	if err := a.reader.Halt(); err != nil {
		a.logger.WithError(err).Warn("card halt failed")
	}

	if _, valid := a.lengths[len(id)]; !valid {
		a.logger.WithField("uid_len", len(id)).Warn("dropped credential with unsupported length")
		return nil, false
	}
	return id, true
}

// Poll returns at most one event.  The reader is only consulted when no key
// was pending.
func (a *Arbiter) Poll() (session.Event, bool) {
	if sym, ok := a.PollSymbol(); ok {
		return session.SymbolPressed{Symbol: sym}, true
	}
	if id, ok := a.PollCredential(); ok {
		return session.CredentialPresented{ID: id}, true
	}
	return nil, false
}
